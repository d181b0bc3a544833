package logger

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("InvalidLevel", func(t *testing.T) {
		if _, err := New(Config{Level: "loud", Format: "json"}); err == nil {
			t.Error("expected error for invalid level")
		}
	})

	t.Run("FileSink", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "humanizer.log")
		log, err := New(Config{Level: "info", Format: "console", File: &FileConfig{Enabled: true, Path: path}})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		log.WithComponent("test").WithRequestID("req-1").Info("hello")
		log.Sync()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("log file not written: %v", err)
		}
		for _, want := range []string{`"msg":"hello"`, `"component":"test"`, `"request_id":"req-1"`} {
			if !strings.Contains(string(data), want) {
				t.Errorf("log file missing %s: %s", want, data)
			}
		}
	})
}

func TestLogHTTPRedactsHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	log, err := New(Config{Level: "info", Format: "json", File: &FileConfig{Enabled: true, Path: path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer secret")
	headers.Set("User-Agent", "test")
	log.LogHTTP("POST", "/humanize", 200, 5*time.Millisecond, headers)
	log.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Errorf("authorization header leaked: %s", data)
	}
	if !strings.Contains(string(data), "[REDACTED]") || !strings.Contains(string(data), `"User-Agent":"test"`) {
		t.Errorf("unexpected header logging: %s", data)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Preview("ééééé", 3); got != "ééé…" {
		t.Errorf("got %q", got)
	}
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	log, err := New(Config{Level: "warn", Format: "json", File: &FileConfig{Enabled: true, Path: path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	scoped := log.WithComponent("reload")

	scoped.Info("before")
	if err := log.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	scoped.Info("after")
	log.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "before") {
		t.Errorf("info logged at warn level: %s", data)
	}
	if !strings.Contains(string(data), "after") {
		t.Errorf("derived logger did not pick up the new level: %s", data)
	}

	if err := log.SetLevel("loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
