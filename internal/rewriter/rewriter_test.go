package rewriter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raaihank/llm-humanizer/internal/cache"
	"go.uber.org/zap"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// fakeProvider returns a fixed answer or error, optionally after a delay
type fakeProvider struct {
	out   string
	err   error
	delay time.Duration
	calls atomic.Int32
	last  Request
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

// modelProvider overrides the fake's model name
type modelProvider struct {
	*fakeProvider
	model string
}

func (m *modelProvider) Model() string { return m.model }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (string, error) {
	f.calls.Add(1)
	f.last = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.out, f.err
}

func TestOpenAIGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := &OpenAI{
			BaseURL:   "https://api.test/v1",
			APIKey:    "sk-test",
			ModelName: "gpt-3.5-turbo",
			HTTPClient: &http.Client{
				Transport: roundTrip(func(req *http.Request) *http.Response {
					if req.URL.Path != "/v1/chat/completions" {
						t.Errorf("unexpected path %s", req.URL.Path)
					}
					if req.Header.Get("Authorization") != "Bearer sk-test" {
						t.Errorf("missing bearer token")
					}
					var body chatRequest
					json.NewDecoder(req.Body).Decode(&body)
					if body.Model != "gpt-3.5-turbo" || len(body.Messages) != 2 || body.MaxTokens != 30 {
						t.Errorf("unexpected payload %+v", body)
					}
					return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","content":"Rewritten"}}]}`)
				}),
			},
		}

		out, err := client.Generate(context.Background(), Request{System: "sys", Prompt: "user", Temperature: 0.9, MaxTokens: 30})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if out != "Rewritten" {
			t.Fatalf("unexpected output: %s", out)
		}
	})

	t.Run("APIError", func(t *testing.T) {
		client := &OpenAI{
			ModelName: "gpt-test",
			HTTPClient: &http.Client{
				Transport: roundTrip(func(req *http.Request) *http.Response {
					return jsonResponse(429, `{"error":{"message":"rate limited"}}`)
				}),
			},
		}
		_, err := client.Generate(context.Background(), Request{})
		if err == nil || !strings.Contains(err.Error(), "rate limited") {
			t.Fatalf("expected API error, got %v", err)
		}
	})

	t.Run("StatusWithoutBody", func(t *testing.T) {
		client := &OpenAI{
			ModelName: "gpt-test",
			HTTPClient: &http.Client{
				Transport: roundTrip(func(req *http.Request) *http.Response {
					return jsonResponse(502, `bad gateway`)
				}),
			},
		}
		_, err := client.Generate(context.Background(), Request{})
		if err == nil || !strings.Contains(err.Error(), "502") {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	t.Run("NoChoices", func(t *testing.T) {
		client := &OpenAI{
			ModelName: "gpt-test",
			HTTPClient: &http.Client{
				Transport: roundTrip(func(req *http.Request) *http.Response {
					return jsonResponse(200, `{"choices":[]}`)
				}),
			},
		}
		if _, err := client.Generate(context.Background(), Request{}); !errors.Is(err, ErrEmptyRewrite) {
			t.Fatalf("expected ErrEmptyRewrite, got %v", err)
		}
	})

	t.Run("Endpoint", func(t *testing.T) {
		tests := map[string]string{
			"":                                       "https://api.openai.com/v1/chat/completions",
			"http://localhost:11434/v1/":             "http://localhost:11434/v1/chat/completions",
			"https://proxy.test/v1/chat/completions": "https://proxy.test/v1/chat/completions",
		}
		for base, want := range tests {
			if got := (&OpenAI{BaseURL: base}).endpoint(); got != want {
				t.Errorf("endpoint(%q) = %q, want %q", base, got, want)
			}
		}
	})
}

func TestClientRestructure(t *testing.T) {
	logger := zap.NewNop()

	t.Run("Success", func(t *testing.T) {
		provider := &fakeProvider{out: "Here is the rewritten text: \"Fresh words.\""}
		client := NewClient(provider, Options{Temperature: 0.9}, logger)

		result := client.Restructure(context.Background(), "Old words here.", true)
		if !result.OK() {
			t.Fatalf("expected success, got %+v", result)
		}
		if result.Text != "Fresh words." {
			t.Errorf("unexpected text %q", result.Text)
		}
		if result.Model != "fake-1" {
			t.Errorf("unexpected model %q", result.Model)
		}
		if !strings.Contains(provider.last.Prompt, "Completely restructure") {
			t.Error("aggressive profile should use the aggressive prompt")
		}
		if provider.last.MaxTokens != 22 {
			t.Errorf("expected max tokens 22, got %d", provider.last.MaxTokens)
		}
	})

	t.Run("LightProfile", func(t *testing.T) {
		provider := &fakeProvider{out: "ok"}
		NewClient(provider, Options{}, logger).Restructure(context.Background(), "text", false)
		if !strings.Contains(provider.last.Prompt, "Lightly restructure") {
			t.Error("light profile should use the light prompt")
		}
		if provider.last.System != SystemPrompt {
			t.Error("system prompt not sent")
		}
	})

	t.Run("ProviderError", func(t *testing.T) {
		provider := &fakeProvider{err: errors.New("connection refused")}
		result := NewClient(provider, Options{}, logger).Restructure(context.Background(), "original", false)
		if result.Err != "connection refused" || result.Text != "original" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		provider := &fakeProvider{out: "late", delay: time.Second}
		result := NewClient(provider, Options{Timeout: 20 * time.Millisecond}, logger).Restructure(context.Background(), "original", true)
		if result.Err != ErrTimeout.Error() {
			t.Errorf("expected timeout, got %+v", result)
		}
		if result.Text != "original" {
			t.Errorf("failed rewrite should return input, got %q", result.Text)
		}
	})

	t.Run("EmptyOutput", func(t *testing.T) {
		provider := &fakeProvider{out: "<think>hmm</think>  "}
		result := NewClient(provider, Options{}, logger).Restructure(context.Background(), "original", false)
		if result.Err != ErrEmptyRewrite.Error() || result.OK() {
			t.Errorf("expected empty rewrite, got %+v", result)
		}
	})
}

func TestUnavailable(t *testing.T) {
	result := Unavailable{}.Restructure(context.Background(), "text", true)
	if result.Err != ErrNotConfigured.Error() || result.Text != "text" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("ServesRepeatFromCache", func(t *testing.T) {
		provider := &fakeProvider{out: "rewritten"}
		store := cache.NewMemoryStore(10, time.Minute, logger)
		rw := NewCached(NewClient(provider, Options{}, logger), store, "test", logger)

		first := rw.Restructure(ctx, "some  text", false)
		second := rw.Restructure(ctx, "some text", false)

		if first.FromCache || !second.FromCache {
			t.Errorf("expected miss then hit, got %v then %v", first.FromCache, second.FromCache)
		}
		if second.Text != "rewritten" || second.Model != "fake-1" {
			t.Errorf("unexpected cached result %+v", second)
		}
		if provider.calls.Load() != 1 {
			t.Errorf("expected 1 provider call, got %d", provider.calls.Load())
		}
	})

	t.Run("ProfilesCachedSeparately", func(t *testing.T) {
		provider := &fakeProvider{out: "rewritten"}
		store := cache.NewMemoryStore(10, time.Minute, logger)
		rw := NewCached(NewClient(provider, Options{}, logger), store, "test", logger)

		rw.Restructure(ctx, "text", false)
		rw.Restructure(ctx, "text", true)
		if provider.calls.Load() != 2 {
			t.Errorf("expected 2 provider calls, got %d", provider.calls.Load())
		}
	})

	t.Run("FailuresNotCached", func(t *testing.T) {
		provider := &fakeProvider{err: errors.New("boom")}
		store := cache.NewMemoryStore(10, time.Minute, logger)
		rw := NewCached(NewClient(provider, Options{}, logger), store, "test", logger)

		rw.Restructure(ctx, "text", false)
		rw.Restructure(ctx, "text", false)
		if provider.calls.Load() != 2 {
			t.Errorf("failed rewrites should not be cached, got %d calls", provider.calls.Load())
		}
	})

	t.Run("ModelsCachedSeparately", func(t *testing.T) {
		store := cache.NewMemoryStore(10, time.Minute, logger)
		older := &modelProvider{fakeProvider: &fakeProvider{out: "from old"}, model: "fake-1"}
		newer := &modelProvider{fakeProvider: &fakeProvider{out: "from new"}, model: "fake-2"}

		NewCached(NewClient(older, Options{}, logger), store, "test", logger).Restructure(ctx, "text", false)
		result := NewCached(NewClient(newer, Options{}, logger), store, "test", logger).Restructure(ctx, "text", false)

		if result.FromCache || result.Text != "from new" {
			t.Errorf("rewrite from another model served from cache: %+v", result)
		}
		if newer.calls.Load() != 1 {
			t.Errorf("expected 1 call to the new model, got %d", newer.calls.Load())
		}
	})

	t.Run("NilStore", func(t *testing.T) {
		inner := Unavailable{}
		if NewCached(inner, nil, "test", logger) != Rewriter(inner) {
			t.Error("nil store should return the inner rewriter")
		}
	})
}

func TestGeminiGenerateConfig(t *testing.T) {
	cfg := generateConfig(Request{System: "sys", Prompt: "user", Temperature: 0.9, MaxTokens: 30})
	if cfg.MaxOutputTokens != 30 {
		t.Errorf("expected max output tokens 30, got %d", cfg.MaxOutputTokens)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.9 {
		t.Errorf("unexpected temperature %v", cfg.Temperature)
	}
	if cfg.SystemInstruction == nil || len(cfg.SystemInstruction.Parts) != 1 || cfg.SystemInstruction.Parts[0].Text != "sys" {
		t.Errorf("unexpected system instruction %+v", cfg.SystemInstruction)
	}

	if unbounded := generateConfig(Request{Prompt: "user"}); unbounded.MaxOutputTokens != 0 {
		t.Errorf("zero budget should leave output unbounded, got %d", unbounded.MaxOutputTokens)
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("None", func(t *testing.T) {
		rw, err := NewFromConfig(ctx, Config{Provider: ProviderNone}, nil, "", logger)
		if err != nil || rw.Name() != "none" {
			t.Errorf("expected Unavailable, got %v, %v", rw, err)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		rw, err := NewFromConfig(ctx, Config{Provider: ProviderOpenAI}, nil, "", logger)
		if err != nil || rw.Name() != "none" {
			t.Errorf("expected Unavailable, got %v, %v", rw, err)
		}
	})

	t.Run("OpenAIWithCache", func(t *testing.T) {
		store := cache.NewMemoryStore(10, time.Minute, logger)
		rw, err := NewFromConfig(ctx, Config{Provider: ProviderOpenAI, APIKey: "sk", Model: "gpt-3.5-turbo"}, store, "test", logger)
		if err != nil {
			t.Fatalf("NewFromConfig: %v", err)
		}
		if _, ok := rw.(*Cached); !ok {
			t.Errorf("expected *Cached, got %T", rw)
		}
		if rw.Name() != ProviderOpenAI {
			t.Errorf("unexpected name %s", rw.Name())
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := NewFromConfig(ctx, Config{Provider: "claude"}, nil, "", logger); err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "Just text.", "Just text."},
		{"Thinking", "<think>plan</think>Final answer.", "Final answer."},
		{"Truncated", "Answer.<thinking>still going", "Answer."},
		{"Echo", "Sure, here is the rewritten text:\nNew text.", "New text."},
		{"EchoVersion", "Rewritten version: New text.", "New text."},
		{"Quotes", "“Quoted text.”", "Quoted text."},
		{"InnerQuotes", `"a" and "b"`, `"a" and "b"`},
		{"SurelyIsNotAnEcho", "Surely this stays.", "Surely this stays."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
