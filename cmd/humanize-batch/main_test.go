package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/llm-humanizer/internal/batch"
	"github.com/raaihank/llm-humanizer/internal/rules"
	"github.com/raaihank/llm-humanizer/internal/scorer"
)

// execute runs the CLI with a config that keeps everything local
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "humanizer.yaml")
	body := "logging:\n  level: error\nrewriter:\n  provider: none\nhumanizer:\n  seed: 5\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeCmd(t *testing.T) {
	t.Run("Args", func(t *testing.T) {
		out, err := execute(t, "", "analyze", "The", "method", "works.")
		require.NoError(t, err)

		var analysis scorer.Analysis
		require.NoError(t, json.Unmarshal([]byte(out), &analysis))
		assert.Equal(t, "The method works.", analysis.Text)
	})

	t.Run("Stdin", func(t *testing.T) {
		out, err := execute(t, "  piped text here \n", "analyze")
		require.NoError(t, err)

		var analysis scorer.Analysis
		require.NoError(t, json.Unmarshal([]byte(out), &analysis))
		assert.Equal(t, "piped text here", analysis.Text)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := execute(t, "   ", "analyze")
		assert.ErrorContains(t, err, "no text")
	})
}

func TestRulesExportCmd(t *testing.T) {
	out, err := execute(t, "", "rules", "export")
	require.NoError(t, err)

	set, err := rules.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, rules.Default().Words.Names(), set.Words.Names())

	path := filepath.Join(t.TempDir(), "rules.yaml")
	_, err = execute(t, "", "rules", "export", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(input, []byte("id,text\n1,\"Additionally, individuals utilize tools.\"\n"), 0o644))
	output := filepath.Join(dir, "out.csv")

	out, err := execute(t, "", "run", "-i", input, "--input-format", "csv", "-o", output, "-m", "fast")
	require.NoError(t, err)

	var result batch.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, int64(1), result.ProcessedOK)
	assert.Equal(t, int64(1), result.ByMethod["regex_only"])

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,original,humanized"))
}

func TestRunCmdErrors(t *testing.T) {
	_, err := execute(t, "", "run", "-i", "in.csv")
	assert.Error(t, err, "output is required")

	_, err = execute(t, "", "run", "-i", "in.csv", "-o", "out.csv", "--input-format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = execute(t, "", "run", "-i", "in.csv", "-o", "out.csv", "-m", "turbo")
	assert.Error(t, err)
}
