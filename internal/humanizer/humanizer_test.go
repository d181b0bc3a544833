package humanizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raaihank/llm-humanizer/internal/patterns"
	"github.com/raaihank/llm-humanizer/internal/rewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type rewriteCall struct {
	text       string
	aggressive bool
}

// fakeRewriter records calls and answers with a fixed result
type fakeRewriter struct {
	result rewriter.Result
	delay  func(text string) time.Duration
	block  bool

	mu    sync.Mutex
	calls []rewriteCall
}

func (f *fakeRewriter) Name() string { return "fake" }

func (f *fakeRewriter) Restructure(ctx context.Context, text string, aggressive bool) rewriter.Result {
	f.mu.Lock()
	f.calls = append(f.calls, rewriteCall{text: text, aggressive: aggressive})
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return rewriter.Result{Text: text, Err: ctx.Err().Error()}
	}
	if f.delay != nil {
		select {
		case <-time.After(f.delay(text)):
		case <-ctx.Done():
			return rewriter.Result{Text: text, Err: ctx.Err().Error()}
		}
	}

	result := f.result
	if result.Err != "" {
		result.Text = text
	}
	return result
}

func (f *fakeRewriter) Calls() []rewriteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rewriteCall(nil), f.calls...)
}

func newTestHumanizer(rw rewriter.Rewriter, seed uint64) *Humanizer {
	return New(Config{
		Engine:   patterns.NewEngine(nil, patterns.Options{FlowProbability: patterns.DefaultFlowProbability}, zap.NewNop()),
		Rewriter: rw,
		Seed:     &seed,
	}, zap.NewNop())
}

const repetitiveText = "The results are good. The results are bad. The results are mixed."

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Aggressive ")
	require.NoError(t, err)
	assert.Equal(t, Aggressive, mode)

	_, err = ParseMode("turbo")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestHumanizeFast(t *testing.T) {
	t.Run("OpeningExample", func(t *testing.T) {
		rw := &fakeRewriter{}
		h := newTestHumanizer(rw, 1)

		result, err := h.Humanize(context.Background(), "Climate change impacts are becoming more evident.", Fast)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(result.Humanized, "The world shows increasing signs of Climate change which"))
		assert.Equal(t, MethodRegexOnly, result.MethodUsed)
		assert.Equal(t, []string{"Opening transformation: impacts_becoming"}, result.ChangesApplied)
		assert.Empty(t, rw.Calls())
	})

	t.Run("DeterministicUnderSeed", func(t *testing.T) {
		text := "Additionally, individuals utilize tools and methods. However, the effects are important. Research helps teams to grow."
		a, err := newTestHumanizer(&fakeRewriter{}, 99).Humanize(context.Background(), text, Fast)
		require.NoError(t, err)
		b, err := newTestHumanizer(&fakeRewriter{}, 99).Humanize(context.Background(), text, Fast)
		require.NoError(t, err)

		assert.Equal(t, a.Humanized, b.Humanized)
		assert.Equal(t, a.ChangesApplied, b.ChangesApplied)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		result, err := newTestHumanizer(&fakeRewriter{}, 1).Humanize(context.Background(), "", Fast)
		require.NoError(t, err)

		assert.Equal(t, "", result.Humanized)
		assert.Empty(t, result.ChangesApplied)
		assert.NotNil(t, result.ChangesApplied)
		assert.Equal(t, 0, result.WordCountDelta)
		assert.GreaterOrEqual(t, result.DetectionEstimate, 0.0)
		assert.LessOrEqual(t, result.DetectionEstimate, 100.0)
	})

	t.Run("WordCountDelta", func(t *testing.T) {
		result, err := newTestHumanizer(&fakeRewriter{}, 1).Humanize(context.Background(), "Climate change impacts are becoming more evident.", Fast)
		require.NoError(t, err)
		assert.Equal(t, len(strings.Fields(result.Humanized))-7, result.WordCountDelta)
	})
}

func TestHumanizeBalanced(t *testing.T) {
	t.Run("SkipsRewriterWhenNotNeeded", func(t *testing.T) {
		rw := &fakeRewriter{result: rewriter.Result{Text: "unused"}}
		h := newTestHumanizer(rw, 1)

		result, err := h.Humanize(context.Background(), "The river which flows here is calm.", Balanced)
		require.NoError(t, err)

		assert.Equal(t, MethodRegexOnly, result.MethodUsed)
		assert.Empty(t, rw.Calls())
		assert.Empty(t, result.RewriteError)
	})

	t.Run("RewritesEngineOutput", func(t *testing.T) {
		rw := &fakeRewriter{result: rewriter.Result{Text: "Rewritten text which flows.", Model: "fake-1"}}
		h := newTestHumanizer(rw, 1)

		result, err := h.Humanize(context.Background(), repetitiveText, Balanced)
		require.NoError(t, err)

		assert.Equal(t, MethodHybrid, result.MethodUsed)
		assert.Equal(t, "Rewritten text which flows.", result.Humanized)
		assert.Contains(t, result.ChangesApplied, "External rewrite: success")
		assert.Equal(t, "fake-1", result.RewriteModel)

		calls := rw.Calls()
		require.Len(t, calls, 1)
		assert.False(t, calls[0].aggressive)
		assert.Equal(t, repetitiveText, calls[0].text)
	})

	t.Run("FallsBackOnFailure", func(t *testing.T) {
		rw := &fakeRewriter{result: rewriter.Result{Err: "rewrite timeout"}}
		h := newTestHumanizer(rw, 1)

		result, err := h.Humanize(context.Background(), repetitiveText, Balanced)
		require.NoError(t, err)

		assert.Equal(t, MethodRegexOnly, result.MethodUsed)
		assert.Equal(t, repetitiveText, result.Humanized)
		assert.Equal(t, []string{"External rewrite: rewrite timeout"}, result.ChangesApplied)
		assert.Equal(t, "rewrite timeout", result.RewriteError)
	})

	t.Run("FallsBackOnEmptyRewrite", func(t *testing.T) {
		rw := &fakeRewriter{result: rewriter.Result{Text: "   "}}
		result, err := newTestHumanizer(rw, 1).Humanize(context.Background(), repetitiveText, Balanced)
		require.NoError(t, err)
		assert.Equal(t, MethodRegexOnly, result.MethodUsed)
		assert.Equal(t, repetitiveText, result.Humanized)
	})
}

func TestHumanizeAggressive(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("PrefersRewrite", func(t *testing.T) {
		rw := &fakeRewriter{result: rewriter.Result{Text: "Persons has new words which flow."}}
		h := newTestHumanizer(rw, 1)

		result, err := h.Humanize(context.Background(), "Some original text.", Aggressive)
		require.NoError(t, err)

		assert.Equal(t, MethodOpenAIAggressive, result.MethodUsed)
		assert.Equal(t, "persons have new words which flow.", result.Humanized)
		assert.Contains(t, result.ChangesApplied, "External rewrite: success")
		assert.Equal(t, "Grammar fix: persons_has", result.ChangesApplied[len(result.ChangesApplied)-1])

		calls := rw.Calls()
		require.Len(t, calls, 1)
		assert.True(t, calls[0].aggressive)
		assert.Equal(t, "Some original text.", calls[0].text)
	})

	t.Run("FallsBackToEngineText", func(t *testing.T) {
		text := "Climate change impacts are becoming more evident. Additionally, individuals utilize data."

		fast, err := newTestHumanizer(&fakeRewriter{}, 5).Humanize(context.Background(), text, Fast)
		require.NoError(t, err)

		rw := &fakeRewriter{result: rewriter.Result{Err: "rewriter not configured"}}
		result, err := newTestHumanizer(rw, 5).Humanize(context.Background(), text, Aggressive)
		require.NoError(t, err)

		assert.Equal(t, MethodRegexFallback, result.MethodUsed)
		assert.Equal(t, fast.Humanized, result.Humanized)
		assert.Contains(t, result.ChangesApplied, "External rewrite: rewriter not configured")
	})

	t.Run("CancelStopsWaiting", func(t *testing.T) {
		rw := &fakeRewriter{block: true}
		h := newTestHumanizer(rw, 1)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := h.Humanize(ctx, "Some text.", Aggressive)
			done <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("Humanize did not return after cancel")
		}
	})
}

func TestHumanizeUnknownMode(t *testing.T) {
	h := newTestHumanizer(&fakeRewriter{}, 1)
	_, err := h.Humanize(context.Background(), "text", Mode("turbo"))
	assert.True(t, errors.Is(err, ErrUnknownMode))

	_, err = h.HumanizeMany(context.Background(), []string{"text"}, Mode("turbo"))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestHumanizeMany(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("FastPair", func(t *testing.T) {
		texts := []string{"Climate change impacts are becoming more evident.", "Individuals utilize data."}
		results, err := newTestHumanizer(&fakeRewriter{}, 1).HumanizeMany(context.Background(), texts, Fast)
		require.NoError(t, err)
		require.Len(t, results, 2)

		for i, result := range results {
			assert.Equal(t, texts[i], result.Original)
			assert.Equal(t, MethodRegexOnly, result.MethodUsed)
		}
	})

	t.Run("OrderIndependentOfCompletion", func(t *testing.T) {
		texts := []string{"first text", "second text", "third text", "fourth text"}
		delays := map[string]time.Duration{
			"first text":  40 * time.Millisecond,
			"second text": 30 * time.Millisecond,
			"third text":  20 * time.Millisecond,
			"fourth text": 0,
		}
		rw := &fakeRewriter{
			result: rewriter.Result{Text: "rewritten"},
			delay:  func(text string) time.Duration { return delays[text] },
		}

		results, err := newTestHumanizer(rw, 1).HumanizeMany(context.Background(), texts, Aggressive)
		require.NoError(t, err)
		require.Len(t, results, len(texts))
		for i, result := range results {
			assert.Equal(t, texts[i], result.Original)
			assert.Equal(t, MethodOpenAIAggressive, result.MethodUsed)
		}
	})

	t.Run("SiblingsDoNotShareRandomness", func(t *testing.T) {
		shared := "Additionally, individuals utilize tools and methods and ideas."
		h := newTestHumanizer(&fakeRewriter{}, 7)

		a, err := h.HumanizeMany(context.Background(), []string{shared, "However, it is important."}, Fast)
		require.NoError(t, err)
		b, err := h.HumanizeMany(context.Background(), []string{shared, "Furthermore, the benefits and the effects and the changes."}, Fast)
		require.NoError(t, err)

		assert.Equal(t, a[0].Humanized, b[0].Humanized)
		assert.Equal(t, a[0].ChangesApplied, b[0].ChangesApplied)
	})

	t.Run("CancelKeepsFinishedResults", func(t *testing.T) {
		rw := &fakeRewriter{
			result: rewriter.Result{Text: "rewritten"},
			delay: func(text string) time.Duration {
				if text == "slow" {
					return time.Hour
				}
				return 0
			},
		}
		h := newTestHumanizer(rw, 1)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		results, err := h.HumanizeManyLimit(ctx, []string{"quick", "slow"}, Aggressive, 2)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		require.Len(t, results, 2)
		require.NotNil(t, results[0])
		assert.Equal(t, "quick", results[0].Original)
		assert.Nil(t, results[1])
	})
}

func TestStats(t *testing.T) {
	rw := &fakeRewriter{result: rewriter.Result{Err: "boom"}}
	h := newTestHumanizer(rw, 1)

	_, err := h.Humanize(context.Background(), "Some text.", Fast)
	require.NoError(t, err)
	_, err = h.Humanize(context.Background(), "Some text.", Aggressive)
	require.NoError(t, err)

	stats := h.Stats()
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByMethod[MethodRegexOnly])
	assert.Equal(t, int64(1), stats.ByMethod[MethodRegexFallback])
	assert.Equal(t, int64(1), stats.RewriteFailures)
}
