package humanizer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/raaihank/llm-humanizer/internal/grammar"
	"github.com/raaihank/llm-humanizer/internal/patterns"
	"github.com/raaihank/llm-humanizer/internal/rewriter"
	"github.com/raaihank/llm-humanizer/internal/scorer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config wires the pipeline. Nil components fall back to the defaults.
type Config struct {
	Engine   *patterns.Engine
	Rewriter rewriter.Rewriter
	Cleaner  *grammar.Cleaner
	Scorer   *scorer.Scorer

	// Seed makes runs reproducible. Invocation i of a batch draws from (Seed, i).
	Seed *uint64
	// BatchConcurrency caps concurrent invocations in HumanizeMany
	BatchConcurrency int
}

// Humanizer runs the pattern engine, the external rewriter and grammar
// cleanup according to the requested mode. It is safe for concurrent use.
type Humanizer struct {
	engine   *patterns.Engine
	rewriter rewriter.Rewriter
	cleaner  *grammar.Cleaner
	scorer   *scorer.Scorer
	seed     *uint64
	limit    int
	logger   *zap.Logger

	total           atomic.Int64
	byMethod        map[Method]*atomic.Int64
	rewriteFailures atomic.Int64
	cacheHits       atomic.Int64
}

// New creates a humanizer
func New(cfg Config, logger *zap.Logger) *Humanizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Humanizer{
		engine:   cfg.Engine,
		rewriter: cfg.Rewriter,
		cleaner:  cfg.Cleaner,
		scorer:   cfg.Scorer,
		seed:     cfg.Seed,
		limit:    cfg.BatchConcurrency,
		logger:   logger,
		byMethod: map[Method]*atomic.Int64{
			MethodRegexOnly:        {},
			MethodHybrid:           {},
			MethodOpenAIAggressive: {},
			MethodRegexFallback:    {},
		},
	}

	if h.engine == nil {
		h.engine = patterns.NewEngine(nil, patterns.Options{FlowProbability: patterns.DefaultFlowProbability}, logger)
	}
	if h.rewriter == nil {
		h.rewriter = rewriter.Unavailable{}
	}
	if h.cleaner == nil {
		h.cleaner = grammar.New(nil, logger)
	}
	if h.scorer == nil {
		h.scorer = scorer.New(scorer.DefaultWeights())
	}
	if h.limit <= 0 {
		h.limit = runtime.GOMAXPROCS(0) * 4
	}

	return h
}

// Scorer returns the scorer used for final estimates
func (h *Humanizer) Scorer() *scorer.Scorer {
	return h.scorer
}

// RewriterName returns the configured rewriter's name
func (h *Humanizer) RewriterName() string {
	return h.rewriter.Name()
}

// Humanize processes a single text. It fails only for an unknown mode or a
// cancelled context; rewriter failures fall back to the pattern output.
func (h *Humanizer) Humanize(ctx context.Context, text string, mode Mode) (*Result, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return h.humanize(ctx, text, mode, h.newRand(0))
}

// HumanizeMany processes texts concurrently. Results are in input order.
// On cancellation the results finished so far are returned with the error.
func (h *Humanizer) HumanizeMany(ctx context.Context, texts []string, mode Mode) ([]*Result, error) {
	return h.HumanizeManyLimit(ctx, texts, mode, h.limit)
}

// HumanizeManyLimit is HumanizeMany with an explicit concurrency cap
func (h *Humanizer) HumanizeManyLimit(ctx context.Context, texts []string, mode Mode, limit int) ([]*Result, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if limit <= 0 {
		limit = h.limit
	}

	results := make([]*Result, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, text := range texts {
		g.Go(func() error {
			result, err := h.humanize(gctx, text, mode, h.newRand(i))
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Stats returns the counters accumulated since start
func (h *Humanizer) Stats() Stats {
	stats := Stats{
		Total:           h.total.Load(),
		ByMethod:        make(map[Method]int64, len(h.byMethod)),
		RewriteFailures: h.rewriteFailures.Load(),
		CacheHits:       h.cacheHits.Load(),
	}
	for method, n := range h.byMethod {
		stats.ByMethod[method] = n.Load()
	}
	return stats
}

func (h *Humanizer) humanize(ctx context.Context, text string, mode Mode, rng *rand.Rand) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		out     patterns.TransformResult
		method  Method
		rewrite *rewriter.Result
	)

	switch mode {
	case Fast:
		out = h.engine.Apply(text, rng)
		method = MethodRegexOnly

	case Balanced:
		out = h.engine.Apply(text, rng)
		method = MethodRegexOnly

		if h.scorer.NeedsEnhancement(out.Text) {
			rw := h.rewriter.Restructure(ctx, out.Text, false)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rewrite = &rw
			if rw.OK() {
				out.Text = rw.Text
				method = MethodHybrid
			}
			out.Changes = append(out.Changes, describeRewrite(rw))
		}

	case Aggressive:
		var engineOut patterns.TransformResult
		var rw rewriter.Result

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			engineOut = h.engine.Apply(text, rng)
			return nil
		})
		g.Go(func() error {
			rw = h.rewriter.Restructure(gctx, text, true)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rewrite = &rw
		out = engineOut
		if rw.OK() {
			out.Text = rw.Text
			method = MethodOpenAIAggressive
		} else {
			method = MethodRegexFallback
		}
		out.Changes = append(out.Changes, describeRewrite(rw))
	}

	fixed, fixes := h.cleaner.Fix(out.Text)

	result := &Result{
		Original:          text,
		Humanized:         fixed,
		ProcessingTimeMs:  float64(time.Since(start).Microseconds()) / 1000,
		DetectionEstimate: h.scorer.DetectionEstimate(fixed),
		MethodUsed:        method,
		ChangesApplied:    append(out.Changes, fixes...),
		WordCountDelta:    len(strings.Fields(fixed)) - len(strings.Fields(text)),
		Mode:              mode,
	}
	if rewrite != nil {
		result.RewriteError = rewrite.Err
		result.RewriteModel = rewrite.Model
		result.FromCache = rewrite.FromCache
	}

	h.record(result)

	h.logger.Debug("Text humanized",
		zap.String("mode", string(mode)),
		zap.String("method", string(method)),
		zap.Float64("detection_estimate", result.DetectionEstimate),
		zap.Int("changes", len(result.ChangesApplied)),
		zap.Float64("processing_time_ms", result.ProcessingTimeMs))

	return result, nil
}

func (h *Humanizer) record(result *Result) {
	h.total.Add(1)
	if n, ok := h.byMethod[result.MethodUsed]; ok {
		n.Add(1)
	}
	if result.RewriteError != "" {
		h.rewriteFailures.Add(1)
	}
	if result.FromCache {
		h.cacheHits.Add(1)
	}
}

// newRand returns the generator for invocation i. Generators are never shared.
func (h *Humanizer) newRand(i int) *rand.Rand {
	if h.seed != nil {
		return rand.New(rand.NewPCG(*h.seed, uint64(i)))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func describeRewrite(rw rewriter.Result) string {
	if rw.OK() {
		return RewriteChange + ": success"
	}
	if rw.Err == "" {
		return RewriteChange + ": " + rewriter.ErrEmptyRewrite.Error()
	}
	return RewriteChange + ": " + rw.Err
}
