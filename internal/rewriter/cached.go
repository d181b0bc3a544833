package rewriter

import (
	"context"
	"time"

	"github.com/raaihank/llm-humanizer/internal/cache"
	"go.uber.org/zap"
)

// Cached serves repeated rewrites from a content-addressed cache. Only
// successful rewrites are stored.
type Cached struct {
	next   Rewriter
	store  cache.Store
	prefix string
	source string
	logger *zap.Logger
}

// NewCached decorates next with a cache. A nil store returns next unchanged.
func NewCached(next Rewriter, store cache.Store, prefix string, logger *zap.Logger) Rewriter {
	if store == nil {
		return next
	}
	return &Cached{
		next:   next,
		store:  store,
		prefix: prefix,
		source: sourceOf(next),
		logger: logger,
	}
}

// sourceOf identifies the provider and model behind a rewriter
func sourceOf(rw Rewriter) string {
	if m, ok := rw.(interface{ Model() string }); ok {
		return rw.Name() + "/" + m.Model()
	}
	return rw.Name()
}

// Name returns the wrapped rewriter's name
func (c *Cached) Name() string {
	return c.next.Name()
}

// Restructure consults the cache before calling the wrapped rewriter
func (c *Cached) Restructure(ctx context.Context, text string, aggressive bool) Result {
	start := time.Now()
	key := cache.Key(c.prefix, Profile(aggressive), c.source, text)

	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Rewrite cache lookup failed", zap.Error(err))
	} else if ok {
		return Result{
			Text:           entry.Text,
			ProcessingTime: time.Since(start),
			FromCache:      true,
			Model:          entry.Model,
		}
	}

	result := c.next.Restructure(ctx, text, aggressive)
	if !result.OK() {
		return result
	}

	if err := c.store.Set(ctx, key, &cache.Entry{Text: result.Text, Model: result.Model}); err != nil {
		c.logger.Warn("Failed to cache rewrite", zap.Error(err))
	}
	return result
}
