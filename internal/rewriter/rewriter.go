// Package rewriter calls an external language model to restructure text.
//
// Failures never surface as Go errors: a Result carries the failure reason in
// Err and the input text in Text, so callers can fall back without branching
// on error types.
package rewriter

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Prompt profiles
const (
	ProfileLight      = "light"
	ProfileAggressive = "aggressive"
)

var (
	// ErrNotConfigured is reported when no provider is available
	ErrNotConfigured = errors.New("rewriter not configured")
	// ErrEmptyRewrite is reported when the provider returns no usable text
	ErrEmptyRewrite = errors.New("empty rewrite")
	// ErrTimeout is reported when the provider does not answer in time
	ErrTimeout = errors.New("rewrite timeout")
)

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 5 * time.Second

// Result is the outcome of a rewrite attempt
type Result struct {
	Text           string
	ProcessingTime time.Duration
	Err            string
	FromCache      bool
	Model          string
}

// OK reports whether the rewrite succeeded with usable text
func (r Result) OK() bool {
	return r.Err == "" && strings.TrimSpace(r.Text) != ""
}

// Rewriter restructures text through an external service
type Rewriter interface {
	Restructure(ctx context.Context, text string, aggressive bool) Result
	Name() string
}

// Request is a single generation call
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Provider is a model backend
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Profile returns the prompt profile name
func Profile(aggressive bool) string {
	if aggressive {
		return ProfileAggressive
	}
	return ProfileLight
}

// Options tune a Client
type Options struct {
	Timeout         time.Duration
	Temperature     float32
	MaxTokensFactor float64
}

// Client turns a Provider into a Rewriter: it builds prompts, bounds the
// call, and cleans the output
type Client struct {
	provider Provider
	opts     Options
	logger   *zap.Logger
}

// NewClient wraps a provider
func NewClient(provider Provider, opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTokensFactor <= 0 {
		opts.MaxTokensFactor = 1.5
	}
	return &Client{
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.provider.Name()
}

// Model returns the provider's model
func (c *Client) Model() string {
	return c.provider.Model()
}

// Restructure rewrites text using the light or aggressive prompt profile
func (c *Client) Restructure(ctx context.Context, text string, aggressive bool) Result {
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	out, err := c.provider.Generate(callCtx, Request{
		System:      SystemPrompt,
		Prompt:      BuildPrompt(text, aggressive),
		Temperature: c.opts.Temperature,
		MaxTokens:   int(float64(utf8.RuneCountInString(text)) * c.opts.MaxTokensFactor),
	})
	elapsed := time.Since(start)

	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = ErrTimeout.Error()
		}
		c.logger.Warn("Rewrite failed",
			zap.String("provider", c.provider.Name()),
			zap.String("profile", Profile(aggressive)),
			zap.String("reason", reason),
			zap.Duration("duration", elapsed))
		return Result{Text: text, ProcessingTime: elapsed, Err: reason, Model: c.provider.Model()}
	}

	cleaned := Clean(out)
	if cleaned == "" {
		c.logger.Warn("Rewrite returned no text", zap.String("provider", c.provider.Name()))
		return Result{Text: text, ProcessingTime: elapsed, Err: ErrEmptyRewrite.Error(), Model: c.provider.Model()}
	}

	c.logger.Debug("Rewrite completed",
		zap.String("provider", c.provider.Name()),
		zap.String("profile", Profile(aggressive)),
		zap.Duration("duration", elapsed))

	return Result{Text: cleaned, ProcessingTime: elapsed, Model: c.provider.Model()}
}

// Unavailable is used when no provider is configured. Every call fails softly.
type Unavailable struct{}

// Name returns "none"
func (Unavailable) Name() string {
	return "none"
}

// Restructure always reports ErrNotConfigured
func (Unavailable) Restructure(_ context.Context, text string, _ bool) Result {
	return Result{Text: text, Err: ErrNotConfigured.Error()}
}
