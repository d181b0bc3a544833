package humanizer

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the processing strategy for a request
type Mode string

const (
	// Fast runs the pattern engine only
	Fast Mode = "fast"
	// Balanced calls the external rewriter only when the pattern output still reads machine-like
	Balanced Mode = "balanced"
	// Aggressive runs the pattern engine and a full external rewrite concurrently
	Aggressive Mode = "aggressive"
)

// Modes lists every supported mode
var Modes = []Mode{Fast, Balanced, Aggressive}

// Method records which branch produced the final text
type Method string

const (
	MethodRegexOnly        Method = "regex_only"
	MethodHybrid           Method = "hybrid"
	MethodOpenAIAggressive Method = "openai_aggressive"
	MethodRegexFallback    Method = "regex_fallback"
)

// RewriteChange prefixes the change entry describing the external rewrite
const RewriteChange = "External rewrite"

// ErrUnknownMode is returned for a mode outside Modes
var ErrUnknownMode = errors.New("unknown processing mode")

// ParseMode parses a mode name, case-insensitively
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return mode, nil
}

// Valid reports whether m is a supported mode
func (m Mode) Valid() bool {
	switch m {
	case Fast, Balanced, Aggressive:
		return true
	}
	return false
}

// Result is the outcome of one humanization. It is built once and never mutated.
type Result struct {
	Original          string   `json:"original"`
	Humanized         string   `json:"humanized"`
	ProcessingTimeMs  float64  `json:"processing_time_ms"`
	DetectionEstimate float64  `json:"ai_detection_estimate"`
	MethodUsed        Method   `json:"method_used"`
	ChangesApplied    []string `json:"changes_applied"`
	WordCountDelta    int      `json:"word_count_change"`

	Mode         Mode   `json:"mode"`
	RewriteError string `json:"rewrite_error,omitempty"`
	RewriteModel string `json:"rewrite_model,omitempty"`
	FromCache    bool   `json:"from_cache,omitempty"`
}

// Stats are process-lifetime counters
type Stats struct {
	Total           int64            `json:"total"`
	ByMethod        map[Method]int64 `json:"by_method"`
	RewriteFailures int64            `json:"rewrite_failures"`
	CacheHits       int64            `json:"cache_hits"`
}
