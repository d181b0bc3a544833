package grammar

import (
	"github.com/raaihank/llm-humanizer/internal/rules"
	"go.uber.org/zap"
)

// FixChange prefixes every descriptor the cleaner records
const FixChange = "Grammar fix"

// Cleaner repairs the grammatical damage pattern substitution and external
// rewrites tend to leave behind
type Cleaner struct {
	rules  rules.Table
	logger *zap.Logger
}

// New creates a cleaner over an ordered rule table. A nil table uses the
// built-in grammar rules.
func New(table rules.Table, logger *zap.Logger) *Cleaner {
	if table == nil {
		table = rules.Default().Grammar
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{rules: table, logger: logger}
}

// Fix applies every rule in order and records one descriptor per rule that
// changed the text
func (c *Cleaner) Fix(text string) (string, []string) {
	fixed := text
	fixes := make([]string, 0)

	for _, rule := range c.rules {
		updated, matches := rule.Replace(fixed, nil)
		if matches == 0 || updated == fixed {
			continue
		}
		fixed = updated
		fixes = append(fixes, FixChange+": "+rule.Name)

		c.logger.Debug("Grammar rule applied",
			zap.String("rule", rule.Name),
			zap.Int("count", matches),
		)
	}

	return fixed, fixes
}

// Rules returns the names of the cleaner's rules in order
func (c *Cleaner) Rules() []string {
	return c.rules.Names()
}
