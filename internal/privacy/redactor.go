package privacy

import (
	"fmt"

	"go.uber.org/zap"
)

// Redactor masks personal data in stored text. A nil Redactor leaves text unchanged.
type Redactor struct {
	rules  []Rule
	logger *zap.Logger
}

// New creates a redactor for the named rules. "all" enables every rule; an
// empty list disables redaction and returns nil.
func New(detectors []string, logger *zap.Logger) (*Redactor, error) {
	if len(detectors) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultRules()
	enabled := make(map[string]bool, len(defaults))
	for _, detector := range detectors {
		if detector == "all" {
			for _, rule := range defaults {
				enabled[rule.Name] = true
			}
			continue
		}

		found := false
		for _, rule := range defaults {
			if rule.Name == detector {
				enabled[rule.Name] = true
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown detector: %s", detector)
		}
	}

	// keep the default order whatever order the config lists them in
	r := &Redactor{logger: logger}
	for _, rule := range defaults {
		if enabled[rule.Name] {
			r.rules = append(r.rules, rule)
		}
	}

	logger.Info("Privacy redactor initialized",
		zap.Int("total_rules", len(defaults)),
		zap.Strings("enabled_rules", r.Names()))

	return r, nil
}

// Redact masks every match of the enabled rules
func (r *Redactor) Redact(text string) Result {
	if r == nil {
		return Result{Text: text, Findings: []Finding{}}
	}

	findings := make([]Finding, 0)
	for _, rule := range r.rules {
		matches := rule.Pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}

		findings = append(findings, Finding{
			EntityType: rule.Name,
			Masked:     rule.Replacement,
			Count:      len(matches),
		})
		text = rule.Pattern.ReplaceAllLiteralString(text, rule.Replacement)

		r.logger.Debug("PII masked",
			zap.String("entity_type", rule.Name),
			zap.Int("count", len(matches)))
	}

	return Result{Text: text, Findings: findings}
}

// Names returns the enabled rule names in application order
func (r *Redactor) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}
