package rules

import (
	"errors"
	"regexp"
)

// Kind selects how a rule produces its replacement text
type Kind string

const (
	// Literal replaces every match with a constant string
	Literal Kind = "literal"
	// Templated expands capture groups (${1}, ${2}, ...) into the replacement
	Templated Kind = "template"
	// RandomChoice draws one template per match from a fixed set of alternatives
	RandomChoice Kind = "choice"
)

// ErrInvalidRule is returned when a rule spec cannot be compiled
var ErrInvalidRule = errors.New("invalid rule")

// Spec is the serializable description of a rule
type Spec struct {
	Name        string   `yaml:"name" json:"name"`
	Pattern     string   `yaml:"pattern" json:"pattern"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Replacement string   `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Choices     []string `yaml:"choices,omitempty" json:"choices,omitempty"`
}

// Rule is a compiled substitution rule
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Kind    Kind

	// Replacement is the literal text or the template, depending on Kind
	Replacement string
	Choices     []string

	// templates holds the parsed Replacement (Templated) or Choices (RandomChoice)
	templates []template
}

// template is a replacement string plus the capture groups it references
type template struct {
	text   string
	groups []int
}

// Table is an ordered list of rules; order is priority
type Table []Rule

// Set groups the rule tables used by the pattern engine and grammar cleanup.
// A Set is read-only once built and safe for concurrent use.
type Set struct {
	Openings     Table
	Words        Table
	FlowBreakers Table
	Inversions   Table
	Grammar      Table
}

// Names returns the rule names of the table in order
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, rule := range t {
		names[i] = rule.Name
	}
	return names
}
