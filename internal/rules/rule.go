package rules

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// groupRef matches the ${n} references a template may contain, plus the $$ escape
var groupRef = regexp.MustCompile(`\$\{(\d+)\}|\$\$`)

// Compile validates a spec and compiles it into a rule
func Compile(spec Spec) (Rule, error) {
	if spec.Name == "" {
		return Rule{}, fmt.Errorf("%w: missing name", ErrInvalidRule)
	}

	pattern, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, spec.Name, err)
	}

	rule := Rule{
		Name:        spec.Name,
		Pattern:     pattern,
		Kind:        spec.Kind,
		Replacement: spec.Replacement,
		Choices:     spec.Choices,
	}

	switch spec.Kind {
	case Literal:
	case Templated:
		tmpl, err := parseTemplate(spec.Replacement, pattern.NumSubexp())
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, spec.Name, err)
		}
		rule.templates = []template{tmpl}
	case RandomChoice:
		rule.templates = make([]template, 0, len(spec.Choices))
		for _, choice := range spec.Choices {
			tmpl, err := parseTemplate(choice, pattern.NumSubexp())
			if err != nil {
				return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, spec.Name, err)
			}
			rule.templates = append(rule.templates, tmpl)
		}
	default:
		return Rule{}, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidRule, spec.Name, spec.Kind)
	}

	return rule, nil
}

// MustCompile is like Compile but panics on error. Used for built-in tables.
func MustCompile(spec Spec) Rule {
	rule, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return rule
}

// CompileTable compiles specs in order
func CompileTable(specs []Spec) (Table, error) {
	table := make(Table, 0, len(specs))
	for _, spec := range specs {
		rule, err := Compile(spec)
		if err != nil {
			return nil, err
		}
		table = append(table, rule)
	}
	return table, nil
}

// parseTemplate records the groups a template references and rejects
// references the pattern cannot satisfy
func parseTemplate(text string, numGroups int) (template, error) {
	tmpl := template{text: text}

	for _, m := range groupRef.FindAllStringSubmatch(text, -1) {
		if m[1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n > numGroups {
			return template{}, fmt.Errorf("template %q references group %s, pattern has %d", text, m[1], numGroups)
		}
		tmpl.groups = append(tmpl.groups, n)
	}

	// Bare $name references are ambiguous ("$1ing" is group "1ing"), only ${n} is accepted
	if strings.Contains(groupRef.ReplaceAllString(text, ""), "$") {
		return template{}, fmt.Errorf("template %q contains a bare $ reference, use ${n}", text)
	}

	return tmpl, nil
}

// Matches reports whether the rule matches anywhere in text
func (r *Rule) Matches(text string) bool {
	return r.Pattern.MatchString(text)
}

// Replace substitutes every match in text and returns the new text plus the
// number of matches. RandomChoice rules draw once per match from rng.
func (r *Rule) Replace(text string, rng *rand.Rand) (string, int) {
	matches := r.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(r.produce(text, m, rng))
		last = m[1]
	}
	b.WriteString(text[last:])

	return b.String(), len(matches)
}

// produce builds the replacement for a single match
func (r *Rule) produce(src string, match []int, rng *rand.Rand) string {
	matched := src[match[0]:match[1]]

	switch r.Kind {
	case Literal:
		return r.Replacement
	case Templated:
		if len(r.templates) == 0 {
			return matched
		}
		return r.expand(r.templates[0], src, match)
	case RandomChoice:
		if len(r.templates) == 0 || rng == nil {
			return matched
		}
		return r.expand(r.templates[rng.IntN(len(r.templates))], src, match)
	default:
		return matched
	}
}

// expand fills a template, falling back to the matched text when a referenced
// group did not participate
func (r *Rule) expand(tmpl template, src string, match []int) string {
	for _, g := range tmpl.groups {
		if match[2*g] < 0 {
			return src[match[0]:match[1]]
		}
	}
	return string(r.Pattern.ExpandString(nil, tmpl.text, src, match))
}
