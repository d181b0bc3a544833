package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a rules file. Omitted tables keep the
// built-in defaults.
type File struct {
	Openings     []Spec `yaml:"openings"`
	Words        []Spec `yaml:"words"`
	FlowBreakers []Spec `yaml:"flow_breakers"`
	Inversions   []Spec `yaml:"inversions"`
	Grammar      []Spec `yaml:"grammar"`
}

// LoadFromYAML reads a rules file and compiles it over the default set
func LoadFromYAML(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", path, err)
	}
	return set, nil
}

// Parse compiles YAML rule tables over the default set
func Parse(data []byte) (*Set, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	base := Default()
	set := &Set{
		Openings:     base.Openings,
		Words:        base.Words,
		FlowBreakers: base.FlowBreakers,
		Inversions:   base.Inversions,
		Grammar:      base.Grammar,
	}

	tables := []struct {
		name  string
		specs []Spec
		dst   *Table
	}{
		{"openings", file.Openings, &set.Openings},
		{"words", file.Words, &set.Words},
		{"flow_breakers", file.FlowBreakers, &set.FlowBreakers},
		{"inversions", file.Inversions, &set.Inversions},
		{"grammar", file.Grammar, &set.Grammar},
	}

	for _, t := range tables {
		if t.specs == nil {
			continue
		}
		table, err := CompileTable(t.specs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		*t.dst = table
	}

	return set, nil
}

// Export renders the built-in specs as a rules file, a starting point for
// custom tables
func Export() ([]byte, error) {
	return yaml.Marshal(File{
		Openings:     OpeningSpecs,
		Words:        WordSpecs,
		FlowBreakers: FlowBreakerSpecs,
		Inversions:   InversionSpecs,
		Grammar:      GrammarSpecs,
	})
}
