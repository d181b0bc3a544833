package rules

import (
	"regexp"
	"strings"
	"sync"
)

// OpeningSpecs rewrite the first sentence of a text. Only the first match applies.
var OpeningSpecs = []Spec{
	{Name: "impacts_becoming", Pattern: `^(.*?) impacts are becoming`, Kind: Templated, Replacement: "The world shows increasing signs of ${1} which"},
	{Name: "the_x_of_y_is", Pattern: `^The (.*?) of (.*?) is`, Kind: Templated, Replacement: "${2} requires ${1} because it"},
	{Name: "analyzing_reveals", Pattern: `^Analyzing (.*?) reveals`, Kind: Templated, Replacement: "The analysis of ${1} shows"},
	{Name: "reflecting_on", Pattern: `^Reflecting on (.*?),`, Kind: Templated, Replacement: "My personal ${1} experiences show that"},
	{Name: "companies_increasingly", Pattern: `Companies are increasingly (.*?)ing`, Kind: Templated, Replacement: "Businesses encounter challenges because they ${1}"},
}

// WordSpecs vary vocabulary and phrasing. Every matching rule applies, in order.
var WordSpecs = []Spec{
	{Name: "and", Pattern: `\band\b`, Kind: RandomChoice, Choices: []string{"together with", "as well as", "while", "and"}},
	{Name: "additionally", Pattern: `Additionally,`, Kind: RandomChoice, Choices: []string{"The practice also", "Furthermore,", "Moreover,", "Additionally,"}},
	{Name: "however", Pattern: `However,`, Kind: RandomChoice, Choices: []string{"Yet", "Critics argue that", "Nevertheless,", "However,"}},
	{Name: "furthermore", Pattern: `Furthermore,`, Kind: RandomChoice, Choices: []string{"What's more,", "Beyond that,", "Furthermore,"}},
	{Name: "individuals", Pattern: `\bindividuals\b`, Kind: RandomChoice, Choices: []string{"people", "persons", "individuals"}},
	{Name: "utilize", Pattern: `\butilize\b`, Kind: RandomChoice, Choices: []string{"use", "employ", "utilize"}},
	{Name: "demonstrate", Pattern: `\bdemonstrate\b`, Kind: RandomChoice, Choices: []string{"show", "reveal", "demonstrate"}},
	{Name: "provides_benefits", Pattern: `(\w+) provides (\w+) benefits`, Kind: Templated, Replacement: "${2} benefits come from ${1}"},
	{Name: "helps_to", Pattern: `(\w+) helps (\w+) to (\w+)`, Kind: Templated, Replacement: "${1} enables ${2} to ${3}"},
	{Name: "can_verb", Pattern: `can (\w+) (\w+)`, Kind: Templated, Replacement: "has the ability to ${1} ${2}"},
}

// InversionSpecs restructure common academic constructions. Disabled unless
// the engine is configured with inversions.
var InversionSpecs = []Spec{
	{Name: "research_suggests", Pattern: `Research suggests that (.*?)`, Kind: Templated, Replacement: "Research indicates that people ${1}"},
	{Name: "studies_have_shown", Pattern: `Studies have shown that`, Kind: Literal, Replacement: "Research indicates that"},
	{Name: "it_is_important", Pattern: `It is (crucial|essential|important) to`, Kind: Literal, Replacement: "People need to"},
	{Name: "can_be_done_by", Pattern: `can be (.*?)ed by`, Kind: Templated, Replacement: "enables ${1}ing through"},
	{Name: "is_being_done", Pattern: `is being (.*?)ed`, Kind: Templated, Replacement: "experiences ${1}ing"},
}

// FlowBreakerSpecs add subordinate clauses and emphasis to break uniform rhythm
var FlowBreakerSpecs = []Spec{
	{Name: "outcome_which", Pattern: `(benefits|impacts|effects|changes)([ ,.])`, Kind: Templated, Replacement: "${1} which${2}"},
	{Name: "research_which", Pattern: `(research|studies|analysis)([ ,.])`, Kind: Templated, Replacement: "${1} which${2}"},
	{Name: "sentence_lead", Pattern: `\. ([A-Z])`, Kind: RandomChoice, Choices: []string{". ${1}", ". The ${1}", ". This ${1}", ". Our ${1}"}},
	{Name: "emphasis", Pattern: `(important|crucial|essential)`, Kind: RandomChoice, Choices: []string{"${1}", "very ${1}", "really ${1}"}},
}

// duplicatedPhrases are collapsed when repeated back to back
var duplicatedPhrases = []string{
	"and", "or", "but", "while", "which", "the", "a", "an",
	"also", "very", "really", "as well as", "together with",
}

// GrammarSpecs is the ordered cleanup pass. All rules are case-insensitive
// and the table as a whole is idempotent.
var GrammarSpecs = buildGrammarSpecs()

func buildGrammarSpecs() []Spec {
	specs := []Spec{
		{Name: "trim_edges", Pattern: `^\s+|\s+$`, Kind: Literal, Replacement: ""},
		{Name: "collapse_spaces", Pattern: `[ \t]{2,}`, Kind: Literal, Replacement: " "},
		{Name: "space_before_punctuation", Pattern: `[ \t]+([,.;:!?])`, Kind: Templated, Replacement: "${1}"},
		{Name: "doubled_commas", Pattern: `,(?:[ \t]*,)+`, Kind: Literal, Replacement: ","},
	}

	for _, phrase := range duplicatedPhrases {
		specs = append(specs, dedupeSpec(phrase))
	}

	specs = append(specs,
		Spec{Name: "persons_has", Pattern: `(?i)\bpersons has\b`, Kind: Literal, Replacement: "persons have"},
		Spec{Name: "people_has", Pattern: `(?i)\bpeople has\b`, Kind: Literal, Replacement: "people have"},
		Spec{Name: "individuals_has", Pattern: `(?i)\bindividuals has\b`, Kind: Literal, Replacement: "individuals have"},
		Spec{Name: "people_is", Pattern: `(?i)\bpeople is\b`, Kind: Literal, Replacement: "people are"},
		Spec{Name: "persons_is", Pattern: `(?i)\bpersons is\b`, Kind: Literal, Replacement: "persons are"},
		Spec{Name: "people_was", Pattern: `(?i)\bpeople was\b`, Kind: Literal, Replacement: "people were"},
		Spec{Name: "plural_pronoun_has", Pattern: `(?i)\b(they|we|you) has\b`, Kind: Templated, Replacement: "${1} have"},
		Spec{Name: "singular_pronoun_have_ability", Pattern: `(?i)\b(it|he|she) have the ability\b`, Kind: Templated, Replacement: "${1} has the ability"},
		Spec{Name: "businesses_has", Pattern: `(?i)\b(businesses|companies) has\b`, Kind: Templated, Replacement: "${1} have"},
	)

	return specs
}

// dedupeSpec collapses "phrase phrase ..." into the first occurrence
func dedupeSpec(phrase string) Spec {
	quoted := strings.ReplaceAll(regexp.QuoteMeta(phrase), " ", `\s+`)
	return Spec{
		Name:        "duplicate_" + strings.ReplaceAll(phrase, " ", "_"),
		Pattern:     `(?i)\b(` + quoted + `)(?:\s+` + quoted + `)+\b`,
		Kind:        Templated,
		Replacement: "${1}",
	}
}

var defaultSet = sync.OnceValue(func() *Set {
	return &Set{
		Openings:     mustCompileTable(OpeningSpecs),
		Words:        mustCompileTable(WordSpecs),
		FlowBreakers: mustCompileTable(FlowBreakerSpecs),
		Inversions:   mustCompileTable(InversionSpecs),
		Grammar:      mustCompileTable(GrammarSpecs),
	}
})

// Default returns the built-in rule set. The returned set is shared and must
// not be modified.
func Default() *Set {
	return defaultSet()
}

func mustCompileTable(specs []Spec) Table {
	table := make(Table, 0, len(specs))
	for _, spec := range specs {
		table = append(table, MustCompile(spec))
	}
	return table
}
