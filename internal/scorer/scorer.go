package scorer

import (
	"math"
	"regexp"
	"strings"
)

var (
	whichPattern       = regexp.MustCompile(`\bwhich\b`)
	conjunctionPattern = regexp.MustCompile(`together with|as well as`)
	enablingPattern    = regexp.MustCompile(`enables \w+ to|benefits come from`)
	peoplePattern      = regexp.MustCompile(`people|persons`)
	adverbLeadPattern  = regexp.MustCompile(`[.!?]\s+[A-Z]\w+\s+\w+ly\s+`)
	formalPattern      = regexp.MustCompile(`utilize|implement|demonstrate|facilitate`)
	sentenceEndPattern = regexp.MustCompile(`[.!?]+`)
	variedConjunctions = regexp.MustCompile(`\b(and|together with|as well as|while)\b`)
	templatedOpening   = regexp.MustCompile(`^(The|An?|This|It) \w+ (is|are|was|were)`)
	naturalOpenerWords = map[string]bool{"The": true, "A": true, "An": true, "I": true, "We": true, "My": true}
)

// Weights are the penalties subtracted from the base score
type Weights struct {
	Base              float64 `yaml:"base" mapstructure:"base" json:"base"`
	Which             float64 `yaml:"which" mapstructure:"which" json:"which"`
	Conjunction       float64 `yaml:"conjunction" mapstructure:"conjunction" json:"conjunction"`
	UnnaturalOpening  float64 `yaml:"unnatural_opening" mapstructure:"unnatural_opening" json:"unnatural_opening"`
	EnablingPhrase    float64 `yaml:"enabling_phrase" mapstructure:"enabling_phrase" json:"enabling_phrase"`
	PeopleMention     float64 `yaml:"people_mention" mapstructure:"people_mention" json:"people_mention"`
	LongSentence      float64 `yaml:"long_sentence" mapstructure:"long_sentence" json:"long_sentence"`
	LongSentenceWords int     `yaml:"long_sentence_words" mapstructure:"long_sentence_words" json:"long_sentence_words"`
}

// DefaultWeights returns the stock penalty set
func DefaultWeights() Weights {
	return Weights{
		Base:              100,
		Which:             15,
		Conjunction:       10,
		UnnaturalOpening:  20,
		EnablingPhrase:    10,
		PeopleMention:     10,
		LongSentence:      15,
		LongSentenceWords: 25,
	}
}

// Indicators are the per-signal results behind an analysis
type Indicators struct {
	HasWhichClauses    bool `json:"has_which_clauses"`
	VariedConjunctions bool `json:"varied_conjunctions"`
	NaturalOpening     bool `json:"natural_opening"`
	SentenceVariety    bool `json:"sentence_variety"`
}

// Analysis is a read-only report on a text
type Analysis struct {
	Text              string     `json:"text"`
	DetectionEstimate float64    `json:"ai_detection_estimate"`
	NeedsEnhancement  bool       `json:"needs_enhancement"`
	Indicators        Indicators `json:"indicators"`
}

// Scorer estimates how machine-like a text reads. It holds no mutable state.
type Scorer struct {
	weights Weights
}

// New creates a scorer with the given weights
func New(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Weights returns the scorer's penalty set
func (s *Scorer) Weights() Weights {
	return s.weights
}

// DetectionEstimate returns a score in [0, 100]; higher reads more machine-like
func (s *Scorer) DetectionEstimate(text string) float64 {
	w := s.weights
	score := w.Base

	score -= float64(len(whichPattern.FindAllStringIndex(text, -1))) * w.Which
	score -= float64(len(conjunctionPattern.FindAllStringIndex(text, -1))) * w.Conjunction

	if !naturalOpenerWords[firstWord(text)] {
		score -= w.UnnaturalOpening
	}

	score -= float64(len(enablingPattern.FindAllStringIndex(text, -1))) * w.EnablingPhrase

	if peoplePattern.MatchString(text) {
		score -= w.PeopleMention
	}

	for _, sentence := range strings.Split(text, ".") {
		if len(strings.Fields(sentence)) > w.LongSentenceWords {
			score -= w.LongSentence
			break
		}
	}

	return math.Max(0, math.Min(100, score))
}

// NeedsEnhancement reports whether at least two machine-writing indicators fire
func (s *Scorer) NeedsEnhancement(text string) bool {
	count := 0
	if len(adverbLeadPattern.FindAllStringIndex(text, -1)) > 1 {
		count++
	}
	if RepetitiveStructure(text) {
		count++
	}
	if !strings.Contains(text, "which") {
		count++
	}
	if len(formalPattern.FindAllStringIndex(text, -1)) > 2 {
		count++
	}
	return count >= 2
}

// Analyze scores text without modifying it
func (s *Scorer) Analyze(text string) Analysis {
	conjunctions := make(map[string]bool)
	for _, m := range variedConjunctions.FindAllString(text, -1) {
		conjunctions[m] = true
	}

	lengths := make(map[int]bool)
	for _, sentence := range strings.Split(text, ".") {
		lengths[len(strings.Fields(sentence))] = true
	}

	return Analysis{
		Text:              text,
		DetectionEstimate: s.DetectionEstimate(text),
		NeedsEnhancement:  s.NeedsEnhancement(text),
		Indicators: Indicators{
			HasWhichClauses:    strings.Contains(text, "which"),
			VariedConjunctions: len(conjunctions) > 1,
			NaturalOpening:     !templatedOpening.MatchString(text),
			SentenceVariety:    len(lengths) > 2,
		},
	}
}

// RepetitiveStructure reports whether the first three sentences mostly share
// the same three-word opener. Texts with fewer than three sentences are never
// repetitive.
func RepetitiveStructure(text string) bool {
	sentences := make([]string, 0, 3)
	for _, fragment := range sentenceEndPattern.Split(text, -1) {
		if strings.TrimSpace(fragment) != "" {
			sentences = append(sentences, fragment)
		}
	}
	if len(sentences) < 3 {
		return false
	}

	openers := make(map[string]bool)
	for _, sentence := range sentences[:3] {
		words := strings.Fields(sentence)
		if len(words) > 3 {
			words = words[:3]
		}
		openers[strings.Join(words, " ")] = true
	}

	return float64(len(openers)) < 3*0.7
}

// firstWord returns the first whitespace-delimited token with surrounding
// punctuation stripped
func firstWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[0], func(r rune) bool {
		return strings.ContainsRune(`"'“”‘’([{,.;:!?`, r)
	})
}
