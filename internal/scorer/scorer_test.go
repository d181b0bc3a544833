package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectionEstimate(t *testing.T) {
	s := New(DefaultWeights())

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"NaturalOpener", "The cat sat.", 100},
		{"UnnaturalOpener", "Cats sat.", 80},
		{"QuotedOpener", `"We" said nothing.`, 100},
		{"Empty", "", 80},
		{"Penalties", "We see benefits come from people which grow.", 65},
		{"ConjunctionPhrases", "I ran together with Sam as well as Kim.", 80},
		{"WhichIsAWord", "The whichever option works.", 100},
		{"ClampedAtZero", strings.Repeat("which ", 10), 0},
		{"LongSentence", "The " + strings.Repeat("word ", 30) + "end.", 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.DetectionEstimate(tt.text))
		})
	}

	t.Run("Bounds", func(t *testing.T) {
		samples := []string{
			"",
			"   ",
			"which which which together with as well as people persons",
			"The analysis shows improvement.",
			strings.Repeat("enables them to ", 20),
		}
		for _, text := range samples {
			score := s.DetectionEstimate(text)
			if score < 0 || score > 100 {
				t.Errorf("score %f out of bounds for %q", score, text)
			}
		}
	})

	t.Run("CustomWeights", func(t *testing.T) {
		w := DefaultWeights()
		w.UnnaturalOpening = 50
		assert.Equal(t, 50.0, New(w).DetectionEstimate("Cats sat."))
	})
}

func TestNeedsEnhancement(t *testing.T) {
	s := New(DefaultWeights())

	t.Run("SingleIndicator", func(t *testing.T) {
		assert.False(t, s.NeedsEnhancement("Cats sleep."))
	})

	t.Run("FormalAndNoWhich", func(t *testing.T) {
		text := "We utilize tools. We implement plans. We demonstrate results. We facilitate growth."
		assert.True(t, s.NeedsEnhancement(text))
	})

	t.Run("WhichSuppressesIndicator", func(t *testing.T) {
		text := "We utilize tools which help. We implement plans."
		assert.False(t, s.NeedsEnhancement(text))
	})

	t.Run("AdverbLeads", func(t *testing.T) {
		text := "It works. Teams quickly adapt to it. Leaders slowly follow them."
		assert.True(t, s.NeedsEnhancement(text))
	})
}

func TestRepetitiveStructure(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"TooFewSentences", "The results are good. The results are bad.", false},
		{"AllSame", "The results are good. The results are bad. The results are mixed.", true},
		{"TwoDistinct", "The results are good. The results are bad. Nobody knows why.", true},
		{"AllDistinct", "Rain fell today. Wind blew hard. Snow came later.", false},
		{"TrailingTerminatorIgnored", "A b c. A b c!! ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepetitiveStructure(tt.text))
		})
	}
}

func TestAnalyze(t *testing.T) {
	s := New(DefaultWeights())

	analysis := s.Analyze("The cat is here. It sat and slept while purring.")
	assert.Equal(t, "The cat is here. It sat and slept while purring.", analysis.Text)
	assert.Equal(t, s.DetectionEstimate(analysis.Text), analysis.DetectionEstimate)
	assert.False(t, analysis.Indicators.HasWhichClauses)
	assert.True(t, analysis.Indicators.VariedConjunctions)
	assert.False(t, analysis.Indicators.NaturalOpening)
	assert.True(t, analysis.Indicators.SentenceVariety)
}
