package patterns

import (
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/raaihank/llm-humanizer/internal/rules"
	"go.uber.org/zap"
)

// Change descriptor prefixes
const (
	OpeningChange   = "Opening transformation"
	WordChange      = "Word replacement"
	InversionChange = "Sentence inversion"
	FlowChange      = "Flow breaker"
)

// DefaultFlowProbability is the per-sentence chance of applying a flow breaker
const DefaultFlowProbability = 0.3

// TransformResult is the text produced by a rewrite step plus the ordered
// change log describing it
type TransformResult struct {
	Text    string   `json:"text"`
	Changes []string `json:"changes"`
}

// Options tune the engine
type Options struct {
	FlowProbability float64
	Inversions      bool
}

// Engine applies rule tables sentence by sentence
type Engine struct {
	rules           *rules.Set
	flowProbability float64
	inversions      bool
	logger          *zap.Logger
}

// NewEngine creates a pattern engine over the given rule set. A nil set uses
// the built-in tables.
func NewEngine(set *rules.Set, opts Options, logger *zap.Logger) *Engine {
	if set == nil {
		set = rules.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := opts.FlowProbability
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return &Engine{
		rules:           set,
		flowProbability: p,
		inversions:      opts.Inversions,
		logger:          logger,
	}
}

// Apply transforms text. Random choices and the flow-breaker gate draw from
// rng; empty text makes no draws.
func (e *Engine) Apply(text string, rng *rand.Rand) TransformResult {
	if text == "" {
		return TransformResult{Text: "", Changes: []string{}}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	sentences := SplitSentences(text)
	changes := make([]string, 0)

	for i, sentence := range sentences {
		if i == 0 {
			sentence = applyFirst(e.rules.Openings, sentence, rng, OpeningChange, &changes)
		}

		for _, rule := range e.rules.Words {
			if !rule.Matches(sentence) {
				continue
			}
			sentence, _ = rule.Replace(sentence, rng)
			changes = append(changes, describe(WordChange, rule.Name))
		}

		if e.inversions {
			sentence = applyFirst(e.rules.Inversions, sentence, rng, InversionChange, &changes)
		}

		if rng.Float64() < e.flowProbability {
			sentence = applyFirst(e.rules.FlowBreakers, sentence, rng, FlowChange, &changes)
		}

		sentences[i] = sentence
	}

	e.logger.Debug("Patterns applied",
		zap.Int("sentences", len(sentences)),
		zap.Int("changes", len(changes)),
	)

	return TransformResult{
		Text:    strings.Join(sentences, " "),
		Changes: changes,
	}
}

// applyFirst applies the first matching rule of the table only
func applyFirst(table rules.Table, sentence string, rng *rand.Rand, kind string, changes *[]string) string {
	for _, rule := range table {
		if !rule.Matches(sentence) {
			continue
		}
		sentence, _ = rule.Replace(sentence, rng)
		*changes = append(*changes, describe(kind, rule.Name))
		break
	}
	return sentence
}

func describe(kind, name string) string {
	return kind + ": " + name
}

// SplitSentences splits text after '.', '!' or '?' when followed by
// whitespace. Terminators stay with their sentence and the separating
// whitespace is dropped. Bytes are never re-encoded, so invalid UTF-8
// passes through untouched.
func SplitSentences(text string) []string {
	sentences := make([]string, 0, 4)
	start := 0

	for i := 0; i < len(text); i++ {
		if !isTerminator(text[i]) || !spaceAt(text, i+1) {
			continue
		}
		sentences = append(sentences, text[start:i+1])

		j := i + 1
		for spaceAt(text, j) {
			_, size := utf8.DecodeRuneInString(text[j:])
			j += size
		}
		start = j
		i = j - 1
	}

	return append(sentences, text[start:])
}

// spaceAt reports whether a whitespace rune starts at byte offset i
func spaceAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, size := utf8.DecodeRuneInString(text[i:])
	if r == utf8.RuneError && size <= 1 {
		return false
	}
	return unicode.IsSpace(r)
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
