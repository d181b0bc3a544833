package rewriter

import (
	"regexp"
	"strings"
)

// Clean strips model artifacts from a rewrite: reasoning blocks, echoed
// instructions and wrapping quotes
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// RE2 has no backreferences, so each tag pair is listed
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// an opened tag with no closing tag means the model was cut off mid-thought
var truncatedThinkingRe = regexp.MustCompile(`(?is)(?:<thinking>|<think>|<reasoning>).*$`)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:(?:certainly|sure|of course)[,.!]?\s+)?here(?:'s| is)(?: the| your)? (?:rewritten |restructured |humanized |revised )?(?:text|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:rewritten|restructured|humanized|revised) (?:text|version)\s*:`),
	regexp.MustCompile(`(?i)^rewrite\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '“' && last == '”') {
		inner := string(runes[1 : n-1])
		// "a" and "b" is not a wrapped string
		if strings.ContainsAny(inner, "\"“”") {
			return text
		}
		return strings.TrimSpace(inner)
	}
	return text
}
