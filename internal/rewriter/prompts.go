package rewriter

import "fmt"

// SystemPrompt steers the model toward human writing patterns
const SystemPrompt = `You are rewriting text to match natural human writing patterns. Based on extensive research comparing AI and human writing:

CRITICAL PATTERNS TO APPLY:

1. OPENING TRANSFORMATIONS (Most Important):
   - "X impacts are becoming" → "The world shows increasing signs of X which"
   - "The Y of Z is" → "Z requires Y because it"
   - Never start with the original subject

2. STRUCTURAL CHANGES:
   - Break logical flow with "which" clauses
   - Mix sentence lengths dramatically
   - Add conversational interruptions

3. WORD-LEVEL CHANGES:
   - "and" → "together with", "as well as"
   - "individuals" → "people"
   - Scramble word order: "provides benefits" → "benefits come from"

4. HUMAN IMPERFECTIONS:
   - Slightly awkward but clear constructions
   - Mix formal and casual vocabulary
   - Add redundant clarifications

GOAL: Make it sound like someone wrote this quickly without editing, maintaining meaning but breaking AI patterns.`

const aggressivePrompt = `Completely restructure this text using ALL these techniques:

1. MANDATORY: Change the opening completely (don't start with the subject)
2. Add 2-3 "which" clauses that interrupt ideas
3. Replace every "and" with different conjunctions
4. Scramble at least 2 word orders
5. Make 1-2 sentences slightly awkward but understandable
6. Mix formal words with casual expressions

Original: %s

Rewrite applying ALL changes. The opening MUST be completely different.`

const lightPrompt = `Lightly restructure for human-like writing:

1. Change just the opening phrase
2. Add one "which" clause
3. Use "together with" or "as well as" once
4. Keep the overall meaning intact

Original: %s

Apply these specific changes naturally.`

// BuildPrompt renders the user prompt for a profile
func BuildPrompt(text string, aggressive bool) string {
	if aggressive {
		return fmt.Sprintf(aggressivePrompt, text)
	}
	return fmt.Sprintf(lightPrompt, text)
}
