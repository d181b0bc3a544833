package privacy

import "regexp"

// Rule masks one kind of personal data
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Finding counts the matches of one rule
type Finding struct {
	EntityType string `json:"entity_type"`
	Masked     string `json:"masked"`
	Count      int    `json:"count"`
}

// Result contains the result of redacting a text
type Result struct {
	Text     string    `json:"text"`
	Findings []Finding `json:"findings"`
}

// DefaultRules returns the built-in rules in application order. Card numbers
// run before phone numbers so long digit runs are not half-masked.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "email",
			Pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Replacement: "[EMAIL]",
		},
		{
			Name:        "api_key",
			Pattern:     regexp.MustCompile(`\b(?:sk|pk|rk)-[A-Za-z0-9_-]{16,}\b|\bAIza[0-9A-Za-z_-]{35}\b`),
			Replacement: "[API_KEY]",
		},
		{
			Name:        "credit_card",
			Pattern:     regexp.MustCompile(`\b\d(?:[ -]?\d){12,15}\b`),
			Replacement: "[CREDIT_CARD]",
		},
		{
			Name:        "ssn",
			Pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Replacement: "[SSN]",
		},
		{
			Name:        "phone",
			Pattern:     regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?\(?\b\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`),
			Replacement: "[PHONE]",
		},
		{
			Name:        "ip_address",
			Pattern:     regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`),
			Replacement: "[IP_ADDRESS]",
		},
	}
}
