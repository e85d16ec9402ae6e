package llmclient

import "strings"

// CountTokens estimates the token count of text as ceil(len/4).
// The heuristic is deliberately provider-agnostic: exactness does not
// matter for budgeting, monotonicity with input length does.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
