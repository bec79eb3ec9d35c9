package packer

import "strings"

// EstimateTokens approximates the token cost of text for budget accounting.
// It uses the common ~4 chars/token ratio with a word-count floor, so both
// dense SQL and prose land in the right ballpark. The estimate only has to be
// stable and monotonic in text length; exact tokenizer parity is not needed
// because budgets are set with headroom.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	byChars := (len(text) + 3) / 4
	byWords := len(strings.Fields(text))
	if byWords > byChars {
		return byWords
	}
	return byChars
}
