// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"strings"
	"unicode"
)

// Tokenize splits s into lowercase word tokens. A token is a run of letters,
// digits, or underscores, so SQL identifiers like "order_items" survive as one token.
func Tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// TokenSet returns the distinct tokens of s as a set.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{}, 16)
	for _, tok := range Tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}
