// Package sqlcheck validates candidate SQL against a safety blocklist and the
// schema catalog. It does not parse SQL fully; it lexes the text and tracks
// just enough structure (parenthesis depth, WITH-clause scope) to tell base
// table references apart from CTE aliases and subqueries.
package sqlcheck

import "strings"

type tokenKind int

const (
	tokenWord   tokenKind = iota // identifier or keyword, possibly dot-qualified
	tokenNumber                  // numeric literal
	tokenString                  // string literal, contents dropped
	tokenPunct                   // single punctuation rune
)

type token struct {
	kind tokenKind
	text string
}

// isWord reports whether t is a word token equal to upper, case-insensitively.
// upper must already be uppercase.
func (t token) isWord(upper string) bool {
	return t.kind == tokenWord && strings.EqualFold(t.text, upper)
}

func (t token) isPunct(ch byte) bool {
	return t.kind == tokenPunct && len(t.text) == 1 && t.text[0] == ch
}

// lex splits sql into tokens. Comments are dropped. String literals become a
// single tokenString so that keywords inside them cannot be mistaken for
// structure. Backtick- and double-quoted identifiers lose their quotes, and a
// dotted chain of parts (`project.dataset.table`, a."b".c) collapses into one
// qualified word token.
func lex(sql string) []token {
	var toks []token
	i := 0
	n := len(sql)

	for i < n {
		ch := sql[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++

		case ch == '-' && i+1 < n && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				i++
			}

		case ch == '#':
			for i < n && sql[i] != '\n' {
				i++
			}

		case ch == '/' && i+1 < n && sql[i+1] == '*':
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}

		case ch == '\'':
			i = scanString(sql, i)
			toks = append(toks, token{kind: tokenString})

		case ch == '`' || ch == '"' || isWordStart(ch):
			var name string
			name, i = scanQualified(sql, i)
			toks = append(toks, token{kind: tokenWord, text: name})

		case ch >= '0' && ch <= '9':
			j := i
			for j < n && (isWordChar(sql[j]) || sql[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokenNumber, text: sql[i:j]})
			i = j

		default:
			toks = append(toks, token{kind: tokenPunct, text: string(ch)})
			i++
		}
	}
	return toks
}

// scanString consumes a single-quoted literal starting at i, honoring the ''
// escape, and returns the index past the closing quote.
func scanString(sql string, i int) int {
	n := len(sql)
	i++ // opening quote
	for i < n {
		if sql[i] == '\\' && i+1 < n {
			i += 2
			continue
		}
		if sql[i] == '\'' {
			if i+1 < n && sql[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return n
}

// scanQualified consumes one identifier part (bare, backtick- or
// double-quoted) plus any .part continuations and returns the joined name.
// A quoted part may itself contain dots (BigQuery `project.dataset.table`).
func scanQualified(sql string, i int) (string, int) {
	var parts []string
	n := len(sql)
	for {
		switch {
		case i < n && sql[i] == '`':
			j := i + 1
			for j < n && sql[j] != '`' {
				j++
			}
			parts = append(parts, sql[i+1:j])
			if j < n {
				j++
			}
			i = j
		case i < n && sql[i] == '"':
			j := i + 1
			for j < n && sql[j] != '"' {
				j++
			}
			parts = append(parts, sql[i+1:j])
			if j < n {
				j++
			}
			i = j
		case i < n && isWordStart(sql[i]):
			j := i
			for j < n && isWordChar(sql[j]) {
				j++
			}
			parts = append(parts, sql[i:j])
			i = j
		default:
			return strings.Join(parts, "."), i
		}
		// continue only over a dot followed by another identifier part
		if i < n && sql[i] == '.' && i+1 < n &&
			(isWordStart(sql[i+1]) || sql[i+1] == '`' || sql[i+1] == '"') {
			i++
			continue
		}
		return strings.Join(parts, "."), i
	}
}

func isWordStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isWordChar(ch byte) bool {
	return isWordStart(ch) || (ch >= '0' && ch <= '9') || ch == '$'
}
