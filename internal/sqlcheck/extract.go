package sqlcheck

import (
	"sort"
	"strings"
)

// extraction is what the scanner pulls out of one SQL text.
type extraction struct {
	// Tables are base table references from FROM/JOIN clauses, in order of
	// first appearance, original spelling, with CTE aliases excluded.
	Tables []string
	// CTEs are the WITH-clause names defined in the text, lowercased.
	CTEs []string
	// Columns are best-effort column candidates (last path segment of
	// select-list and predicate identifiers). Unreliable by construction;
	// callers must treat misses as warnings only.
	Columns []string
}

// clause keywords that terminate a FROM list or cannot be a table alias.
var clauseWords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "GROUP": {}, "ORDER": {}, "BY": {},
	"HAVING": {}, "LIMIT": {}, "OFFSET": {}, "UNION": {}, "INTERSECT": {},
	"EXCEPT": {}, "JOIN": {}, "INNER": {}, "LEFT": {}, "RIGHT": {}, "FULL": {},
	"CROSS": {}, "OUTER": {}, "ON": {}, "USING": {}, "AS": {}, "WITH": {},
	"QUALIFY": {}, "WINDOW": {}, "FETCH": {}, "ALL": {}, "DISTINCT": {},
	"AND": {}, "OR": {}, "NOT": {}, "IN": {}, "EXISTS": {}, "BETWEEN": {},
	"LIKE": {}, "IS": {}, "NULL": {}, "CASE": {}, "WHEN": {}, "THEN": {},
	"ELSE": {}, "END": {}, "ASC": {}, "DESC": {}, "NULLS": {}, "FIRST": {},
	"LAST": {}, "OVER": {}, "PARTITION": {}, "INTERVAL": {}, "TRUE": {},
	"FALSE": {}, "RECURSIVE": {},
}

func isClauseWord(s string) bool {
	_, ok := clauseWords[strings.ToUpper(s)]
	return ok
}

// extractIdentifiers scans sql and returns its table references, CTE names
// and column candidates. It never fails: on malformed input it returns
// whatever it extracted before losing the structure.
func extractIdentifiers(sql string) extraction {
	s := &scanner{
		toks:      lex(sql),
		ctes:      make(map[string]struct{}),
		tableSeen: make(map[string]struct{}),
		colSeen:   make(map[string]struct{}),
	}
	s.scanStatement()
	return extraction{Tables: s.tables, CTEs: sortedKeys(s.ctes), Columns: s.columns}
}

type scanner struct {
	toks []token
	i    int

	ctes      map[string]struct{}
	tables    []string
	tableSeen map[string]struct{}
	columns   []string
	colSeen   map[string]struct{}
}

func (s *scanner) cur() (token, bool) {
	if s.i >= len(s.toks) {
		return token{}, false
	}
	return s.toks[s.i], true
}

// scanStatement walks tokens until the end of input or an unmatched closing
// parenthesis, which it leaves for the caller to consume.
func (s *scanner) scanStatement() {
	for {
		t, ok := s.cur()
		if !ok {
			return
		}
		switch {
		case t.isPunct(')'):
			return
		case t.isPunct('('):
			s.i++
			s.scanStatement()
			s.consumePunct(')')
		case t.isWord("WITH"):
			s.scanWithClause()
		case t.isWord("FROM"):
			s.i++
			s.scanTableList()
		case t.isWord("JOIN"):
			s.i++
			s.scanTableRef()
		case t.kind == tokenWord:
			s.maybeColumn(t)
			s.i++
		default:
			s.i++
		}
	}
}

// scanWithClause registers each `name AS ( body )` of a WITH clause and scans
// every body so table references inside CTEs are extracted too. CTE names
// stay registered for the rest of the statement; over-scoping is deliberate,
// a name can only be shadowed, never turned back into a base table.
func (s *scanner) scanWithClause() {
	s.i++ // WITH
	if t, ok := s.cur(); ok && t.isWord("RECURSIVE") {
		s.i++
	}
	for {
		t, ok := s.cur()
		if !ok || t.kind != tokenWord || isClauseWord(t.text) {
			return
		}
		s.ctes[strings.ToLower(t.text)] = struct{}{}
		s.i++

		// optional explicit column list: name (a, b) AS (...)
		if t, ok := s.cur(); ok && t.isPunct('(') {
			s.skipBalanced()
		}
		if t, ok := s.cur(); !ok || !t.isWord("AS") {
			return
		}
		s.i++
		if t, ok := s.cur(); ok && t.isPunct('(') {
			s.i++
			s.scanStatement()
			s.consumePunct(')')
		}
		if t, ok := s.cur(); ok && t.isPunct(',') {
			s.i++
			continue
		}
		return
	}
}

// scanTableList handles the comma-separated relations after FROM.
func (s *scanner) scanTableList() {
	for {
		if !s.scanTableRef() {
			return
		}
		if t, ok := s.cur(); ok && t.isPunct(',') {
			s.i++
			continue
		}
		return
	}
}

// scanTableRef consumes one relation: a subquery, a table function call, or a
// base table name with an optional alias. Only the base table case records a
// table reference. Returns false if the next token cannot start a relation.
func (s *scanner) scanTableRef() bool {
	t, ok := s.cur()
	if !ok {
		return false
	}
	switch {
	case t.isPunct('('):
		s.i++
		s.scanStatement()
		s.consumePunct(')')
	case t.kind == tokenWord && !isClauseWord(t.text):
		name := t.text
		s.i++
		if nxt, ok := s.cur(); ok && nxt.isPunct('(') {
			// table function such as UNNEST(...); scan args, record nothing
			s.i++
			s.scanStatement()
			s.consumePunct(')')
		} else {
			s.addTable(name)
		}
	default:
		return false
	}
	s.skipAlias()
	return true
}

// skipAlias consumes `AS alias` or a bare alias word after a relation.
func (s *scanner) skipAlias() {
	if t, ok := s.cur(); ok && t.isWord("AS") {
		s.i++
	}
	if t, ok := s.cur(); ok && t.kind == tokenWord && !isClauseWord(t.text) {
		s.i++
	}
}

func (s *scanner) addTable(name string) {
	key := strings.ToLower(name)
	if _, ok := s.ctes[key]; ok {
		return
	}
	if _, ok := s.tableSeen[key]; ok {
		return
	}
	s.tableSeen[key] = struct{}{}
	s.tables = append(s.tables, name)
}

// maybeColumn records t as a column candidate unless it reads as a keyword or
// a function call. Qualified references keep only the last path segment; the
// prefix is almost always a table alias the scanner cannot resolve.
func (s *scanner) maybeColumn(t token) {
	if isClauseWord(t.text) {
		return
	}
	if nxt := s.peek(1); nxt != nil && nxt.isPunct('(') {
		return // function name
	}
	if s.i > 0 && s.toks[s.i-1].isWord("AS") {
		return // select-list alias, not a real column
	}
	name := t.text
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	key := strings.ToLower(name)
	if key == "" || key == "*" {
		return
	}
	if _, ok := s.colSeen[key]; ok {
		return
	}
	s.colSeen[key] = struct{}{}
	s.columns = append(s.columns, name)
}

func (s *scanner) peek(n int) *token {
	if s.i+n >= len(s.toks) {
		return nil
	}
	return &s.toks[s.i+n]
}

func (s *scanner) consumePunct(ch byte) {
	if t, ok := s.cur(); ok && t.isPunct(ch) {
		s.i++
	}
}

func (s *scanner) skipBalanced() {
	depth := 0
	for {
		t, ok := s.cur()
		if !ok {
			return
		}
		if t.isPunct('(') {
			depth++
		} else if t.isPunct(')') {
			depth--
			if depth == 0 {
				s.i++
				return
			}
		}
		s.i++
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
