// Package models defines core data structures for corpus documents, retrieval
// requests, and validation results.
package models

import "strings"

// CorpusRecord is one raw example query as it appears in the corpus source,
// before embedding and tokenization.
type CorpusRecord struct {
	ID          string   `json:"id,omitempty"`
	Query       string   `json:"query"`
	Description string   `json:"description,omitempty"`
	TablesUsed  []string `json:"tables_used,omitempty"`
	JoinsUsed   []string `json:"joins_used,omitempty"`
}

// CorpusDocument is one indexed example query. Created at index-build time and
// immutable thereafter; a full re-index produces a new set of documents.
type CorpusDocument struct {
	ID          string    `json:"id"`
	QueryText   string    `json:"query_text"`
	Description string    `json:"description,omitempty"`
	TablesUsed  []string  `json:"tables_used,omitempty"`
	JoinsUsed   []string  `json:"joins_used,omitempty"`
	Embedding   []float32 `json:"-"`
	Keywords    []string  `json:"-"`
}

// SearchText returns the text used for keyword indexing: the query itself plus
// its description and table names, so lexical matches on table names rank well.
func (d *CorpusDocument) SearchText() string {
	parts := make([]string, 0, 3)
	if d.Description != "" {
		parts = append(parts, d.Description)
	}
	parts = append(parts, d.QueryText)
	if len(d.TablesUsed) > 0 {
		parts = append(parts, strings.Join(d.TablesUsed, " "))
	}
	return strings.Join(parts, "\n")
}
