// Package keyword provides the in-memory keyword (BM25) index over the corpus.
package keyword

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Index defines keyword search over corpus documents. An index is filled once
// at snapshot build time and read-only afterwards.
type Index interface {
	Add(ctx context.Context, doc *models.CorpusDocument) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}
