// Package keyword provides the Bleve implementation of Index.
package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kotae/internal/models"
)

// bleveDoc is the shape handed to Bleve for indexing.
type bleveDoc struct {
	Query       string `json:"query"`
	Description string `json:"description"`
	Tables      string `json:"tables"`
}

// BleveIndex implements Index with an in-memory Bleve index. The corpus
// snapshot owns the index: it is built in one pass and never written again,
// so reads need no coordination.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates an empty in-memory index.
// The standard analyzer (lowercase + tokenize, no stemming) keeps SQL
// identifiers intact: "orders" must not stem to "order" and silently
// match a different table name.
func NewBleveIndex() (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("query", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("tables", textFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Add indexes one corpus document.
func (b *BleveIndex) Add(ctx context.Context, doc *models.CorpusDocument) error {
	return b.index.Index(doc.ID, bleveDoc{
		Query:       doc.QueryText,
		Description: doc.Description,
		Tables:      strings.Join(doc.TablesUsed, " "),
	})
}

// Search runs a match query over all fields and returns up to limit hits.
// Ties on score are broken by document ID so the ranking is reproducible.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.SortBy([]string{"-_score", "_id"})

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
