// Package vector provides the in-memory vector index used by the corpus snapshot.
package vector

import "context"

// Index defines vector storage and similarity search over corpus documents.
// An index is filled once at snapshot build time and read-only afterwards.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Size() int
}

// Result is a single vector search hit (ID is a corpus document ID).
type Result struct {
	ID    string
	Score float64 // inner product; cosine similarity for unit-normalized vectors
}
