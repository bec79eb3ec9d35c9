package corpus

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Snapshot is one immutable version of the corpus index: the documents, a
// vector index over their embeddings, and a keyword index over their text.
// A snapshot is fully built before anyone can see it and is never mutated,
// so any number of retrievals can read it concurrently without locks.
type Snapshot struct {
	version    string
	docs       map[string]*models.CorpusDocument
	vectorIdx  vector.Index
	keywordIdx keyword.Index
	dimensions int
}

// BuildSnapshot assembles a snapshot from documents. Every document must
// carry an embedding of the same dimension. Keyword tokens are derived here
// when the document does not already carry them.
func BuildSnapshot(ctx context.Context, version string, docs []*models.CorpusDocument) (*Snapshot, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}
	dims := len(docs[0].Embedding)
	if dims == 0 {
		return nil, fmt.Errorf("document %s has no embedding", docs[0].ID)
	}

	vecIdx, err := vector.NewMemoryIndex(dims)
	if err != nil {
		return nil, err
	}
	kwIdx, err := keyword.NewBleveIndex()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.CorpusDocument, len(docs))
	ids := make([]string, 0, len(docs))
	vecs := make([][]float32, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("document with empty id in corpus")
		}
		if _, dup := byID[doc.ID]; dup {
			return nil, fmt.Errorf("duplicate document id %s", doc.ID)
		}
		if len(doc.Embedding) != dims {
			return nil, fmt.Errorf("document %s embedding dimension %d, want %d", doc.ID, len(doc.Embedding), dims)
		}
		if len(doc.Keywords) == 0 {
			doc.Keywords = utils.Tokenize(doc.SearchText())
		}
		byID[doc.ID] = doc
		ids = append(ids, doc.ID)
		vecs = append(vecs, doc.Embedding)
		if err := kwIdx.Add(ctx, doc); err != nil {
			_ = kwIdx.Close()
			return nil, fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}
	if err := vecIdx.Add(ctx, ids, vecs); err != nil {
		_ = kwIdx.Close()
		return nil, err
	}

	return &Snapshot{
		version:    version,
		docs:       byID,
		vectorIdx:  vecIdx,
		keywordIdx: kwIdx,
		dimensions: dims,
	}, nil
}

// Version returns the snapshot version.
func (s *Snapshot) Version() string { return s.version }

// Size returns the number of documents.
func (s *Snapshot) Size() int { return len(s.docs) }

// Dimensions returns the embedding dimension.
func (s *Snapshot) Dimensions() int { return s.dimensions }

// Document resolves a document id within this snapshot.
func (s *Snapshot) Document(id string) (*models.CorpusDocument, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

// VectorIndex returns the snapshot's vector index.
func (s *Snapshot) VectorIndex() vector.Index { return s.vectorIdx }

// KeywordIndex returns the snapshot's keyword index.
func (s *Snapshot) KeywordIndex() keyword.Index { return s.keywordIdx }

// Close releases index resources. Only the manager calls this, and only for
// snapshots that never became current.
func (s *Snapshot) Close() error {
	return s.keywordIdx.Close()
}
