package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// embedBatchSize bounds how many texts go into one embedding request.
const embedBatchSize = 64

// LoadRecords reads the corpus source file: either a JSON array of records or
// JSON Lines, one record per line.
func LoadRecords(path string) ([]models.CorpusRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus source: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("corpus source %s is empty", path)
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []models.CorpusRecord
		if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
			return nil, fmt.Errorf("parse corpus source: %w", err)
		}
		return records, nil
	}

	var records []models.CorpusRecord
	for i, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec models.CorpusRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse corpus source line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Ingest embeds records and replaces the store contents. This is the offline
// index build; it is the only writer of the store. Records without an id get
// a generated one. Returns the number of documents written.
func Ingest(ctx context.Context, records []models.CorpusRecord, embedder embedding.Embedder, store *Store, logger *zap.Logger) (int, error) {
	docs := make([]*models.CorpusDocument, 0, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.Query) == "" {
			logger.Warn("skipping corpus record with empty query", zap.Int("index", i))
			continue
		}
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc := &models.CorpusDocument{
			ID:          id,
			QueryText:   rec.Query,
			Description: rec.Description,
			TablesUsed:  rec.TablesUsed,
			JoinsUsed:   rec.JoinsUsed,
		}
		doc.Keywords = utils.Tokenize(doc.SearchText())
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("no usable records in corpus source")
	}

	for start := 0; start < len(docs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]
		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.SearchText()
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed corpus batch %d: %w", start/embedBatchSize, err)
		}
		for i, doc := range batch {
			doc.Embedding = vecs[i]
		}
		logger.Debug("embedded corpus batch",
			zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(docs)))
	}

	if err := store.ReplaceAll(ctx, docs); err != nil {
		return 0, fmt.Errorf("write corpus store: %w", err)
	}
	return len(docs), nil
}
