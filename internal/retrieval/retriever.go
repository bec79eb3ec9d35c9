package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/schema"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// identifierBoost scales the keyword weight when the query names a schema
// table or column verbatim: exact-identifier queries are better served by
// lexical match than by embedding similarity.
const identifierBoost = 2.0

// SnapshotSource hands out the corpus snapshot current at call time.
// *corpus.Manager satisfies it.
type SnapshotSource interface {
	Snapshot() *corpus.Snapshot
}

// CatalogSource hands out the schema catalog current at call time.
// *schema.Manager satisfies it.
type CatalogSource interface {
	Catalog() *schema.Catalog
}

// Config holds retriever tuning.
type Config struct {
	// TopKCandidates is how many candidates each signal contributes before
	// fusion. Must comfortably exceed the largest k a caller may ask for.
	TopKCandidates int
	DefaultK       int
	MaxK           int
}

// Retriever runs hybrid retrieval over the current corpus snapshot. It holds
// no per-call state: every call acquires one snapshot and one catalog and
// works only on those, so calls are safe to run concurrently.
type Retriever struct {
	snapshots SnapshotSource
	catalogs  CatalogSource
	embedder  embedding.Embedder
	cfg       Config
	logger    *zap.Logger
}

// NewRetriever creates a retriever over the given snapshot and catalog sources.
func NewRetriever(snapshots SnapshotSource, catalogs CatalogSource, embedder embedding.Embedder, cfg Config, logger *zap.Logger) *Retriever {
	if cfg.TopKCandidates <= 0 {
		cfg.TopKCandidates = 100
	}
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 5
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = 50
	}
	return &Retriever{
		snapshots: snapshots,
		catalogs:  catalogs,
		embedder:  embedder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Retrieve returns up to req.K hits sorted by non-increasing fused score,
// ties broken by ascending document id. Single-signal failures degrade the
// retrieval instead of failing it: keyword index trouble falls back to pure
// vector ranking and vice versa. Only the loss of both signals is an error.
func (r *Retriever) Retrieve(ctx context.Context, req *models.RetrieveRequest) ([]*models.RetrievalHit, error) {
	start := time.Now()
	if err := req.Validate(r.cfg.DefaultK, r.cfg.MaxK); err != nil {
		return nil, err
	}
	snap := r.snapshots.Snapshot()
	weights := *req.Weights

	var (
		wg         sync.WaitGroup
		vecResults []*vector.Result
		vecErr     error
		kwResults  []*keyword.Result
		kwErr      error
	)

	if weights.VectorWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryVec, err := r.embedder.Embed(ctx, req.Query)
			if err != nil {
				vecErr = fmt.Errorf("embed query: %w", err)
				return
			}
			vecResults, vecErr = snap.VectorIndex().Search(ctx, queryVec, r.cfg.TopKCandidates)
		}()
	}
	if weights.KeywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kwResults, kwErr = snap.KeywordIndex().Search(ctx, req.Query, r.cfg.TopKCandidates)
		}()
	}
	wg.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Degradations: losing one signal is logged and absorbed, not raised.
	if kwErr != nil {
		metrics.RetrievalDegradationsTotal.WithLabelValues("keyword").Inc()
		r.logger.Warn("keyword search unavailable, falling back to vector-only ranking", zap.Error(kwErr))
		kwResults = nil
		weights.VectorWeight, weights.KeywordWeight = weights.VectorWeight+weights.KeywordWeight, 0
	}
	if vecErr != nil {
		if kwErr != nil || weights.KeywordWeight == 0 && kwResults == nil {
			return nil, fmt.Errorf("retrieval lost both signals: %w", vecErr)
		}
		metrics.RetrievalDegradationsTotal.WithLabelValues("vector").Inc()
		r.logger.Warn("vector search unavailable, falling back to keyword-only ranking", zap.Error(vecErr))
		vecResults = nil
		weights.KeywordWeight, weights.VectorWeight = weights.KeywordWeight+weights.VectorWeight, 0
	}

	if weights.AutoAdjust && vecErr == nil && kwErr == nil {
		weights = r.autoAdjust(req.Query, weights, len(kwResults))
	}

	vecScores := make(map[string]float64, len(vecResults))
	for _, res := range vecResults {
		vecScores[res.ID] = res.Score
	}
	kwScores := make(map[string]float64, len(kwResults))
	for _, res := range kwResults {
		kwScores[res.ID] = res.Score
	}

	fused := fuse(vecScores, kwScores, weights)
	if len(fused) > req.K {
		fused = fused[:req.K]
	}

	hits := make([]*models.RetrievalHit, 0, len(fused))
	for _, f := range fused {
		doc, ok := snap.Document(f.ID)
		if !ok {
			// Cannot happen while hits and indexes come from one snapshot.
			r.logger.Error("index returned unknown document id", zap.String("id", f.ID))
			continue
		}
		hits = append(hits, &models.RetrievalHit{
			Document:     doc,
			VectorScore:  f.VectorScore,
			KeywordScore: f.KeywordScore,
			FusedScore:   f.Fused,
		})
	}
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	return hits, nil
}

// autoAdjust rebalances weights from what the signals actually returned:
// zero keyword matches hand the full weight to the vector signal, and a
// query containing an exact schema identifier leans harder on keywords.
func (r *Retriever) autoAdjust(query string, weights models.SearchWeights, keywordMatches int) models.SearchWeights {
	if keywordMatches == 0 {
		r.logger.Debug("no keyword matches, using pure vector ranking")
		weights.VectorWeight += weights.KeywordWeight
		weights.KeywordWeight = 0
		return weights
	}
	catalog := r.catalogs.Catalog()
	if catalog == nil {
		return weights
	}
	for _, token := range utils.Tokenize(query) {
		if catalog.HasIdentifier(token) {
			r.logger.Debug("query names a schema identifier, boosting keyword weight",
				zap.String("token", token))
			weights.KeywordWeight *= identifierBoost
			break
		}
	}
	return weights
}
