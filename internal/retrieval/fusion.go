// Package retrieval provides hybrid (vector + keyword) retrieval over the
// corpus snapshot: score normalization, weighted fusion, and near-duplicate
// collapsing.
package retrieval

import (
	"sort"

	"github.com/hyperjump/kotae/internal/models"
)

// fusedScore holds the per-signal and combined scores for one document.
type fusedScore struct {
	ID           string
	VectorScore  float64
	KeywordScore float64
	Fused        float64
}

// normalizeMinMax rescales scores to [0,1]. The two signals come from
// different metrics (cosine similarity vs BM25), so fusing raw values would
// let one signal's scale dominate regardless of weights. When all scores are
// equal every match gets 1.0: it matched just as well as any other.
func normalizeMinMax(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return map[string]float64{}
	}
	var min, max float64
	first := true
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make(map[string]float64, len(scores))
	span := max - min
	for id, s := range scores {
		if span == 0 {
			out[id] = 1.0
		} else {
			out[id] = (s - min) / span
		}
	}
	return out
}

// fuse combines normalized vector and keyword scores into one ranking:
// fused = vectorWeight*norm(vector) + keywordWeight*norm(keyword).
// The result is sorted by descending fused score; exact ties are ordered by
// ascending document id so repeated calls produce identical rankings.
func fuse(vectorScores, keywordScores map[string]float64, weights models.SearchWeights) []*fusedScore {
	vecNorm := normalizeMinMax(vectorScores)
	kwNorm := normalizeMinMax(keywordScores)

	byID := make(map[string]*fusedScore, len(vecNorm)+len(kwNorm))
	for id, s := range vecNorm {
		byID[id] = &fusedScore{ID: id, VectorScore: s}
	}
	for id, s := range kwNorm {
		if f, ok := byID[id]; ok {
			f.KeywordScore = s
		} else {
			byID[id] = &fusedScore{ID: id, KeywordScore: s}
		}
	}

	out := make([]*fusedScore, 0, len(byID))
	for _, f := range byID {
		f.Fused = weights.VectorWeight*f.VectorScore + weights.KeywordWeight*f.KeywordScore
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		return out[i].ID < out[j].ID
	})
	return out
}
