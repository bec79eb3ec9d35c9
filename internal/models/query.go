package models

import "fmt"

// SearchWeights controls how the vector and keyword signals are combined.
// Weights are non-negative and need not sum to one; they scale normalized
// scores. Immutable within a single retrieval.
type SearchWeights struct {
	VectorWeight  float64 `json:"vector_weight"`
	KeywordWeight float64 `json:"keyword_weight"`
	AutoAdjust    bool    `json:"auto_adjust"`
}

// DefaultWeights returns the balanced default weighting with auto-adjust on.
func DefaultWeights() SearchWeights {
	return SearchWeights{VectorWeight: 0.7, KeywordWeight: 0.3, AutoAdjust: true}
}

// Validate rejects negative or all-zero weights.
func (w SearchWeights) Validate() error {
	if w.VectorWeight < 0 || w.KeywordWeight < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if w.VectorWeight == 0 && w.KeywordWeight == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}
	return nil
}

// RetrieveRequest is a retrieval call: the (possibly rewritten) query text,
// the maximum number of hits, and the fusion weights.
type RetrieveRequest struct {
	Query   string         `json:"query"`
	K       int            `json:"k,omitempty"`
	Weights *SearchWeights `json:"weights,omitempty"`
}

// Validate ensures the request has a query and normalizes K and weights.
// K at or below zero gets the default; K above the cap is clamped.
func (r *RetrieveRequest) Validate(defaultK, maxK int) error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.K <= 0 {
		r.K = defaultK
	}
	if maxK > 0 && r.K > maxK {
		r.K = maxK
	}
	if r.Weights == nil {
		w := DefaultWeights()
		r.Weights = &w
	}
	return r.Weights.Validate()
}
