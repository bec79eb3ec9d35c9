package models

// RetrievalHit is one scored retrieval result. Hits are ephemeral: each one
// references a document in the index snapshot that was active when the
// retrieval started, and is fully resolved before the snapshot can be swapped.
type RetrievalHit struct {
	Document     *CorpusDocument `json:"document"`
	VectorScore  float64         `json:"vector_score"`
	KeywordScore float64         `json:"keyword_score"`
	FusedScore   float64         `json:"fused_score"`
}
