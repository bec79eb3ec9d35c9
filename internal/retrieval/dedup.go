package retrieval

import (
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// DefaultDedupThreshold is the Jaccard similarity at or above which two
// example queries are considered near-duplicates.
const DefaultDedupThreshold = 0.8

// Deduplicate collapses near-duplicate hits. Similarity is Jaccard over the
// token sets of the underlying query texts; any pair at or above threshold
// belongs to one cluster and only its highest-fused-score member survives.
//
// Hits must arrive sorted by non-increasing fused score (as Retrieve returns
// them): the scan keeps a hit only if it is not a near-duplicate of an
// already kept one, which under that ordering retains exactly the best
// member of every cluster and preserves order. Survivors are pairwise below
// threshold, so running Deduplicate on its own output changes nothing.
func Deduplicate(hits []*models.RetrievalHit, threshold float64) []*models.RetrievalHit {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDedupThreshold
	}
	if len(hits) <= 1 {
		return hits
	}

	type kept struct {
		hit    *models.RetrievalHit
		tokens map[string]struct{}
	}
	survivors := make([]kept, 0, len(hits))
	for _, hit := range hits {
		tokens := utils.TokenSet(hit.Document.QueryText)
		dup := false
		for _, k := range survivors {
			if utils.Jaccard(tokens, k.tokens) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			survivors = append(survivors, kept{hit: hit, tokens: tokens})
		}
	}

	out := make([]*models.RetrievalHit, len(survivors))
	for i, k := range survivors {
		out[i] = k.hit
	}
	return out
}
