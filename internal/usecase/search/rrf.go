package search

import (
	"sort"

	"github.com/meridian-data/searchbridge/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion smoothing constant.
const rrfK = 100

// fuseRRF merges the dense and lexical rankings via Reciprocal Rank Fusion:
// score(d) = sum over rankings of 1/(k + rank(d)), ranks starting at 1. A
// document present in both lists outscores single-list documents at similar
// ranks. The dense result's payload is kept for documents in both lists.
func fuseRRF(dense, lexical []result.Result, topK int) []result.Result {
	type scored struct {
		res   result.Result
		score float64
	}

	merged := make(map[string]*scored, len(dense)+len(lexical))

	for rank, r := range dense {
		s := 1.0 / float64(rrfK+rank+1)
		merged[r.ID()] = &scored{res: r, score: s}
	}

	for rank, r := range lexical {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[r.ID()]; ok {
			existing.score += s
		} else {
			merged[r.ID()] = &scored{res: r, score: s}
		}
	}

	results := make([]result.Result, 0, len(merged))
	for _, s := range merged {
		results = append(results, s.res.WithScore(s.score))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results
}
