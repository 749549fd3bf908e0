// Package scoring merges per-stage scores into the ranked candidate list that
// a classification result reports. Scoring is pure: it takes whatever the
// retrieval and rerank stages produced and derives ordering from it without
// calling back into any oracle.
package scoring

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/JaimeStill/taxon/classify"
)

// Ranking is the ordered outcome of score aggregation. Primary is the
// predicted class; Alternatives holds the remaining candidates in descending
// effective-score order.
type Ranking struct {
	Primary      classify.Candidate
	Alternatives []classify.Candidate
}

// Rank merges similarity scores with optional rerank scores into a ranked
// candidate list. A candidate the reranker scored uses the rerank score as
// its effective score; every other candidate keeps its similarity score.
// Scores are clamped to [0, 1] and never renormalized, so effective scores
// across candidates need not sum to anything. Candidates tied on effective
// score keep their original retrieval order.
//
// Rerank scores whose class ID matches no retrieved candidate are ignored:
// the reranker cannot introduce candidates retrieval never produced.
func Rank(similarities []classify.Similarity, rerank []classify.RerankScore) (Ranking, error) {
	if len(similarities) == 0 {
		return Ranking{}, fmt.Errorf("%w: no candidates to rank", classify.ErrAggregation)
	}

	byClass := make(map[string]classify.RerankScore, len(rerank))
	for _, score := range rerank {
		byClass[score.ClassID] = score
	}

	candidates := make([]classify.Candidate, len(similarities))
	for i, sim := range similarities {
		candidate := classify.Candidate{
			Class:      sim.Class,
			Similarity: clamp(sim.Score),
		}
		candidate.Effective = candidate.Similarity

		if score, ok := byClass[sim.Class.ID]; ok {
			reranked := clamp(score.Score)
			candidate.Rerank = &reranked
			candidate.Effective = reranked
			candidate.Reasoning = score.Reasoning
		}

		candidates[i] = candidate
	}

	slices.SortStableFunc(candidates, func(a, b classify.Candidate) int {
		return cmp.Compare(b.Effective, a.Effective)
	})

	return Ranking{Primary: candidates[0], Alternatives: candidates[1:]}, nil
}

// AttachValidation stamps the attribute outcome onto the primary candidate.
// The outcome is binary: 1 when the class rule held, 0 when it did not
// (including evaluations that failed or errored). Validation never reorders
// candidates and never changes the prediction.
func AttachValidation(primary *classify.Candidate, eval *classify.Evaluation) {
	score := 0.0
	if eval.Holds() {
		score = 1.0
	}
	primary.Attribute = &score
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
