package recommend

import (
	"cmp"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clubrec/internal/domain/recommend/candidate"
)

// searchK is how many hits to ask the index for. Overfetching leaves room
// for items that come back once per embedded field.
func searchK(topN, overfetch, maxTopN int) int {
	return max(topN, min(topN*overfetch, maxTopN))
}

// rank drops unusable hits, keeps the best score per item, orders by score
// desc then itemID asc, and truncates to topN. distinct is the item count
// before truncation.
func rank(cands []candidate.Candidate, topN int, log *zap.Logger) (ranked []candidate.Candidate, distinct int) {
	best := make(map[string]float64, len(cands))
	for _, c := range cands {
		if c.ItemID() == "" || math.IsNaN(c.Score()) {
			log.Warn("dropping malformed candidate",
				zap.String("item_id", c.ItemID()),
				zap.Float64("score", c.Score()),
			)
			continue
		}
		if s, ok := best[c.ItemID()]; !ok || c.Score() > s {
			best[c.ItemID()] = c.Score()
		}
	}

	ranked = make([]candidate.Candidate, 0, len(best))
	for id, score := range best {
		ranked = append(ranked, candidate.New(id, score))
	}

	slices.SortFunc(ranked, func(a, b candidate.Candidate) int {
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID(), b.ItemID())
	})

	distinct = len(ranked)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, distinct
}
