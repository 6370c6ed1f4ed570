package ranker

import (
	"github.com/google/uuid"

	"github.com/mycok/sherlook/query"
)

// CombinePhrases folds the per-phrase results left to right: AND keeps the
// intersection, OR the union and NOT removes the next phrase's documents.
// ops[i] joins phrase i and i+1; a missing or unknown operator means AND.
// Each surviving document carries the score of the first phrase that
// matched it.
func CombinePhrases(results [][]RankedDocument, ops []query.Operator) []RankedDocument {
	if len(results) == 0 {
		return nil
	}

	var (
		order    []uuid.UUID
		resolved = make(map[uuid.UUID]RankedDocument)
	)

	for _, docs := range results {
		for _, doc := range docs {
			if _, exists := resolved[doc.ID]; !exists {
				resolved[doc.ID] = doc
				order = append(order, doc.ID)
			}
		}
	}

	acc := idSet(results[0])
	for i := 1; i < len(results); i++ {
		next := idSet(results[i])

		switch query.OperatorAt(ops, i-1) {
		case query.Or:
			for id := range next {
				acc[id] = struct{}{}
			}
		case query.Not:
			for id := range next {
				delete(acc, id)
			}
		default:
			for id := range acc {
				if _, exists := next[id]; !exists {
					delete(acc, id)
				}
			}
		}
	}

	out := make([]RankedDocument, 0, len(acc))
	for _, id := range order {
		if _, keep := acc[id]; keep {
			out = append(out, resolved[id])
		}
	}

	return out
}

func idSet(docs []RankedDocument) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(docs))
	for _, doc := range docs {
		set[doc.ID] = struct{}{}
	}

	return set
}
