package ranker

import (
	"sort"

	"github.com/google/uuid"
)

// Blend sets FinalScore = lexicalWeight*LexicalScore + popularityWeight*PageRank
// on every document and sorts docs by descending FinalScore. Documents with
// no PageRank entry get 0. Ties are broken by ascending document id.
func Blend(docs []RankedDocument, pageRanks map[uuid.UUID]float64, lexicalWeight, popularityWeight float64) {
	for i := range docs {
		docs[i].FinalScore = lexicalWeight*docs[i].LexicalScore + popularityWeight*pageRanks[docs[i].ID]
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].FinalScore != docs[j].FinalScore {
			return docs[i].FinalScore > docs[j].FinalScore
		}

		return docs[i].ID.String() < docs[j].ID.String()
	})
}

// Page returns a copy of docs[offset:offset+limit] with both bounds clamped
// to the list. An offset past the end yields an empty page.
func Page(docs []RankedDocument, offset, limit int) []RankedDocument {
	if offset < 0 {
		offset = 0
	}

	if limit <= 0 || offset >= len(docs) {
		return []RankedDocument{}
	}

	end := min(offset+limit, len(docs))

	return append([]RankedDocument(nil), docs[offset:end]...)
}

func documentIDs(docs []RankedDocument) []uuid.UUID {
	ids := make([]uuid.UUID, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	return ids
}
