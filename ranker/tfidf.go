package ranker

import (
	"github.com/google/uuid"

	"github.com/mycok/sherlook/textindexer/index"
)

// ScoreTFIDF scores every document referenced by terms. For each matched
// word the section weighted term frequency is multiplied by the word IDF and
// the products are summed per document. Words missing from idf contribute
// nothing. The returned documents are not sorted.
func ScoreTFIDF(terms []*index.DocumentTerm, idf map[string]float64) []RankedDocument {
	var (
		order  []uuid.UUID
		scored = make(map[uuid.UUID]*RankedDocument)
	)

	for _, t := range terms {
		doc, exists := scored[t.DocumentID()]
		if !exists {
			doc = newRankedDocument(t)
			scored[t.DocumentID()] = doc
			order = append(order, t.DocumentID())
		}

		doc.LexicalScore += weightedTF(t) * idf[t.Word()]
	}

	out := make([]RankedDocument, 0, len(order))
	for _, id := range order {
		out = append(out, *scored[id])
	}

	return out
}

// weightedTF sums occurrences/documentSize * sectionWeight across the
// sections of t.
func weightedTF(t *index.DocumentTerm) float64 {
	size := t.DocumentSize()
	if size <= 0 {
		return 0
	}

	var tf float64
	for _, s := range t.Sections() {
		tf += float64(t.Occurrences(s)) / float64(size) * s.Weight()
	}

	return tf
}

func newRankedDocument(t *index.DocumentTerm) *RankedDocument {
	return &RankedDocument{
		ID:          t.DocumentID(),
		URL:         t.URL(),
		Title:       t.Title(),
		Description: t.Description(),
	}
}
