package ranker

import (
	"github.com/google/uuid"

	"github.com/mycok/sherlook/textindexer/index"
)

// RankedDocument is a single entry of a ranked result list.
type RankedDocument struct {
	ID          uuid.UUID
	URL         string
	Title       string
	Description string

	// LexicalScore is the TF-IDF or phrase score of the document.
	LexicalScore float64

	// FinalScore blends LexicalScore with the document PageRank. Set by
	// Blend.
	FinalScore float64

	// Snippet is the highlighted excerpt. Only set on pages returned by
	// PageWithSnippets.
	Snippet string
}

// RankingResult bundles the full, unpaged ranking of a query with the
// evidence needed to render snippets for any of its pages.
//
// A RankingResult is shared by every reader of the ranking cache and must
// not be modified once built.
type RankingResult struct {
	// Documents sorted by descending FinalScore.
	Documents []RankedDocument

	// Terms holds the per (document, word) evidence of the query.
	Terms []*index.DocumentTerm

	// Phrases holds the words of each phrase that contributed matches, in
	// query order. Empty for keyword rankings.
	Phrases [][]string
}

// Total returns the number of ranked documents.
func (r *RankingResult) Total() int {
	if r == nil {
		return 0
	}

	return len(r.Documents)
}

// termsByDocument groups evidence per document id and word.
func termsByDocument(terms []*index.DocumentTerm) map[uuid.UUID]map[string]*index.DocumentTerm {
	out := make(map[uuid.UUID]map[string]*index.DocumentTerm)
	for _, t := range terms {
		words := out[t.DocumentID()]
		if words == nil {
			words = make(map[string]*index.DocumentTerm)
			out[t.DocumentID()] = words
		}

		words[t.Word()] = t
	}

	return out
}
