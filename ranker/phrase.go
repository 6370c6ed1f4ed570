package ranker

import (
	"github.com/google/uuid"

	"github.com/mycok/sherlook/textindexer/index"
)

// ScorePhrase scores the documents that contain every word of the phrase at
// consecutive positions inside a single section. Documents failing either
// condition are left out. The returned documents are not sorted.
func ScorePhrase(words []string, terms []*index.DocumentTerm, idf map[string]float64) []RankedDocument {
	if len(words) == 0 {
		return nil
	}

	var order []uuid.UUID
	byDoc := make(map[uuid.UUID]map[string]*index.DocumentTerm)
	for _, t := range terms {
		docTerms := byDoc[t.DocumentID()]
		if docTerms == nil {
			docTerms = make(map[string]*index.DocumentTerm)
			byDoc[t.DocumentID()] = docTerms
			order = append(order, t.DocumentID())
		}

		docTerms[t.Word()] = t
	}

	unique := uniqueStrings(words)

	var out []RankedDocument
	for _, id := range order {
		docTerms := byDoc[id]
		if _, _, found := findPhraseRun(words, docTerms); !found {
			continue
		}

		doc := newRankedDocument(docTerms[words[0]])
		for _, w := range unique {
			doc.LexicalScore += phraseWordScore(docTerms[w]) * idf[w]
		}

		out = append(out, *doc)
	}

	return out
}

// phraseWordScore sums occurrences*sectionWeight/documentSize across the
// sections of t.
func phraseWordScore(t *index.DocumentTerm) float64 {
	size := t.DocumentSize()
	if size <= 0 {
		return 0
	}

	var score float64
	for _, s := range t.Sections() {
		score += float64(t.Occurrences(s)) * s.Weight() / float64(size)
	}

	return score
}

// findPhraseRun looks for a position p in some section such that words[i]
// occurs at p+i for every i. Sections are visited title first and the
// earliest start wins within a section.
func findPhraseRun(
	words []string, docTerms map[string]*index.DocumentTerm,
) (index.Section, int, bool) {

	if len(words) == 0 {
		return 0, 0, false
	}

	for _, w := range words {
		if _, exists := docTerms[w]; !exists {
			return 0, 0, false
		}
	}

	first := docTerms[words[0]]
	for _, s := range first.Sections() {
	nextStart:
		for _, start := range first.Positions(s) {
			for i := 1; i < len(words); i++ {
				if !docTerms[words[i]].HasPosition(s, start+i) {
					continue nextStart
				}
			}

			return s, start, true
		}
	}

	return 0, 0, false
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		if s == "" {
			continue
		}

		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	return out
}
