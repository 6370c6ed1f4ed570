package ranker

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mycok/sherlook/textindexer/index"
)

const (
	highlightOpen  = "<b>"
	highlightClose = "</b>"
	ellipsis       = "..."
)

// snippetGenerator fills in the Snippet field of a page of results using the
// words stored around the matched positions.
type snippetGenerator struct {
	indexAPI      IndexAPI
	keywordWindow int
	phraseWindow  int
}

// anchor marks where the excerpt of a document is centred and, for phrase
// matches, the phrase found there.
type anchor struct {
	position int
	phrase   []string
}

// generate sets the snippet of every document in page. Keyword excerpts are
// centred on the earliest match; phrase excerpts on the first consecutive
// run of a phrase in res.Phrases.
func (g *snippetGenerator) generate(
	ctx context.Context, page []RankedDocument, res *RankingResult, terms []string, isPhrase bool,
) error {

	if len(page) == 0 {
		return nil
	}

	termSet := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		termSet[strings.ToLower(t)] = struct{}{}
	}

	phrases := res.Phrases
	if isPhrase && len(phrases) == 0 && len(terms) != 0 {
		phrases = [][]string{terms}
	}

	byDoc := termsByDocument(res.Terms)
	anchors := make(map[uuid.UUID]anchor, len(page))
	positions := make(map[uuid.UUID][]int, len(page))

	for _, doc := range page {
		a, found := g.anchorFor(byDoc[doc.ID], termSet, phrases, isPhrase)
		if !found {
			continue
		}

		anchors[doc.ID] = a
		positions[doc.ID] = []int{a.position}
	}

	window := g.keywordWindow
	if isPhrase {
		window = g.phraseWindow
	}

	var (
		words map[uuid.UUID]map[int]string
		err   error
	)
	if len(positions) != 0 {
		if words, err = g.indexAPI.WordsAroundPositions(ctx, positions, window); err != nil {
			return err
		}
	}

	for i := range page {
		around := words[page[i].ID]
		if len(around) == 0 {
			page[i].Snippet = page[i].Description
			continue
		}

		page[i].Snippet = render(around, termSet, anchors[page[i].ID].phrase)
	}

	return nil
}

func (g *snippetGenerator) anchorFor(
	docTerms map[string]*index.DocumentTerm,
	termSet map[string]struct{},
	phrases [][]string,
	isPhrase bool,
) (anchor, bool) {

	if len(docTerms) == 0 {
		return anchor{}, false
	}

	if isPhrase {
		for _, phrase := range phrases {
			if _, start, found := findPhraseRun(phrase, docTerms); found {
				return anchor{position: start, phrase: phrase}, true
			}
		}
	}

	earliest := -1
	for word, t := range docTerms {
		if len(termSet) != 0 {
			if _, wanted := termSet[word]; !wanted {
				continue
			}
		}

		if pos := t.FirstPosition(); pos >= 0 && (earliest < 0 || pos < earliest) {
			earliest = pos
		}
	}

	if earliest < 0 {
		return anchor{}, false
	}

	return anchor{position: earliest}, true
}

// render joins the window words in position order. When phrase is set and
// appears at consecutive positions it is highlighted as one block, otherwise
// every word in termSet is highlighted on its own.
func render(around map[int]string, termSet map[string]struct{}, phrase []string) string {
	positions := make([]int, 0, len(around))
	for pos := range around {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	tokens := make([]string, len(positions))
	for i, pos := range positions {
		tokens[i] = around[pos]
	}

	if start := findRun(positions, tokens, phrase); start >= 0 {
		end := start + len(phrase)
		block := highlightOpen + strings.Join(tokens[start:end], " ") + highlightClose

		out := make([]string, 0, len(tokens)-len(phrase)+1)
		out = append(out, tokens[:start]...)
		out = append(out, block)
		out = append(out, tokens[end:]...)

		return ellipsis + strings.Join(out, " ") + ellipsis
	}

	for i, tok := range tokens {
		if _, match := termSet[strings.ToLower(tok)]; match {
			tokens[i] = highlightOpen + tok + highlightClose
		}
	}

	return ellipsis + strings.Join(tokens, " ") + ellipsis
}

// findRun returns the index in tokens where phrase occurs at strictly
// increasing positions, or -1.
func findRun(positions []int, tokens, phrase []string) int {
	if len(phrase) == 0 {
		return -1
	}

nextStart:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, word := range phrase {
			if positions[i+j] != positions[i]+j || !strings.EqualFold(tokens[i+j], word) {
				continue nextStart
			}
		}

		return i
	}

	return -1
}
