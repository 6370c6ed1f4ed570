package ranker

import (
	"context"
	"errors"
	"math"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	check "gopkg.in/check.v1"

	"github.com/mycok/sherlook/query"
	"github.com/mycok/sherlook/ranker/mocks"
	"github.com/mycok/sherlook/textindexer/index"
	"github.com/mycok/sherlook/textindexer/store/memory"
)

var _ = check.Suite(new(RankerTestSuite))

type RankerTestSuite struct{}

func (s *RankerTestSuite) TestConfigValidation(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	cfg := Config{IndexAPI: mocks.NewMockIndexAPI(ctrl)}
	c.Assert(cfg.validate(), check.IsNil)
	c.Assert(cfg.LexicalWeight, check.Equals, 0.7)
	c.Assert(cfg.PopularityWeight, check.Equals, 0.3)
	c.Assert(cfg.KeywordWindow, check.Equals, 10)
	c.Assert(cfg.PhraseWindow, check.Equals, 15)
	c.Assert(cfg.Logger, check.NotNil)

	cfg = Config{KeywordWindow: -1, PhraseWindow: -1}
	err := cfg.validate()
	c.Assert(err, check.ErrorMatches, "(?ms).*index API not provided.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*invalid value for keyword snippet window.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*invalid value for phrase snippet window.*")
}

func (s *RankerTestSuite) TestRankDocumentsBlendsPageRank(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	docA, docB := uuid.New(), uuid.New()
	evidence := []*index.DocumentTerm{
		term("machine", docA, 100).AddPositions(index.SectionTitle, 0, 1).MustBuild(),
		term("machine", docB, 50).AddPositions(index.SectionBody, 3).MustBuild(),
	}

	api := mocks.NewMockIndexAPI(ctrl)
	api.EXPECT().DocumentTerms(gomock.Any(), []string{"machine"}).Return(evidence, nil)
	api.EXPECT().IDF(gomock.Any(), []string{"machine"}).Return(map[string]float64{"machine": 1.301}, nil)
	api.EXPECT().PageRanks(gomock.Any(), []uuid.UUID{docA, docB}).Return(
		map[uuid.UUID]float64{docB: 0.9}, nil,
	)

	r := s.newRanker(c, api)
	res, err := r.RankDocuments(context.TODO(), []string{"machine", "machine", ""}, false)
	c.Assert(err, check.IsNil)
	c.Assert(res.Total(), check.Equals, 2)
	c.Assert(res.Terms, check.DeepEquals, evidence)

	// B's PageRank outweighs A's lexical advantage.
	c.Assert(res.Documents[0].ID, check.Equals, docB)
	c.Assert(math.Abs(res.Documents[0].FinalScore-(0.7*0.02*1.301+0.3*0.9)) < 1e-9, check.Equals, true)
	c.Assert(math.Abs(res.Documents[1].FinalScore-0.7*0.04*1.301) < 1e-9, check.Equals, true)
}

func (s *RankerTestSuite) TestRankDocumentsWithoutTerms(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	r := s.newRanker(c, mocks.NewMockIndexAPI(ctrl))

	res, err := r.RankDocuments(context.TODO(), nil, false)
	c.Assert(err, check.IsNil)
	c.Assert(res.Total(), check.Equals, 0)

	res, err = r.RankPhrases(context.TODO(), []string{" ... "}, nil)
	c.Assert(err, check.IsNil)
	c.Assert(res.Total(), check.Equals, 0)
}

func (s *RankerTestSuite) TestRankDocumentsPropagatesStoreErrors(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	storeErr := errors.New("connection reset")
	api := mocks.NewMockIndexAPI(ctrl)
	r := s.newRanker(c, api)

	api.EXPECT().DocumentTerms(gomock.Any(), gomock.Any()).Return(nil, storeErr)
	_, err := r.RankDocuments(context.TODO(), []string{"fox"}, false)
	c.Assert(errors.Is(err, storeErr), check.Equals, true)

	id := uuid.New()
	api.EXPECT().DocumentTerms(gomock.Any(), gomock.Any()).Return([]*index.DocumentTerm{
		term("fox", id, 10).AddPositions(index.SectionBody, 1).MustBuild(),
	}, nil)
	api.EXPECT().IDF(gomock.Any(), gomock.Any()).Return(map[string]float64{"fox": 1}, nil)
	api.EXPECT().PageRanks(gomock.Any(), gomock.Any()).Return(nil, storeErr)
	_, err = r.RankDocuments(context.TODO(), []string{"fox"}, false)
	c.Assert(errors.Is(err, storeErr), check.Equals, true)
}

func (s *RankerTestSuite) TestRankPhrasesWithOperators(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	d1, d2 := uuid.New(), uuid.New()
	// d1 has "quick fox" and "lazy dog"; d2 only "quick fox".
	evidence := []*index.DocumentTerm{
		term("quick", d1, 20).AddPositions(index.SectionBody, 1).MustBuild(),
		term("fox", d1, 20).AddPositions(index.SectionBody, 2).MustBuild(),
		term("lazy", d1, 20).AddPositions(index.SectionBody, 8).MustBuild(),
		term("dog", d1, 20).AddPositions(index.SectionBody, 9).MustBuild(),
		term("quick", d2, 20).AddPositions(index.SectionTitle, 0).MustBuild(),
		term("fox", d2, 20).AddPositions(index.SectionTitle, 1).MustBuild(),
		term("dog", d2, 20).AddPositions(index.SectionBody, 5).MustBuild(),
	}

	api := mocks.NewMockIndexAPI(ctrl)
	api.EXPECT().DocumentTerms(gomock.Any(), []string{"quick", "fox", "lazy", "dog"}).Return(evidence, nil).Times(2)
	api.EXPECT().IDF(gomock.Any(), gomock.Any()).Return(map[string]float64{"quick": 1, "fox": 1, "lazy": 1, "dog": 1}, nil).Times(2)
	api.EXPECT().PageRanks(gomock.Any(), gomock.Any()).Return(map[uuid.UUID]float64{}, nil).Times(2)

	r := s.newRanker(c, api)

	res, err := r.RankPhrases(context.TODO(), []string{"Quick Fox", "lazy dog"}, []query.Operator{query.Not})
	c.Assert(err, check.IsNil)
	c.Assert(idsOf(res.Documents), check.DeepEquals, []uuid.UUID{d2})
	c.Assert(res.Phrases, check.DeepEquals, [][]string{{"quick", "fox"}})

	res, err = r.RankPhrases(context.TODO(), []string{"quick fox", "lazy dog"}, []query.Operator{query.And})
	c.Assert(err, check.IsNil)
	c.Assert(idsOf(res.Documents), check.DeepEquals, []uuid.UUID{d1})
	c.Assert(res.Phrases, check.DeepEquals, [][]string{{"quick", "fox"}, {"lazy", "dog"}})
}

func (s *RankerTestSuite) TestKeywordSnippet(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	id := uuid.New()
	res := &RankingResult{
		Documents: []RankedDocument{{ID: id, Description: "fallback"}},
		Terms: []*index.DocumentTerm{
			term("fox", id, 20).AddPositions(index.SectionBody, 5, 9).MustBuild(),
			term("dog", id, 20).AddPositions(index.SectionBody, 7).MustBuild(),
		},
	}

	api := mocks.NewMockIndexAPI(ctrl)
	api.EXPECT().WordsAroundPositions(gomock.Any(), map[uuid.UUID][]int{id: {5}}, 10).Return(
		map[uuid.UUID]map[int]string{id: {3: "the", 4: "quick", 5: "fox", 6: "and", 7: "Dog"}}, nil,
	)

	r := s.newRanker(c, api)
	page, err := r.PageWithSnippets(context.TODO(), res, []string{"fox", "dog"}, 0, 10, false)
	c.Assert(err, check.IsNil)
	c.Assert(page, check.HasLen, 1)
	c.Assert(page[0].Snippet, check.Equals, "...the quick <b>fox</b> and <b>Dog</b>...")

	// The cached result is never mutated.
	c.Assert(res.Documents[0].Snippet, check.Equals, "")
}

func (s *RankerTestSuite) TestPhraseSnippet(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	id := uuid.New()
	res := &RankingResult{
		Documents: []RankedDocument{{ID: id}},
		Terms: []*index.DocumentTerm{
			term("quick", id, 20).AddPositions(index.SectionBody, 2, 10).MustBuild(),
			term("fox", id, 20).AddPositions(index.SectionBody, 11).MustBuild(),
		},
		Phrases: [][]string{{"quick", "fox"}},
	}

	api := mocks.NewMockIndexAPI(ctrl)
	api.EXPECT().WordsAroundPositions(gomock.Any(), map[uuid.UUID][]int{id: {10}}, 15).Return(
		map[uuid.UUID]map[int]string{id: {9: "a", 10: "quick", 11: "fox", 12: "runs", 13: "quick"}}, nil,
	)

	r := s.newRanker(c, api)
	page, err := r.PageWithSnippets(context.TODO(), res, []string{"quick", "fox"}, 0, 10, true)
	c.Assert(err, check.IsNil)
	c.Assert(page[0].Snippet, check.Equals, "...a <b>quick fox</b> runs quick...")
}

func (s *RankerTestSuite) TestPhraseSnippetFallsBackToTermHighlights(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	id := uuid.New()
	res := &RankingResult{
		Documents: []RankedDocument{{ID: id}},
		Terms: []*index.DocumentTerm{
			term("quick", id, 20).AddPositions(index.SectionBody, 4).MustBuild(),
			term("fox", id, 20).AddPositions(index.SectionBody, 5).MustBuild(),
		},
		Phrases: [][]string{{"quick", "fox"}},
	}

	// The window came back without position 5.
	api := mocks.NewMockIndexAPI(ctrl)
	api.EXPECT().WordsAroundPositions(gomock.Any(), map[uuid.UUID][]int{id: {4}}, 15).Return(
		map[uuid.UUID]map[int]string{id: {3: "the", 4: "quick", 6: "fox"}}, nil,
	)

	r := s.newRanker(c, api)
	page, err := r.PageWithSnippets(context.TODO(), res, []string{"quick", "fox"}, 0, 10, true)
	c.Assert(err, check.IsNil)
	c.Assert(page[0].Snippet, check.Equals, "...the <b>quick</b> <b>fox</b>...")
}

func (s *RankerTestSuite) TestSnippetFallsBackToDescription(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	withTerms, withoutTerms := uuid.New(), uuid.New()
	res := &RankingResult{
		Documents: []RankedDocument{
			{ID: withTerms, Description: "first description"},
			{ID: withoutTerms, Description: "second description"},
		},
		Terms: []*index.DocumentTerm{
			term("fox", withTerms, 20).AddPositions(index.SectionBody, 5).MustBuild(),
		},
	}

	api := mocks.NewMockIndexAPI(ctrl)
	api.EXPECT().WordsAroundPositions(gomock.Any(), map[uuid.UUID][]int{withTerms: {5}}, 10).Return(
		map[uuid.UUID]map[int]string{}, nil,
	)

	r := s.newRanker(c, api)
	page, err := r.PageWithSnippets(context.TODO(), res, []string{"fox"}, 0, 10, false)
	c.Assert(err, check.IsNil)
	c.Assert(page[0].Snippet, check.Equals, "first description")
	c.Assert(page[1].Snippet, check.Equals, "second description")
}

func (s *RankerTestSuite) TestPageWithSnippetsOutOfRange(c *check.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	r := s.newRanker(c, mocks.NewMockIndexAPI(ctrl))
	res := &RankingResult{Documents: []RankedDocument{{ID: uuid.New()}}}

	page, err := r.PageWithSnippets(context.TODO(), res, []string{"fox"}, 5, 10, false)
	c.Assert(err, check.IsNil)
	c.Assert(page, check.HasLen, 0)

	page, err = r.PageWithSnippets(context.TODO(), nil, nil, 0, 10, false)
	c.Assert(err, check.IsNil)
	c.Assert(page, check.HasLen, 0)
}

func (s *RankerTestSuite) TestEndToEndWithInMemoryIndex(c *check.C) {
	idx, err := memory.NewInMemoryIndex()
	c.Assert(err, check.IsNil)
	defer func() { _ = idx.Close() }()

	ctx := context.TODO()
	docA := indexDoc(c, idx, "https://a.example", "machine learning", "machine learning is a field of study")
	docB := indexDoc(c, idx, "https://b.example", "cooking", "the bread machine broke down again today")
	_ = indexDoc(c, idx, "https://c.example", "gardening", "soil and water for the tomatoes")

	r, err := New(Config{IndexAPI: idx})
	c.Assert(err, check.IsNil)

	res, err := r.RankDocuments(ctx, []string{"machine"}, false)
	c.Assert(err, check.IsNil)
	c.Assert(idsOf(res.Documents), check.DeepEquals, []uuid.UUID{docA, docB})

	page, err := r.PageWithSnippets(ctx, res, []string{"machine"}, 0, 10, false)
	c.Assert(err, check.IsNil)
	c.Assert(page[0].Snippet, check.Equals, "...<b>machine</b> learning <b>machine</b> learning is a field of study...")

	// PageRank can reverse the lexical order.
	c.Assert(idx.UpdatePageRanks(ctx, map[uuid.UUID]float64{docB: 1.0}), check.IsNil)
	res, err = r.RankDocuments(ctx, []string{"machine"}, false)
	c.Assert(err, check.IsNil)
	c.Assert(idsOf(res.Documents), check.DeepEquals, []uuid.UUID{docB, docA})

	res, err = r.RankPhrases(ctx, []string{"bread machine"}, nil)
	c.Assert(err, check.IsNil)
	c.Assert(idsOf(res.Documents), check.DeepEquals, []uuid.UUID{docB})

	page, err = r.PageWithSnippets(ctx, res, []string{"bread", "machine"}, 0, 10, true)
	c.Assert(err, check.IsNil)
	c.Assert(page[0].Snippet, check.Equals, "...cooking the <b>bread machine</b> broke down again today...")
}

func (s *RankerTestSuite) newRanker(c *check.C, api IndexAPI) *Ranker {
	r, err := New(Config{IndexAPI: api})
	c.Assert(err, check.IsNil)

	return r
}

func indexDoc(c *check.C, idx index.Indexer, url, title, body string) uuid.UUID {
	doc := &index.Document{ID: uuid.New(), URL: url, Title: title, Description: body}

	pos := 0
	for _, w := range query.Tokenize(title) {
		doc.Words = append(doc.Words, index.Word{Text: w, Position: pos, Section: index.SectionTitle})
		pos++
	}
	for _, w := range query.Tokenize(body) {
		doc.Words = append(doc.Words, index.Word{Text: w, Position: pos, Section: index.SectionBody})
		pos++
	}

	c.Assert(idx.Index(context.TODO(), doc), check.IsNil)

	return doc.ID
}
