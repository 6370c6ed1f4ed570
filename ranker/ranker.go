/*
	ranker package turns query terms or phrases into an ordered, paginated
	and snippet annotated list of documents by blending TF-IDF relevance with
	the document PageRank.
*/

package ranker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mycok/sherlook/query"
	"github.com/mycok/sherlook/textindexer/index"
)

// Ranker scores documents against the index store. It holds no per-query
// state and is safe for concurrent use.
type Ranker struct {
	cfg      Config
	snippets *snippetGenerator
}

// New creates and returns a fully configured Ranker instance.
func New(cfg Config) (*Ranker, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("ranker: config validation failed: %w", err)
	}

	return &Ranker{
		cfg: cfg,
		snippets: &snippetGenerator{
			indexAPI:      cfg.IndexAPI,
			keywordWindow: cfg.KeywordWindow,
			phraseWindow:  cfg.PhraseWindow,
		},
	}, nil
}

// RankDocuments ranks every document matching terms. When isPhrase is set
// the terms are treated as the words of a single phrase.
func (r *Ranker) RankDocuments(ctx context.Context, terms []string, isPhrase bool) (*RankingResult, error) {
	if isPhrase {
		return r.rankPhraseWords(ctx, [][]string{terms}, nil)
	}

	words := uniqueStrings(terms)
	if len(words) == 0 {
		return &RankingResult{}, nil
	}

	evidence, idf, err := r.lookup(ctx, words)
	if err != nil {
		return nil, fmt.Errorf("rank documents: %w", err)
	}

	res := &RankingResult{
		Documents: ScoreTFIDF(evidence, idf),
		Terms:     evidence,
	}

	if err := r.blend(ctx, res); err != nil {
		return nil, fmt.Errorf("rank documents: %w", err)
	}

	r.cfg.Logger.WithFields(logrus.Fields{
		"terms":   len(words),
		"matches": res.Total(),
	}).Debug("ranked keyword query")

	return res, nil
}

// RankPhrases ranks the documents matching up to query.MaxPhrases phrases
// combined with ops. ops[i] joins phrases[i] and phrases[i+1].
func (r *Ranker) RankPhrases(ctx context.Context, phrases []string, ops []query.Operator) (*RankingResult, error) {
	if len(phrases) > query.MaxPhrases {
		phrases = phrases[:query.MaxPhrases]
	}

	split := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		split = append(split, query.Tokenize(p))
	}

	return r.rankPhraseWords(ctx, split, ops)
}

func (r *Ranker) rankPhraseWords(ctx context.Context, phrases [][]string, ops []query.Operator) (*RankingResult, error) {
	var all []string
	for _, words := range phrases {
		all = append(all, words...)
	}

	words := uniqueStrings(all)
	if len(words) == 0 {
		return &RankingResult{}, nil
	}

	evidence, idf, err := r.lookup(ctx, words)
	if err != nil {
		return nil, fmt.Errorf("rank phrases: %w", err)
	}

	results := make([][]RankedDocument, len(phrases))
	for i, phraseWords := range phrases {
		results[i] = ScorePhrase(phraseWords, evidence, idf)
	}

	res := &RankingResult{
		Documents: CombinePhrases(results, ops),
		Terms:     evidence,
	}

	// Phrases excluded by NOT never anchor a snippet.
	for i, phraseWords := range phrases {
		if i > 0 && query.OperatorAt(ops, i-1) == query.Not {
			continue
		}

		if len(phraseWords) != 0 {
			res.Phrases = append(res.Phrases, phraseWords)
		}
	}

	if err := r.blend(ctx, res); err != nil {
		return nil, fmt.Errorf("rank phrases: %w", err)
	}

	r.cfg.Logger.WithFields(logrus.Fields{
		"phrases": len(phrases),
		"matches": res.Total(),
	}).Debug("ranked phrase query")

	return res, nil
}

// PageWithSnippets returns documents [offset, offset+limit) of res with
// their snippets set. The returned documents are copies; res is left
// untouched.
func (r *Ranker) PageWithSnippets(
	ctx context.Context, res *RankingResult, terms []string, offset, limit int, isPhrase bool,
) ([]RankedDocument, error) {

	if res == nil {
		return []RankedDocument{}, nil
	}

	page := Page(res.Documents, offset, limit)
	if err := r.snippets.generate(ctx, page, res, terms, isPhrase); err != nil {
		return nil, fmt.Errorf("page with snippets: %w", err)
	}

	return page, nil
}

func (r *Ranker) lookup(ctx context.Context, words []string) ([]*index.DocumentTerm, map[string]float64, error) {
	evidence, err := r.cfg.IndexAPI.DocumentTerms(ctx, words)
	if err != nil {
		return nil, nil, err
	}

	idf, err := r.cfg.IndexAPI.IDF(ctx, words)
	if err != nil {
		return nil, nil, err
	}

	return evidence, idf, nil
}

func (r *Ranker) blend(ctx context.Context, res *RankingResult) error {
	if len(res.Documents) == 0 {
		return nil
	}

	pageRanks, err := r.cfg.IndexAPI.PageRanks(ctx, documentIDs(res.Documents))
	if err != nil {
		return err
	}

	Blend(res.Documents, pageRanks, r.cfg.LexicalWeight, r.cfg.PopularityWeight)

	return nil
}
