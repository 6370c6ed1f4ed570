package ranker

import (
	"context"

	"github.com/google/uuid"

	"github.com/mycok/sherlook/textindexer/index"
)

//go:generate mockgen -package mocks -destination mocks/mock_index_api.go github.com/mycok/sherlook/ranker IndexAPI

// IndexAPI defines the set of index store lookups the ranker depends on.
type IndexAPI interface {
	// DocumentTerms returns one DocumentTerm per (document, word) pair for
	// the provided words.
	DocumentTerms(ctx context.Context, words []string) ([]*index.DocumentTerm, error)

	// IDF returns the inverse document frequency of each known word.
	IDF(ctx context.Context, words []string) (map[string]float64, error)

	// PageRanks returns the PageRank score of each known document.
	PageRanks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error)

	// WordsAroundPositions returns, per document, the words found within
	// window positions of each requested position.
	WordsAroundPositions(
		ctx context.Context, positions map[uuid.UUID][]int, window int,
	) (map[uuid.UUID]map[int]string, error)
}
