package index

import (
	"context"

	"github.com/google/uuid"
)

// Indexer should be implemented by objects that store indexed documents and
// serve the positional lookups needed by the ranking engine.
type Indexer interface {
	// Index adds a new document or replaces the words of an existing one.
	// The PageRank score of an existing document is preserved.
	Index(ctx context.Context, doc *Document) error

	// FindByID looks up a document by its id.
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// DocumentTerms returns one DocumentTerm for every (document, word)
	// pair where the document contains one of the provided words.
	DocumentTerms(ctx context.Context, words []string) ([]*DocumentTerm, error)

	// IDF returns the inverse document frequency of each known word.
	// Unknown words are omitted from the result.
	IDF(ctx context.Context, words []string) (map[string]float64, error)

	// PageRanks returns the stored PageRank score of each known document.
	// Unknown ids are omitted from the result.
	PageRanks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error)

	// UpdatePageRanks persists the provided PageRank scores. Ids that do
	// not refer to an indexed document are ignored.
	UpdatePageRanks(ctx context.Context, scores map[uuid.UUID]float64) error

	// WordsAroundPositions returns, for every document, the words found
	// within window positions of any of the requested positions, keyed by
	// absolute position.
	WordsAroundPositions(
		ctx context.Context, positions map[uuid.UUID][]int, window int,
	) (map[uuid.UUID]map[int]string, error)
}
