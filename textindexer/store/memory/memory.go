package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/search/query"
	"github.com/google/uuid"

	"github.com/mycok/sherlook/textindexer/index"
)

// Size of each page of candidate hits fetched from bleve.
const batchSize = 100

// Static and compile-time check to ensure InMemoryIndex implements Indexer.
var _ index.Indexer = (*InMemoryIndex)(nil)

type bleveDoc struct {
	Terms []string
}

// sectionPositions maps a section to the ascending positions of a word.
type sectionPositions map[index.Section][]int

// InMemoryIndex is an Indexer implementation that keeps positional postings
// in memory and uses an in-memory bleve index to pre-filter the candidate
// documents of a lookup.
type InMemoryIndex struct {
	mu sync.RWMutex

	docs map[uuid.UUID]*index.Document
	// word -> document -> section positions.
	postings map[string]map[uuid.UUID]sectionPositions
	// document -> position -> word.
	wordsAt map[uuid.UUID]map[int]string

	idx bleve.Index
}

// NewInMemoryIndex instantiates and returns a text indexer that
// uses an in-memory bleve instance for candidate selection.
func NewInMemoryIndex() (*InMemoryIndex, error) {
	mapping := bleve.NewIndexMapping()
	// Words arrive already normalized, so they are indexed verbatim.
	mapping.DefaultAnalyzer = keyword.Name

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}

	return &InMemoryIndex{
		idx:      idx,
		docs:     make(map[uuid.UUID]*index.Document),
		postings: make(map[string]map[uuid.UUID]sectionPositions),
		wordsAt:  make(map[uuid.UUID]map[int]string),
	}, nil
}

// Close releases / frees any previously allocated resources.
func (s *InMemoryIndex) Close() error {
	return s.idx.Close()
}

// Index adds a new document or replaces the words of an existing one.
func (s *InMemoryIndex) Index(_ context.Context, doc *index.Document) error {
	if doc.ID == uuid.Nil {
		return fmt.Errorf("index: %w", index.ErrMissingDocumentID)
	}

	doc.IndexedAt = time.Now().UTC()
	dCopy := copyDoc(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	// If updating, preserve existing page-rank score.
	if existing, exists := s.docs[dCopy.ID]; exists {
		dCopy.PageRank = existing.PageRank
		s.dropPostings(existing)
	}

	terms := make([]string, 0, len(dCopy.Words))
	seen := make(map[string]struct{}, len(dCopy.Words))
	at := make(map[int]string, len(dCopy.Words))

	for _, w := range dCopy.Words {
		docs := s.postings[w.Text]
		if docs == nil {
			docs = make(map[uuid.UUID]sectionPositions)
			s.postings[w.Text] = docs
		}

		secs := docs[dCopy.ID]
		if secs == nil {
			secs = make(sectionPositions)
			docs[dCopy.ID] = secs
		}

		secs[w.Section] = append(secs[w.Section], w.Position)
		at[w.Position] = w.Text

		if _, dup := seen[w.Text]; !dup {
			seen[w.Text] = struct{}{}
			terms = append(terms, w.Text)
		}
	}

	if err := s.idx.Index(dCopy.ID.String(), bleveDoc{Terms: terms}); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	s.docs[dCopy.ID] = dCopy
	s.wordsAt[dCopy.ID] = at

	return nil
}

// dropPostings removes every posting contributed by doc. Callers must hold
// the write lock.
func (s *InMemoryIndex) dropPostings(doc *index.Document) {
	for _, w := range doc.Words {
		docs := s.postings[w.Text]
		if docs == nil {
			continue
		}

		delete(docs, doc.ID)
		if len(docs) == 0 {
			delete(s.postings, w.Text)
		}
	}

	delete(s.wordsAt, doc.ID)
}

// FindByID looks up a document by its id.
func (s *InMemoryIndex) FindByID(_ context.Context, id uuid.UUID) (*index.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, exists := s.docs[id]; exists {
		return copyDoc(doc), nil
	}

	return nil, fmt.Errorf("find by ID: %w", index.ErrNotFound)
}

// DocumentTerms returns one DocumentTerm per (document, word) pair for the
// provided words.
func (s *InMemoryIndex) DocumentTerms(_ context.Context, words []string) ([]*index.DocumentTerm, error) {
	words = uniqueWords(words)
	if len(words) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, err := s.candidates(words)
	if err != nil {
		return nil, fmt.Errorf("document terms: %w", err)
	}

	var terms []*index.DocumentTerm
	for _, id := range candidates {
		doc, exists := s.docs[id]
		if !exists {
			continue
		}

		for _, word := range words {
			secs, found := s.postings[word][id]
			if !found {
				continue
			}

			b := index.NewDocumentTermBuilder(
				word, doc.ID, doc.URL, doc.Title, doc.Description, doc.Size(),
			)
			for sec, positions := range secs {
				b.AddPositions(sec, positions...)
			}

			term, err := b.Build()
			if err != nil {
				return nil, fmt.Errorf("document terms: %w", err)
			}

			terms = append(terms, term)
		}
	}

	return terms, nil
}

// candidates returns the ids of all documents containing at least one of
// the words. Callers must hold the read lock.
func (s *InMemoryIndex) candidates(words []string) ([]uuid.UUID, error) {
	disjuncts := make([]query.Query, 0, len(words))
	for _, w := range words {
		tq := bleve.NewTermQuery(w)
		tq.SetField("Terms")
		disjuncts = append(disjuncts, tq)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(disjuncts...))
	req.Size = batchSize

	var ids []uuid.UUID

	it := newCandidateIterator(s.idx, req)
	for it.Next() {
		ids = append(ids, it.ID())
	}

	if err := it.Error(); err != nil {
		return nil, err
	}

	return ids, nil
}

// IDF returns the inverse document frequency of every word present in the
// index.
func (s *InMemoryIndex) IDF(_ context.Context, words []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.docs)
	idf := make(map[string]float64, len(words))

	for _, w := range words {
		df := len(s.postings[w])
		if df == 0 {
			continue
		}

		idf[w] = index.IDF(total, df)
	}

	return idf, nil
}

// PageRanks returns the PageRank score of each known document.
func (s *InMemoryIndex) PageRanks(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[uuid.UUID]float64, len(ids))
	for _, id := range ids {
		if doc, exists := s.docs[id]; exists {
			scores[id] = doc.PageRank
		}
	}

	return scores, nil
}

// UpdatePageRanks persists the provided scores for known documents.
func (s *InMemoryIndex) UpdatePageRanks(_ context.Context, scores map[uuid.UUID]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, score := range scores {
		if doc, exists := s.docs[id]; exists {
			doc.PageRank = score
		}
	}

	return nil
}

// WordsAroundPositions returns the words within window positions of the
// requested positions for each document.
func (s *InMemoryIndex) WordsAroundPositions(
	_ context.Context, positions map[uuid.UUID][]int, window int,
) (map[uuid.UUID]map[int]string, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]map[int]string, len(positions))
	for id, list := range positions {
		at, exists := s.wordsAt[id]
		if !exists {
			continue
		}

		for _, pos := range list {
			for p := max(0, pos-window); p <= pos+window; p++ {
				word, found := at[p]
				if !found {
					continue
				}

				if out[id] == nil {
					out[id] = make(map[int]string)
				}
				out[id][p] = word
			}
		}
	}

	return out, nil
}

func copyDoc(doc *index.Document) *index.Document {
	dCopy := new(index.Document)
	*dCopy = *doc
	dCopy.Words = append([]index.Word(nil), doc.Words...)

	return dCopy
}

func uniqueWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))

	for _, w := range words {
		if w == "" {
			continue
		}

		if _, dup := seen[w]; !dup {
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}

	return out
}
