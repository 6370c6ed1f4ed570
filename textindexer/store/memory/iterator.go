package memory

import (
	"fmt"

	"github.com/blevesearch/bleve"
	"github.com/google/uuid"
)

// candidateIterator pages through the hits of a bleve search request and
// yields the ids of the matching documents.
type candidateIterator struct {
	// Bleve index the request is executed against.
	idx bleve.Index
	// Search Request Object.
	searchReq *bleve.SearchRequest
	// Cumulative index tracks the absolute position in the result list.
	cumIdx uint64
	// Search Result Index tracks the position in the current page list.
	searchResIdx int
	// Search Result Object.
	searchRes *bleve.SearchResult
	// Current document id.
	id uuid.UUID
	// Last error encountered by the iterator.
	lastErr error
}

func newCandidateIterator(idx bleve.Index, req *bleve.SearchRequest) *candidateIterator {
	it := &candidateIterator{idx: idx, searchReq: req}
	it.searchRes, it.lastErr = idx.Search(req)

	return it
}

// Next loads the next candidate id, returns false when no more items
// are available or when an error occurs.
func (i *candidateIterator) Next() bool {
	if i.lastErr != nil || i.searchRes == nil || i.cumIdx >= i.searchRes.Total {
		return false
	}

	// Fetch the next result batch once the current one is exhausted.
	if i.searchResIdx >= i.searchRes.Hits.Len() {
		i.searchReq.From += i.searchReq.Size
		i.searchRes, i.lastErr = i.idx.Search(i.searchReq)
		if i.lastErr != nil {
			return false
		}

		i.searchResIdx = 0
		if i.searchRes.Hits.Len() == 0 {
			return false
		}
	}

	id, err := uuid.Parse(i.searchRes.Hits[i.searchResIdx].ID)
	if err != nil {
		i.lastErr = fmt.Errorf("candidate iterator: %w", err)

		return false
	}

	i.id = id
	i.searchResIdx++
	i.cumIdx++

	return true
}

// ID returns the current candidate document id.
func (i *candidateIterator) ID() uuid.UUID {
	return i.id
}

// Error returns the last error encountered by the iterator.
func (i *candidateIterator) Error() error {
	return i.lastErr
}
