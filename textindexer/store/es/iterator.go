package es

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"
)

// esIterator pages through the hits of an elasticsearch search request.
type esIterator struct {
	ctx context.Context
	// Pointer to an elasticsearch client instance.
	client *elasticsearch.Client
	// Search Request Object.
	searchReq map[string]interface{}
	// Cumulative index tracks the absolute position in the result list.
	cumIdx uint64
	// Search Result Index tracks the position in the current page list.
	searchResIdx int
	// Search Result Object.
	searchRes *esSearchRes
	// Current elasticsearch document.
	doc *esDoc
	// Last error encountered by the iterator.
	lastErr error
}

func newEsIterator(
	ctx context.Context, client *elasticsearch.Client, searchReq map[string]interface{},
) (*esIterator, error) {

	searchReq["track_total_hits"] = true
	searchRes, err := performSearch(ctx, client, searchReq)
	if err != nil {
		return nil, err
	}

	return &esIterator{
		ctx:       ctx,
		client:    client,
		searchReq: searchReq,
		searchRes: searchRes,
	}, nil
}

// Next loads the next document, returns false when no more items
// are available or when an error occurs.
func (i *esIterator) Next() bool {
	if i.lastErr != nil || i.searchRes == nil ||
		i.cumIdx >= i.searchRes.Hits.Total.Count {

		return false
	}

	// Check if we need to fetch the next result batch and if so, update
	// the search request cursor and perform a new search.
	if i.searchResIdx >= len(i.searchRes.Hits.HitList) {
		i.searchReq["from"] = i.searchReq["from"].(int) + batchSize
		i.searchRes, i.lastErr = performSearch(i.ctx, i.client, i.searchReq)
		if i.lastErr != nil {
			return false
		}

		// Reset the search result index for the new page of results.
		i.searchResIdx = 0
		if len(i.searchRes.Hits.HitList) == 0 {
			return false
		}
	}

	i.doc = &i.searchRes.Hits.HitList[i.searchResIdx].DocSource
	i.searchResIdx++
	i.cumIdx++

	return true
}

// Document returns the current document from the result set.
func (i *esIterator) Document() *esDoc {
	return i.doc
}

// Error returns the last error encountered by the iterator.
func (i *esIterator) Error() error {
	return i.lastErr
}

// Close releases any resources allocated to the iterator.
func (i *esIterator) Close() error {
	i.client = nil
	i.searchReq = nil
	if i.searchRes != nil {
		i.cumIdx = i.searchRes.Hits.Total.Count
	}

	return nil
}
