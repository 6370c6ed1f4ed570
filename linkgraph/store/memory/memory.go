package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mycok/sherlook/linkgraph/graph"
)

// Static and compile-time check to ensure InMemoryGraph implements
// Graph interface.
var _ graph.Graph = (*InMemoryGraph)(nil)

// InMemoryGraph implements an in-memory document graph that can be concurrently
// accessed by multiple clients.
type InMemoryGraph struct {
	mu          sync.RWMutex
	docs        map[uuid.UUID]*graph.Document
	docURLIndex map[string]*graph.Document
	// Raw outgoing target URLs per source document.
	outLinks map[uuid.UUID][]string
}

// NewInMemoryGraph creates a new in-memory document graph.
func NewInMemoryGraph() *InMemoryGraph {
	return &InMemoryGraph{
		docs:        make(map[uuid.UUID]*graph.Document),
		docURLIndex: make(map[string]*graph.Document),
		outLinks:    make(map[uuid.UUID][]string),
	}
}

// UpsertDocument creates a new or updates an existing document.
func (s *InMemoryGraph) UpsertDocument(_ context.Context, doc *graph.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A document with the same URL turns the operation into an update that
	// only moves CrawledAt forward.
	if existing, exists := s.docURLIndex[doc.URL]; exists {
		doc.ID = existing.ID
		if doc.CrawledAt.After(existing.CrawledAt) {
			existing.CrawledAt = doc.CrawledAt
		}

		return nil
	}

	for {
		doc.ID = uuid.New()
		if _, exists := s.docs[doc.ID]; !exists {
			break
		}
	}

	dCopy := new(graph.Document)
	*dCopy = *doc
	s.docs[dCopy.ID] = dCopy
	s.docURLIndex[dCopy.URL] = dCopy

	return nil
}

// FindDocument performs a document lookup by id.
func (s *InMemoryGraph) FindDocument(_ context.Context, id uuid.UUID) (*graph.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[id]
	if !exists {
		return nil, fmt.Errorf("find document: %w", graph.ErrNotFound)
	}

	dCopy := new(graph.Document)
	*dCopy = *doc

	return dCopy, nil
}

// UpsertLinks replaces the raw outgoing links of the source document.
func (s *InMemoryGraph) UpsertLinks(_ context.Context, sourceID uuid.UUID, targetURLs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[sourceID]; !exists {
		return fmt.Errorf("upsert links: %w", graph.ErrUnknownDocument)
	}

	if len(targetURLs) == 0 {
		delete(s.outLinks, sourceID)
		return nil
	}

	s.outLinks[sourceID] = append([]string(nil), targetURLs...)

	return nil
}

// Documents returns an iterator over a snapshot of every stored document.
func (s *InMemoryGraph) Documents(_ context.Context) (graph.DocumentIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*graph.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		dCopy := new(graph.Document)
		*dCopy = *doc
		list = append(list, dCopy)
	}

	return &documentIterator{documents: list}, nil
}

// Links returns an iterator over a snapshot of the resolved links.
func (s *InMemoryGraph) Links(_ context.Context) (graph.LinkIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*graph.Link
	for src, targets := range s.outLinks {
		for _, url := range targets {
			dst, exists := s.docURLIndex[url]
			if !exists {
				continue
			}

			list = append(list, &graph.Link{Source: src, Target: dst.ID})
		}
	}

	return &linkIterator{links: list}, nil
}
