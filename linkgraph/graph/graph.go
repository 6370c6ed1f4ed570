/*
	graph package defines the types that describe the crawled document
	graph: documents (vertices), their raw outgoing links and the resolved
	links (edges) between stored documents.
*/

package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Graph should be implemented by link graph data stores.
type Graph interface {
	// UpsertDocument creates a new or updates an existing document. A new
	// document is assigned an ID; an existing URL keeps its ID.
	UpsertDocument(ctx context.Context, doc *Document) error

	// FindDocument performs a document lookup by id.
	FindDocument(ctx context.Context, id uuid.UUID) (*Document, error)

	// UpsertLinks replaces the raw outgoing links of the source document
	// with targetURLs.
	UpsertLinks(ctx context.Context, sourceID uuid.UUID, targetURLs []string) error

	// Documents returns an iterator over every stored document.
	Documents(ctx context.Context) (DocumentIterator, error)

	// Links returns an iterator over every resolved link, i.e. raw links
	// whose target URL belongs to a stored document.
	Links(ctx context.Context) (LinkIterator, error)
}

// DocumentIterator is implemented by types that iterate graph documents.
type DocumentIterator interface {
	Iterator

	// Document returns the currently fetched document.
	Document() *Document
}

// LinkIterator is implemented by types that iterate resolved links.
type LinkIterator interface {
	Iterator

	// Link returns the currently fetched link.
	Link() *Link
}

// Iterator should be embedded / implemented by types that require
// iteration functionality.
type Iterator interface {
	// Next loads the next item, returns false when no more items
	// are available or when an error occurs.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources allocated to the iterator.
	Close() error
}

// Document is a crawled page; a vertex of the graph.
type Document struct {
	ID        uuid.UUID // Document unique identifier
	URL       string    // Normalized page URL
	CrawledAt time.Time // Last crawl timestamp
}

// Link is a directed edge from one stored document to another.
type Link struct {
	Source uuid.UUID
	Target uuid.UUID
}
