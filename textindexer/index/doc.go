package index

import (
	"time"

	"github.com/google/uuid"
)

// Document defines a crawled web-page whose words have been tokenized and
// positioned by the indexing pipeline.
type Document struct {
	// ID of the link graph document this entry describes.
	ID uuid.UUID

	// URL pointing to the source of the document content.
	URL string

	// Title of the document (if available).
	Title string

	// Short description (meta description or leading text) of the document.
	Description string

	// Words holds every indexed word together with its absolute position
	// and the section it was found in.
	Words []Word

	// PageRank score assigned to this document.
	PageRank float64

	// Last time the document was indexed.
	IndexedAt time.Time
}

// Size returns the number of indexed words in the document.
func (d *Document) Size() int {
	return len(d.Words)
}

// Word is a single tokenized word occurrence.
type Word struct {
	// Normalized word text.
	Text string

	// Absolute position of the word inside the document.
	Position int

	// Section the word was found in.
	Section Section
}
