package index

import "errors"

var (
	// ErrNotFound is returned by the indexer when it attempts to look up
	// a document that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMissingDocumentID is returned when an indexer attempts to index a
	// document with an invalid / missing id.
	ErrMissingDocumentID = errors.New("document has missing / invalid id")

	// ErrUnknownSection is returned when a stored section name cannot be
	// mapped to a Section.
	ErrUnknownSection = errors.New("unknown section")

	// ErrNoPositions is returned when a DocumentTerm is built without any
	// word positions.
	ErrNoPositions = errors.New("document term has no positions")
)
