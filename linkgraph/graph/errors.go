package graph

import "errors"

var (
	// ErrNotFound is returned when a document lookup fails.
	ErrNotFound = errors.New("not found")

	// ErrUnknownDocument is returned when links are attached to a
	// document that does not exist.
	ErrUnknownDocument = errors.New("unknown source document")
)
