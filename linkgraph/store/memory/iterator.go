package memory

import (
	"github.com/mycok/sherlook/linkgraph/graph"
)

// Static and compile-time checks to ensure the iterators implement the
// graph iterator interfaces.
var (
	_ graph.DocumentIterator = (*documentIterator)(nil)
	_ graph.LinkIterator     = (*linkIterator)(nil)
)

// documentIterator is a graph.DocumentIterator implementation for the
// in-memory graph. It walks a snapshot taken when it was created.
type documentIterator struct {
	documents []*graph.Document
	current   int
}

// Next loads the next item, returns false when no more documents
// are available.
func (i *documentIterator) Next() bool {
	if i.current >= len(i.documents) {
		return false
	}

	i.current++

	return true
}

// Error returns the last error encountered by the iterator.
func (i *documentIterator) Error() error {
	return nil
}

// Close releases any resources allocated to the iterator.
func (i *documentIterator) Close() error {
	return nil
}

// Document returns the currently fetched document.
func (i *documentIterator) Document() *graph.Document {
	return i.documents[i.current-1]
}

// linkIterator is a graph.LinkIterator implementation for the in-memory graph.
type linkIterator struct {
	links   []*graph.Link
	current int
}

// Next advances the iterator.
func (i *linkIterator) Next() bool {
	if i.current >= len(i.links) {
		return false
	}

	i.current++

	return true
}

// Error returns the last error encountered by the iterator.
func (i *linkIterator) Error() error {
	return nil
}

// Close releases any resources allocated to the iterator.
func (i *linkIterator) Close() error {
	return nil
}

// Link returns the currently fetched link.
func (i *linkIterator) Link() *graph.Link {
	return i.links[i.current-1]
}
