package cdb

import (
	"database/sql"
	"fmt"

	"github.com/mycok/sherlook/linkgraph/graph"
)

// Static and compile-time checks to ensure the iterators implement the
// graph iterator interfaces.
var (
	_ graph.DocumentIterator = (*documentIterator)(nil)
	_ graph.LinkIterator     = (*linkIterator)(nil)
)

// documentIterator is a graph.DocumentIterator implementation for the
// cockroachDB graph. It wraps the [database/sql] Rows type that serves as an
// iterator for the returned query data.
type documentIterator struct {
	rows    *sql.Rows
	lastErr error
	doc     *graph.Document
}

// Next loads the next item, returns false when no more documents
// are available or when an error occurs.
func (i *documentIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	d := new(graph.Document)
	if i.lastErr = i.rows.Scan(&d.ID, &d.URL, &d.CrawledAt); i.lastErr != nil {
		return false
	}

	d.CrawledAt = d.CrawledAt.UTC()
	i.doc = d

	return true
}

// Error returns the last error encountered by the iterator.
func (i *documentIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}

	return i.rows.Err()
}

// Close releases any resources allocated to the iterator.
func (i *documentIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return fmt.Errorf("document iterator: %w", err)
	}

	return nil
}

// Document returns the currently fetched document.
func (i *documentIterator) Document() *graph.Document {
	return i.doc
}

// linkIterator is a graph.LinkIterator implementation for the cockroachDB graph.
type linkIterator struct {
	rows    *sql.Rows
	lastErr error
	link    *graph.Link
}

// Next advances the iterator. When no items are available or when an
// error occurs, calls to Next() return false.
func (i *linkIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	l := new(graph.Link)
	if i.lastErr = i.rows.Scan(&l.Source, &l.Target); i.lastErr != nil {
		return false
	}

	i.link = l

	return true
}

// Error returns the last error recorded by the iterator.
func (i *linkIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}

	return i.rows.Err()
}

// Close releases any resources linked to the iterator.
func (i *linkIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return fmt.Errorf("link iterator: %w", err)
	}

	return nil
}

// Link returns the currently fetched link.
func (i *linkIterator) Link() *graph.Link {
	return i.link
}
