/*
	Package cdb provides a graph.Graph backed by CockroachDB or PostgreSQL.

	It requires the following tables, shared with the text index store:

	CREATE TABLE documents (
	    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	    url           TEXT NOT NULL UNIQUE,
	    title         TEXT NOT NULL DEFAULT '',
	    description   TEXT NOT NULL DEFAULT '',
	    document_size INT NOT NULL DEFAULT 0,
	    page_rank     DOUBLE PRECISION NOT NULL DEFAULT 0,
	    indexed_at    TIMESTAMPTZ,
	    crawled_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE links (
	    source_id  UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	    target_url TEXT NOT NULL
	);
	CREATE INDEX links_source_idx ON links (source_id);
	CREATE INDEX links_target_idx ON links (target_url);
*/

package cdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mycok/sherlook/linkgraph/graph"
)

var (
	upsertDocumentQuery = `
					INSERT INTO documents (url, crawled_at)
					VALUES ($1, $2)
					ON CONFLICT (url)
					DO UPDATE SET crawled_at=GREATEST(documents.crawled_at, $2)
					RETURNING id, crawled_at
					`
	findDocumentQuery = "SELECT id, url, crawled_at FROM documents WHERE id=$1"

	documentsQuery = "SELECT id, url, crawled_at FROM documents"

	documentExistsQuery = "SELECT EXISTS (SELECT 1 FROM documents WHERE id=$1)"

	deleteLinksQuery = "DELETE FROM links WHERE source_id=$1"

	insertLinksQuery = `
					INSERT INTO links (source_id, target_url)
					SELECT $1, unnest($2::TEXT[])
					`

	// Only targets that resolve to a stored document are edges.
	resolvedLinksQuery = `
					SELECT l.source_id, d.id FROM links l
					JOIN documents d ON d.url = l.target_url
					`
)

// Static and compile-time check to ensure CockroachDBGraph implements
// Graph interface.
var _ graph.Graph = (*CockroachDBGraph)(nil)

// CockroachDBGraph implements a persistent document graph using a
// CockroachDB instance.
type CockroachDBGraph struct {
	db *sql.DB
}

// NewCockroachDBGraph returns a CockroachDBGraph instance.
func NewCockroachDBGraph(dsn string) (*CockroachDBGraph, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return &CockroachDBGraph{db}, nil
}

// Close terminates the connection to the cockroachDB instance.
func (s *CockroachDBGraph) Close() error {
	return s.db.Close()
}

// UpsertDocument creates a new or updates an existing document.
func (s *CockroachDBGraph) UpsertDocument(ctx context.Context, doc *graph.Document) error {
	var crawledAt time.Time

	err := s.db.QueryRowContext(
		ctx, upsertDocumentQuery, doc.URL, doc.CrawledAt.UTC(),
	).Scan(&doc.ID, &crawledAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	doc.CrawledAt = crawledAt.UTC()

	return nil
}

// FindDocument performs a document lookup by id.
func (s *CockroachDBGraph) FindDocument(ctx context.Context, id uuid.UUID) (*graph.Document, error) {
	doc := new(graph.Document)

	err := s.db.QueryRowContext(ctx, findDocumentQuery, id).Scan(&doc.ID, &doc.URL, &doc.CrawledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find document: %w", graph.ErrNotFound)
		}

		return nil, fmt.Errorf("find document: %w", err)
	}

	doc.CrawledAt = doc.CrawledAt.UTC()

	return doc, nil
}

// UpsertLinks replaces the raw outgoing links of the source document
// inside a single transaction.
func (s *CockroachDBGraph) UpsertLinks(ctx context.Context, sourceID uuid.UUID, targetURLs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert links: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err = tx.QueryRowContext(ctx, documentExistsQuery, sourceID).Scan(&exists); err != nil {
		return fmt.Errorf("upsert links: %w", err)
	}

	if !exists {
		return fmt.Errorf("upsert links: %w", graph.ErrUnknownDocument)
	}

	if _, err = tx.ExecContext(ctx, deleteLinksQuery, sourceID); err != nil {
		return fmt.Errorf("upsert links: %w", err)
	}

	if len(targetURLs) != 0 {
		if _, err = tx.ExecContext(ctx, insertLinksQuery, sourceID, pq.Array(targetURLs)); err != nil {
			if isForeignKeyViolationError(err) {
				err = graph.ErrUnknownDocument
			}

			return fmt.Errorf("upsert links: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("upsert links: %w", err)
	}

	return nil
}

// Documents returns an iterator over every stored document.
func (s *CockroachDBGraph) Documents(ctx context.Context) (graph.DocumentIterator, error) {
	rows, err := s.db.QueryContext(ctx, documentsQuery)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}

	return &documentIterator{rows: rows}, nil
}

// Links returns an iterator over every resolved link.
func (s *CockroachDBGraph) Links(ctx context.Context) (graph.LinkIterator, error) {
	rows, err := s.db.QueryContext(ctx, resolvedLinksQuery)
	if err != nil {
		return nil, fmt.Errorf("links: %w", err)
	}

	return &linkIterator{rows: rows}, nil
}

// isForeignKeyViolationError returns true if error is a foreign key
// constraint violation error.
func isForeignKeyViolationError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return pqErr.Code.Name() == "foreign_key_violation"
}
