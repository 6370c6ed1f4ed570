/*
	Package cdb provides an index.Indexer backed by CockroachDB or PostgreSQL.

	The documents table is shared with the link graph store
	(see linkgraph/store/cdb). The index additionally requires:

	CREATE TABLE words (
	    id   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	    word TEXT NOT NULL UNIQUE
	);

	CREATE TABLE document_words (
	    document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	    word_id     UUID NOT NULL REFERENCES words(id) ON DELETE CASCADE,
	    position    INT NOT NULL,
	    section     SMALLINT NOT NULL,
	    PRIMARY KEY (document_id, position)
	);
	CREATE INDEX document_words_word_idx ON document_words (word_id);
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

	"github.com/mycok/sherlook/textindexer/index"
)

// Number of PageRank scores written per UPDATE statement.
const pageRankBatchSize = 500

var (
	upsertDocumentQuery = `
					INSERT INTO documents (id, url, title, description, document_size, indexed_at)
					VALUES ($1, $2, $3, $4, $5, $6)
					ON CONFLICT (id)
					DO UPDATE SET url=$2, title=$3, description=$4, document_size=$5, indexed_at=$6
					`

	deleteDocumentWordsQuery = "DELETE FROM document_words WHERE document_id=$1"

	insertWordsQuery = `
					INSERT INTO words (word)
					SELECT DISTINCT unnest($1::TEXT[])
					ON CONFLICT (word) DO NOTHING
					`

	insertDocumentWordsQuery = `
					INSERT INTO document_words (document_id, word_id, position, section)
					SELECT $1, w.id, t.position, t.section
					FROM unnest($2::TEXT[], $3::INT[], $4::INT[]) AS t(word, position, section)
					JOIN words w ON w.word = t.word
					`

	findDocumentQuery = `
					SELECT id, url, title, description, page_rank, indexed_at
					FROM documents WHERE id=$1 AND indexed_at IS NOT NULL
					`

	documentWordsQuery = `
					SELECT w.word, dw.position, dw.section
					FROM document_words dw JOIN words w ON w.id = dw.word_id
					WHERE dw.document_id=$1 ORDER BY dw.position
					`

	documentTermsQuery = `
					SELECT w.word, d.id, d.url, d.title, d.description, d.document_size,
					       dw.section, dw.position
					FROM document_words dw
					JOIN words w ON w.id = dw.word_id
					JOIN documents d ON d.id = dw.document_id
					WHERE w.word = ANY($1)
					ORDER BY d.id, w.word
					`

	indexedDocumentCountQuery = "SELECT COUNT(*) FROM documents WHERE indexed_at IS NOT NULL"

	documentFrequencyQuery = `
					SELECT w.word, COUNT(DISTINCT dw.document_id)
					FROM words w JOIN document_words dw ON dw.word_id = w.id
					WHERE w.word = ANY($1)
					GROUP BY w.word
					`

	pageRanksQuery = "SELECT id, page_rank FROM documents WHERE id = ANY($1::UUID[])"

	updatePageRanksQuery = `
					UPDATE documents AS d SET page_rank = v.score
					FROM (
					    SELECT unnest($1::UUID[]) AS id, unnest($2::FLOAT8[]) AS score
					) AS v
					WHERE d.id = v.id
					`

	wordsAroundQuery = `
					SELECT dw.position, w.word
					FROM document_words dw JOIN words w ON w.id = dw.word_id
					WHERE dw.document_id=$1 AND dw.position BETWEEN $2 AND $3
					`
)

// Static and compile-time check to ensure CockroachDBIndex implements Indexer.
var _ index.Indexer = (*CockroachDBIndex)(nil)

// CockroachDBIndex implements a persistent positional text index using a
// CockroachDB instance.
type CockroachDBIndex struct {
	db *sql.DB
}

// NewCockroachDBIndex returns a CockroachDBIndex instance.
func NewCockroachDBIndex(dsn string) (*CockroachDBIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return &CockroachDBIndex{db: db}, nil
}

// Close terminates the connection to the cockroachDB instance.
func (s *CockroachDBIndex) Close() error {
	return s.db.Close()
}

// Index adds a new document or replaces the words of an existing one. The
// stored PageRank score is left untouched.
func (s *CockroachDBIndex) Index(ctx context.Context, doc *index.Document) error {
	if doc.ID == uuid.Nil {
		return fmt.Errorf("index: %w", index.ErrMissingDocumentID)
	}

	doc.IndexedAt = time.Now().UTC()

	words := make([]string, len(doc.Words))
	positions := make([]int64, len(doc.Words))
	sections := make([]int64, len(doc.Words))
	for i, w := range doc.Words {
		words[i] = w.Text
		positions[i] = int64(w.Position)
		sections[i] = int64(w.Section)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, upsertDocumentQuery,
			doc.ID, doc.URL, doc.Title, doc.Description, doc.Size(), doc.IndexedAt,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, deleteDocumentWordsQuery, doc.ID); err != nil {
			return err
		}

		if len(words) == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, insertWordsQuery, pq.Array(words)); err != nil {
			return err
		}

		_, err := tx.ExecContext(
			ctx, insertDocumentWordsQuery,
			doc.ID, pq.Array(words), pq.Array(positions), pq.Array(sections),
		)

		return err
	})
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	return nil
}

// FindByID looks up an indexed document by its id.
func (s *CockroachDBIndex) FindByID(ctx context.Context, id uuid.UUID) (*index.Document, error) {
	doc := new(index.Document)
	var indexedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, findDocumentQuery, id).Scan(
		&doc.ID, &doc.URL, &doc.Title, &doc.Description, &doc.PageRank, &indexedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find by ID: %w", index.ErrNotFound)
		}

		return nil, fmt.Errorf("find by ID: %w", err)
	}

	doc.IndexedAt = indexedAt.Time.UTC()

	rows, err := s.db.QueryContext(ctx, documentWordsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("find by ID: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			w       index.Word
			section int
		)
		if err := rows.Scan(&w.Text, &w.Position, &section); err != nil {
			return nil, fmt.Errorf("find by ID: %w", err)
		}

		w.Section = index.Section(section)
		doc.Words = append(doc.Words, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find by ID: %w", err)
	}

	return doc, nil
}

// DocumentTerms returns one DocumentTerm per (document, word) pair for the
// provided words.
func (s *CockroachDBIndex) DocumentTerms(ctx context.Context, words []string) ([]*index.DocumentTerm, error) {
	if len(words) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, documentTermsQuery, pq.Array(words))
	if err != nil {
		return nil, fmt.Errorf("document terms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type termKey struct {
		id   uuid.UUID
		word string
	}

	var (
		order    []termKey
		builders = make(map[termKey]*index.DocumentTermBuilder)
	)

	for rows.Next() {
		var (
			word, url, title, description string
			id                            uuid.UUID
			size, section, position       int
		)

		if err := rows.Scan(
			&word, &id, &url, &title, &description, &size, &section, &position,
		); err != nil {
			return nil, fmt.Errorf("document terms: %w", err)
		}

		key := termKey{id: id, word: word}
		b, exists := builders[key]
		if !exists {
			b = index.NewDocumentTermBuilder(word, id, url, title, description, size)
			builders[key] = b
			order = append(order, key)
		}

		b.AddPositions(index.Section(section), position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document terms: %w", err)
	}

	terms := make([]*index.DocumentTerm, 0, len(order))
	for _, key := range order {
		term, err := builders[key].Build()
		if err != nil {
			return nil, fmt.Errorf("document terms: %w", err)
		}

		terms = append(terms, term)
	}

	return terms, nil
}

// IDF returns the inverse document frequency of every word present in the
// index.
func (s *CockroachDBIndex) IDF(ctx context.Context, words []string) (map[string]float64, error) {
	idf := make(map[string]float64, len(words))
	if len(words) == 0 {
		return idf, nil
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, indexedDocumentCountQuery).Scan(&total); err != nil {
		return nil, fmt.Errorf("idf: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, documentFrequencyQuery, pq.Array(words))
	if err != nil {
		return nil, fmt.Errorf("idf: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			word string
			df   int64
		)
		if err := rows.Scan(&word, &df); err != nil {
			return nil, fmt.Errorf("idf: %w", err)
		}

		if df == 0 {
			continue
		}

		idf[word] = index.IDF(int(total), int(df))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("idf: %w", err)
	}

	return idf, nil
}

// PageRanks returns the PageRank score of each known document.
func (s *CockroachDBIndex) PageRanks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	scores := make(map[uuid.UUID]float64, len(ids))
	if len(ids) == 0 {
		return scores, nil
	}

	rows, err := s.db.QueryContext(ctx, pageRanksQuery, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("page ranks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id    uuid.UUID
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("page ranks: %w", err)
		}

		scores[id] = score
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("page ranks: %w", err)
	}

	return scores, nil
}

// UpdatePageRanks persists the provided scores in batches inside a single
// transaction. Unknown ids are ignored.
func (s *CockroachDBIndex) UpdatePageRanks(ctx context.Context, scores map[uuid.UUID]float64) error {
	if len(scores) == 0 {
		return nil
	}

	ids := make([]string, 0, len(scores))
	values := make([]float64, 0, len(scores))
	for id, score := range scores {
		ids = append(ids, id.String())
		values = append(values, score)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(ids); start += pageRankBatchSize {
			end := min(start+pageRankBatchSize, len(ids))

			if _, err := tx.ExecContext(
				ctx, updatePageRanksQuery, pq.Array(ids[start:end]), pq.Array(values[start:end]),
			); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("update page ranks: %w", err)
	}

	return nil
}

// WordsAroundPositions returns the words within window positions of the
// requested positions for each document.
func (s *CockroachDBIndex) WordsAroundPositions(
	ctx context.Context, positions map[uuid.UUID][]int, window int,
) (map[uuid.UUID]map[int]string, error) {

	out := make(map[uuid.UUID]map[int]string, len(positions))

	for id, list := range positions {
		for _, pos := range list {
			if err := s.wordsAround(ctx, id, max(0, pos-window), pos+window, out); err != nil {
				return nil, fmt.Errorf("words around positions: %w", err)
			}
		}
	}

	return out, nil
}

func (s *CockroachDBIndex) wordsAround(
	ctx context.Context, id uuid.UUID, from, to int, out map[uuid.UUID]map[int]string,
) error {

	rows, err := s.db.QueryContext(ctx, wordsAroundQuery, id, from, to)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			pos  int
			word string
		)
		if err := rows.Scan(&pos, &word); err != nil {
			return err
		}

		if out[id] == nil {
			out[id] = make(map[int]string)
		}
		out[id][pos] = word
	}

	return rows.Err()
}

// inTx runs fn inside a transaction that is committed when fn succeeds and
// rolled back otherwise.
func (s *CockroachDBIndex) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}
