/*
	Package es provides an index.Indexer backed by Elasticsearch.

	Every indexed document is stored as a single elasticsearch document whose
	id is the document id. Positioned words are kept in the non-indexed Words
	field together with the name of their section; the keyword Terms field
	lists the distinct words and serves candidate lookups and document
	frequency aggregations.
*/

package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/mycok/sherlook/textindexer/index"
)

// Static and compile-time check to ensure ElasticsearchIndex implements Indexer.
var _ index.Indexer = (*ElasticsearchIndex)(nil)

// Size of each page of results that is cached locally by the iterator.
const batchSize = 100

// Number of PageRank scores written per bulk request.
const pageRankBatchSize = 500

// The name of the elasticsearch index to use.
const indexName = "sherlook_textindexer"

// JSON data structure that defines the properties of an elasticsearch
// document.
var esMappings = `
{
  "mappings" : {
    "properties": {
      "ID": {"type": "keyword"},
      "URL": {"type": "keyword"},
      "Title": {"type": "text"},
      "Description": {"type": "text"},
      "Terms": {"type": "keyword"},
      "Words": {"type": "object", "enabled": false},
      "Size": {"type": "integer"},
      "IndexedAt": {"type": "date"},
      "PageRank": {"type": "double"}
    }
  }
}`

type esSearchRes struct {
	Hits         esSearchResHits `json:"hits"`
	Aggregations esAggregations  `json:"aggregations"`
}

type esSearchResHits struct {
	Total   esTotal        `json:"total"`
	HitList []esHitWrapper `json:"hits"`
}

type esTotal struct {
	Count uint64 `json:"value"`
}

type esHitWrapper struct {
	DocSource esDoc `json:"_source"`
}

type esAggregations struct {
	DocumentFrequency struct {
		Buckets []struct {
			Key      string `json:"key"`
			DocCount int    `json:"doc_count"`
		} `json:"buckets"`
	} `json:"df"`
}

type esCountRes struct {
	Count int `json:"count"`
}

type esGetRes struct {
	Found     bool  `json:"found"`
	DocSource esDoc `json:"_source"`
}

type esMgetRes struct {
	Docs []esGetRes `json:"docs"`
}

type esBulkRes struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int      `json:"status"`
		Error  *esError `json:"error"`
	} `json:"items"`
}

type esDoc struct {
	ID          string    `json:"ID"`
	URL         string    `json:"URL"`
	Title       string    `json:"Title"`
	Description string    `json:"Description"`
	Terms       []string  `json:"Terms"`
	Words       []esWord  `json:"Words"`
	Size        int       `json:"Size"`
	PageRank    float64   `json:"PageRank,omitempty"`
	IndexedAt   time.Time `json:"IndexedAt"`
}

type esWord struct {
	Text     string `json:"w"`
	Position int    `json:"p"`
	Section  string `json:"s"`
}

type esErrorRes struct {
	Error esError `json:"error"`
}

type esError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (e esError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Reason)
}

// ElasticsearchIndex is an Indexer implementation that uses elasticsearch
// to store positioned words and serve the lookups of the ranking engine.
type ElasticsearchIndex struct {
	client *elasticsearch.Client
	// Refresh policy applied to writes: "true" makes them visible to the
	// next read.
	refresh string
}

// NewEsIndexer instantiates and returns an index that
// uses an elasticsearch instance to index and query documents.
func NewEsIndexer(esNodes []string, shouldSyncUpdates bool) (*ElasticsearchIndex, error) {
	c, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: esNodes,
	})
	if err != nil {
		return nil, err
	}

	if err = initIndex(c); err != nil {
		return nil, err
	}

	refresh := "false"
	if shouldSyncUpdates {
		refresh = "true"
	}

	return &ElasticsearchIndex{
		client:  c,
		refresh: refresh,
	}, nil
}

// Index adds a new document or replaces the words of an existing one. The
// PageRank score of an existing document is preserved.
func (s *ElasticsearchIndex) Index(ctx context.Context, doc *index.Document) error {
	if doc.ID == uuid.Nil {
		return fmt.Errorf("index: %w", index.ErrMissingDocumentID)
	}

	doc.IndexedAt = time.Now().UTC()

	var buf bytes.Buffer
	// PageRank is left out of the partial document so updates keep the
	// stored score. Arrays are replaced wholesale.
	forUpdate := map[string]interface{}{
		"doc":           makeEsDoc(doc),
		"doc_as_upsert": true,
	}

	if err := json.NewEncoder(&buf).Encode(forUpdate); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	res, err := s.client.Update(
		indexName, doc.ID.String(), &buf,
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRefresh(s.refresh),
	)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	if err = unmarshalResponse(res, nil); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	return nil
}

// FindByID looks up a document by its id.
func (s *ElasticsearchIndex) FindByID(ctx context.Context, id uuid.UUID) (*index.Document, error) {
	res, err := s.client.Get(indexName, id.String(), s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("find by ID: %w", err)
	}

	if res.StatusCode == http.StatusNotFound {
		_ = res.Body.Close()

		return nil, fmt.Errorf("find by ID: %w", index.ErrNotFound)
	}

	var getRes esGetRes
	if err = unmarshalResponse(res, &getRes); err != nil {
		return nil, fmt.Errorf("find by ID: %w", err)
	}

	if !getRes.Found {
		return nil, fmt.Errorf("find by ID: %w", index.ErrNotFound)
	}

	doc, err := esDocToDoc(&getRes.DocSource)
	if err != nil {
		return nil, fmt.Errorf("find by ID: %w", err)
	}

	return doc, nil
}

// DocumentTerms returns one DocumentTerm per (document, word) pair for the
// provided words.
func (s *ElasticsearchIndex) DocumentTerms(ctx context.Context, words []string) ([]*index.DocumentTerm, error) {
	words = uniqueWords(words)
	if len(words) == 0 {
		return nil, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"terms": map[string]interface{}{
				"Terms": words,
			},
		},
		"sort": []string{"_doc"},
		"from": 0,
		"size": batchSize,
	}

	it, err := newEsIterator(ctx, s.client, query)
	if err != nil {
		return nil, fmt.Errorf("document terms: %w", err)
	}

	wanted := make(map[string]struct{}, len(words))
	for _, w := range words {
		wanted[w] = struct{}{}
	}

	var terms []*index.DocumentTerm
	for it.Next() {
		docTerms, err := documentTerms(it.Document(), wanted)
		if err != nil {
			_ = it.Close()

			return nil, fmt.Errorf("document terms: %w", err)
		}

		terms = append(terms, docTerms...)
	}

	if err := it.Error(); err != nil {
		_ = it.Close()

		return nil, fmt.Errorf("document terms: %w", err)
	}

	if err := it.Close(); err != nil {
		return nil, fmt.Errorf("document terms: %w", err)
	}

	return terms, nil
}

// IDF returns the inverse document frequency of every word present in the
// index.
func (s *ElasticsearchIndex) IDF(ctx context.Context, words []string) (map[string]float64, error) {
	words = uniqueWords(words)
	idf := make(map[string]float64, len(words))
	if len(words) == 0 {
		return idf, nil
	}

	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(indexName),
	)
	if err != nil {
		return nil, fmt.Errorf("idf: %w", err)
	}

	var countRes esCountRes
	if err = unmarshalResponse(res, &countRes); err != nil {
		return nil, fmt.Errorf("idf: %w", err)
	}

	query := map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"terms": map[string]interface{}{
				"Terms": words,
			},
		},
		"aggs": map[string]interface{}{
			"df": map[string]interface{}{
				"terms": map[string]interface{}{
					"field":   "Terms",
					"include": words,
					"size":    len(words),
				},
			},
		},
	}

	searchRes, err := performSearch(ctx, s.client, query)
	if err != nil {
		return nil, fmt.Errorf("idf: %w", err)
	}

	for _, b := range searchRes.Aggregations.DocumentFrequency.Buckets {
		if b.DocCount == 0 {
			continue
		}

		idf[b.Key] = index.IDF(countRes.Count, b.DocCount)
	}

	return idf, nil
}

// PageRanks returns the PageRank score of each known document.
func (s *ElasticsearchIndex) PageRanks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	scores := make(map[uuid.UUID]float64, len(ids))
	if len(ids) == 0 {
		return scores, nil
	}

	docs, err := s.multiGet(ctx, ids, "ID", "PageRank")
	if err != nil {
		return nil, fmt.Errorf("page ranks: %w", err)
	}

	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("page ranks: %w", err)
		}

		scores[id] = d.PageRank
	}

	return scores, nil
}

// UpdatePageRanks persists the provided scores with bulk partial updates.
// Unknown ids are ignored.
func (s *ElasticsearchIndex) UpdatePageRanks(ctx context.Context, scores map[uuid.UUID]float64) error {
	if len(scores) == 0 {
		return nil
	}

	var (
		buf   bytes.Buffer
		enc   = json.NewEncoder(&buf)
		count int
	)

	flush := func() error {
		if count == 0 {
			return nil
		}

		res, err := s.client.Bulk(
			bytes.NewReader(buf.Bytes()),
			s.client.Bulk.WithContext(ctx),
			s.client.Bulk.WithIndex(indexName),
			s.client.Bulk.WithRefresh(s.refresh),
		)
		if err != nil {
			return err
		}

		var bulkRes esBulkRes
		if err = unmarshalResponse(res, &bulkRes); err != nil {
			return err
		}

		if err = bulkError(&bulkRes); err != nil {
			return err
		}

		buf.Reset()
		count = 0

		return nil
	}

	for id, score := range scores {
		action := map[string]interface{}{"update": map[string]interface{}{"_id": id.String()}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("update page ranks: %w", err)
		}

		partial := map[string]interface{}{"doc": map[string]interface{}{"PageRank": score}}
		if err := enc.Encode(partial); err != nil {
			return fmt.Errorf("update page ranks: %w", err)
		}

		if count++; count == pageRankBatchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("update page ranks: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return fmt.Errorf("update page ranks: %w", err)
	}

	return nil
}

// WordsAroundPositions returns the words within window positions of the
// requested positions for each document.
func (s *ElasticsearchIndex) WordsAroundPositions(
	ctx context.Context, positions map[uuid.UUID][]int, window int,
) (map[uuid.UUID]map[int]string, error) {

	out := make(map[uuid.UUID]map[int]string, len(positions))
	if len(positions) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}

	docs, err := s.multiGet(ctx, ids, "ID", "Words")
	if err != nil {
		return nil, fmt.Errorf("words around positions: %w", err)
	}

	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("words around positions: %w", err)
		}

		for _, w := range d.Words {
			if !withinWindow(w.Position, positions[id], window) {
				continue
			}

			if out[id] == nil {
				out[id] = make(map[int]string)
			}
			out[id][w.Position] = w.Text
		}
	}

	return out, nil
}

// multiGet fetches the listed source fields of every existing document in
// ids.
func (s *ElasticsearchIndex) multiGet(ctx context.Context, ids []uuid.UUID, fields ...string) ([]esDoc, error) {
	idList := make([]string, 0, len(ids))
	for _, id := range ids {
		idList = append(idList, id.String())
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]interface{}{"ids": idList}); err != nil {
		return nil, err
	}

	res, err := s.client.Mget(
		&buf,
		s.client.Mget.WithContext(ctx),
		s.client.Mget.WithIndex(indexName),
		s.client.Mget.WithSourceIncludes(fields...),
	)
	if err != nil {
		return nil, err
	}

	var mgetRes esMgetRes
	if err = unmarshalResponse(res, &mgetRes); err != nil {
		return nil, err
	}

	docs := make([]esDoc, 0, len(mgetRes.Docs))
	for _, d := range mgetRes.Docs {
		if d.Found {
			docs = append(docs, d.DocSource)
		}
	}

	return docs, nil
}

func performSearch(
	ctx context.Context, client *elasticsearch.Client, query map[string]interface{},
) (*esSearchRes, error) {

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexName),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}

	var esRes esSearchRes
	if err = unmarshalResponse(res, &esRes); err != nil {
		return nil, err
	}

	return &esRes, nil
}

func initIndex(client *elasticsearch.Client) error {
	res, err := client.Indices.Create(
		indexName,
		client.Indices.Create.WithBody(strings.NewReader(esMappings)),
	)
	// For cases where index creation fails due to client issues,
	// ie network connection issues
	if err != nil {
		return fmt.Errorf("failed to create ES index: %w", err)
	}

	// For cases where index creation fails due to other issues, ie invalid params.
	if res.IsError() {
		err = unmarshalResponse(res, nil)

		var esErr esError
		if errors.As(err, &esErr) && esErr.Type == "resource_already_exists_exception" {
			return nil
		}

		return fmt.Errorf("failed to create ES index: %w", err)
	}

	_ = res.Body.Close()

	return nil
}

func unmarshalResponse(res *esapi.Response, into interface{}) error {
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errRes esErrorRes
		if err := json.NewDecoder(res.Body).Decode(&errRes); err != nil {
			return err
		}

		return errRes.Error
	}

	if into == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(into)
}

// bulkError returns the first item failure of a bulk response. Updates of
// missing documents are not failures.
func bulkError(res *esBulkRes) error {
	if !res.Errors {
		return nil
	}

	for _, item := range res.Items {
		for _, result := range item {
			if result.Error == nil || result.Status == http.StatusNotFound {
				continue
			}

			return *result.Error
		}
	}

	return nil
}

func documentTerms(doc *esDoc, wanted map[string]struct{}) ([]*index.DocumentTerm, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}

	var (
		order    []string
		builders = make(map[string]*index.DocumentTermBuilder)
	)

	for _, w := range doc.Words {
		if _, found := wanted[w.Text]; !found {
			continue
		}

		sec, err := index.ParseSection(w.Section)
		if err != nil {
			return nil, err
		}

		b := builders[w.Text]
		if b == nil {
			b = index.NewDocumentTermBuilder(w.Text, id, doc.URL, doc.Title, doc.Description, doc.Size)
			builders[w.Text] = b
			order = append(order, w.Text)
		}
		b.AddPositions(sec, w.Position)
	}

	terms := make([]*index.DocumentTerm, 0, len(order))
	for _, word := range order {
		term, err := builders[word].Build()
		if err != nil {
			return nil, err
		}

		terms = append(terms, term)
	}

	return terms, nil
}

func esDocToDoc(doc *esDoc) (*index.Document, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}

	words := make([]index.Word, 0, len(doc.Words))
	for _, w := range doc.Words {
		sec, err := index.ParseSection(w.Section)
		if err != nil {
			return nil, err
		}

		words = append(words, index.Word{Text: w.Text, Position: w.Position, Section: sec})
	}

	return &index.Document{
		ID:          id,
		URL:         doc.URL,
		Title:       doc.Title,
		Description: doc.Description,
		Words:       words,
		PageRank:    doc.PageRank,
		IndexedAt:   doc.IndexedAt.UTC(),
	}, nil
}

func makeEsDoc(doc *index.Document) esDoc {
	words := make([]esWord, 0, len(doc.Words))
	terms := make([]string, 0, len(doc.Words))
	seen := make(map[string]struct{}, len(doc.Words))

	for _, w := range doc.Words {
		words = append(words, esWord{Text: w.Text, Position: w.Position, Section: w.Section.String()})

		if _, dup := seen[w.Text]; !dup {
			seen[w.Text] = struct{}{}
			terms = append(terms, w.Text)
		}
	}

	// We intentionally skip PageRank as we don't want updates to
	// overwrite existing PageRank values.
	return esDoc{
		ID:          doc.ID.String(),
		URL:         doc.URL,
		Title:       doc.Title,
		Description: doc.Description,
		Terms:       terms,
		Words:       words,
		Size:        doc.Size(),
		IndexedAt:   doc.IndexedAt.UTC(),
	}
}

func withinWindow(pos int, anchors []int, window int) bool {
	for _, a := range anchors {
		if pos >= a-window && pos <= a+window {
			return true
		}
	}

	return false
}

func uniqueWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))

	for _, w := range words {
		if w == "" {
			continue
		}

		if _, dup := seen[w]; !dup {
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}

	return out
}
