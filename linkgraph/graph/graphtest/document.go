package graphtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	check "gopkg.in/check.v1"

	"github.com/mycok/sherlook/linkgraph/graph"
)

// TestDocumentUpsert verifies the document upsert logic.
func (s *BaseSuite) TestDocumentUpsert(c *check.C) {
	ctx := context.TODO()
	initial := &graph.Document{
		URL:       "https://example.com",
		CrawledAt: time.Now().Add(-10 * time.Hour).Truncate(time.Second).UTC(),
	}

	err := s.g.UpsertDocument(ctx, initial)
	c.Assert(err, check.IsNil)
	c.Assert(initial.ID, check.Not(check.Equals), uuid.Nil,
		check.Commentf("Expected an ID to be assigned to the new document."),
	)

	// Upserting the same URL keeps the id and refreshes the crawl time.
	crawledAt := time.Now().Truncate(time.Second).UTC()
	again := &graph.Document{URL: initial.URL, CrawledAt: crawledAt}

	err = s.g.UpsertDocument(ctx, again)
	c.Assert(err, check.IsNil)
	c.Assert(again.ID, check.Equals, initial.ID, check.Commentf("ID changed during upsert"))

	doc, err := s.g.FindDocument(ctx, initial.ID)
	c.Assert(err, check.IsNil)
	c.Assert(doc.URL, check.Equals, initial.URL)
	c.Assert(doc.CrawledAt, check.Equals, crawledAt)

	// An older crawl time must not overwrite a newer one.
	older := &graph.Document{URL: initial.URL, CrawledAt: crawledAt.Add(-time.Hour)}
	c.Assert(s.g.UpsertDocument(ctx, older), check.IsNil)

	doc, err = s.g.FindDocument(ctx, initial.ID)
	c.Assert(err, check.IsNil)
	c.Assert(doc.CrawledAt, check.Equals, crawledAt)
}

// TestFindDocument verifies the document lookup logic.
func (s *BaseSuite) TestFindDocument(c *check.C) {
	ctx := context.TODO()
	doc := &graph.Document{
		URL:       "https://example.com",
		CrawledAt: time.Now().Truncate(time.Second).UTC(),
	}
	c.Assert(s.g.UpsertDocument(ctx, doc), check.IsNil)

	found, err := s.g.FindDocument(ctx, doc.ID)
	c.Assert(err, check.IsNil)
	c.Assert(found, check.DeepEquals, doc)

	// Mutating the returned value must not alter the stored document.
	found.URL = "https://changed.example"
	again, err := s.g.FindDocument(ctx, doc.ID)
	c.Assert(err, check.IsNil)
	c.Assert(again.URL, check.Equals, doc.URL)

	_, err = s.g.FindDocument(ctx, uuid.New())
	c.Assert(errors.Is(err, graph.ErrNotFound), check.Equals, true)
}

// TestDocumentIterator verifies that every stored document is visited once.
func (s *BaseSuite) TestDocumentIterator(c *check.C) {
	ctx := context.TODO()
	expected := make([]string, 0, 10)

	for i := 0; i < 10; i++ {
		doc := &graph.Document{URL: fmt.Sprintf("https://example.com/%d", i)}
		c.Assert(s.g.UpsertDocument(ctx, doc), check.IsNil)
		expected = append(expected, doc.ID.String())
	}

	it, err := s.g.Documents(ctx)
	c.Assert(err, check.IsNil)

	var got []string
	for it.Next() {
		got = append(got, it.Document().ID.String())
	}
	c.Assert(it.Error(), check.IsNil)
	c.Assert(it.Close(), check.IsNil)

	sort.Strings(expected)
	sort.Strings(got)
	c.Assert(got, check.DeepEquals, expected)
}
