package graphtest

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	check "gopkg.in/check.v1"

	"github.com/mycok/sherlook/linkgraph/graph"
)

// TestUpsertLinksForUnknownSource verifies that links cannot be attached to
// a missing document.
func (s *BaseSuite) TestUpsertLinksForUnknownSource(c *check.C) {
	err := s.g.UpsertLinks(context.TODO(), uuid.New(), []string{"https://example.com"})
	c.Assert(errors.Is(err, graph.ErrUnknownDocument), check.Equals, true)
}

// TestLinkResolution verifies that only links whose target URL belongs to a
// stored document are returned and that upserts replace the raw links.
func (s *BaseSuite) TestLinkResolution(c *check.C) {
	ctx := context.TODO()
	a := s.upsertDoc(c, "https://a.example")
	b := s.upsertDoc(c, "https://b.example")

	err := s.g.UpsertLinks(ctx, a.ID, []string{
		"https://b.example",
		"https://c.example", // not crawled yet
	})
	c.Assert(err, check.IsNil)
	c.Assert(s.g.UpsertLinks(ctx, b.ID, []string{"https://a.example"}), check.IsNil)

	c.Assert(s.collectLinks(c), check.DeepEquals, sortedLinks(
		graph.Link{Source: a.ID, Target: b.ID},
		graph.Link{Source: b.ID, Target: a.ID},
	))

	// Crawling the missing target resolves the dangling raw link.
	cDoc := s.upsertDoc(c, "https://c.example")
	c.Assert(s.collectLinks(c), check.DeepEquals, sortedLinks(
		graph.Link{Source: a.ID, Target: b.ID},
		graph.Link{Source: a.ID, Target: cDoc.ID},
		graph.Link{Source: b.ID, Target: a.ID},
	))

	// Replacing the outgoing links of a drops the previous ones.
	c.Assert(s.g.UpsertLinks(ctx, a.ID, []string{"https://c.example"}), check.IsNil)
	c.Assert(s.collectLinks(c), check.DeepEquals, sortedLinks(
		graph.Link{Source: a.ID, Target: cDoc.ID},
		graph.Link{Source: b.ID, Target: a.ID},
	))

	// An empty list clears every outgoing link.
	c.Assert(s.g.UpsertLinks(ctx, a.ID, nil), check.IsNil)
	c.Assert(s.collectLinks(c), check.DeepEquals, sortedLinks(
		graph.Link{Source: b.ID, Target: a.ID},
	))
}

// TestDuplicateLinksAreKept verifies that repeated target URLs produce one
// resolved link per occurrence.
func (s *BaseSuite) TestDuplicateLinksAreKept(c *check.C) {
	ctx := context.TODO()
	a := s.upsertDoc(c, "https://a.example")
	b := s.upsertDoc(c, "https://b.example")

	err := s.g.UpsertLinks(ctx, a.ID, []string{"https://b.example", "https://b.example"})
	c.Assert(err, check.IsNil)

	c.Assert(s.collectLinks(c), check.DeepEquals, sortedLinks(
		graph.Link{Source: a.ID, Target: b.ID},
		graph.Link{Source: a.ID, Target: b.ID},
	))
}

func (s *BaseSuite) upsertDoc(c *check.C, url string) *graph.Document {
	doc := &graph.Document{URL: url}
	c.Assert(s.g.UpsertDocument(context.TODO(), doc), check.IsNil)

	return doc
}

func (s *BaseSuite) collectLinks(c *check.C) []graph.Link {
	it, err := s.g.Links(context.TODO())
	c.Assert(err, check.IsNil)

	var links []graph.Link
	for it.Next() {
		links = append(links, *it.Link())
	}
	c.Assert(it.Error(), check.IsNil)
	c.Assert(it.Close(), check.IsNil)

	return sortedLinks(links...)
}

func sortedLinks(links ...graph.Link) []graph.Link {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source.String() < links[j].Source.String()
		}

		return links[i].Target.String() < links[j].Target.String()
	})

	return links
}
