package indextest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	check "gopkg.in/check.v1"

	"github.com/mycok/sherlook/textindexer/index"
)

// BaseSuite defines a set of re-usable index related tests that can
// be executed against any concrete type that implements the index.Indexer interface.
type BaseSuite struct {
	idx index.Indexer
}

// SetIndex sets BaseSuite's index field.
func (s *BaseSuite) SetIndex(idx index.Indexer) {
	s.idx = idx
}

// TestIndexingDocument verifies the indexing logic for new and existing documents.
func (s *BaseSuite) TestIndexingDocument(c *check.C) {
	ctx := context.TODO()
	doc := makeDoc(uuid.New(), "https://example.com", "machine learning basics", "learning from data")

	err := s.idx.Index(ctx, doc)
	c.Assert(err, check.IsNil, check.Commentf("++++Index insert++++: %v", err))

	updated := makeDoc(doc.ID, doc.URL, "updated title", "entirely new body")
	err = s.idx.Index(ctx, updated)
	c.Assert(err, check.IsNil, check.Commentf("++++Index update++++: %v", err))

	got, err := s.idx.FindByID(ctx, doc.ID)
	c.Assert(err, check.IsNil)
	c.Assert(got.URL, check.Equals, updated.URL)
	c.Assert(got.Title, check.Equals, updated.Title)
	c.Assert(got.Size(), check.Equals, updated.Size())

	// Words of the previous version must no longer match.
	terms, err := s.idx.DocumentTerms(ctx, []string{"machine"})
	c.Assert(err, check.IsNil)
	c.Assert(terms, check.HasLen, 0)

	err = s.idx.Index(ctx, &index.Document{URL: "https://example.com"})
	c.Assert(errors.Is(err, index.ErrMissingDocumentID), check.Equals, true)
}

// TestFindByIDForUnknownDocument verifies the lookup of a missing document.
func (s *BaseSuite) TestFindByIDForUnknownDocument(c *check.C) {
	_, err := s.idx.FindByID(context.TODO(), uuid.New())
	c.Assert(errors.Is(err, index.ErrNotFound), check.Equals, true)
}

// TestDocumentTerms verifies that terms are grouped per document and word
// with their positions merged across sections.
func (s *BaseSuite) TestDocumentTerms(c *check.C) {
	ctx := context.TODO()
	id1, id2, id3 := uuid.New(), uuid.New(), uuid.New()

	c.Assert(s.idx.Index(ctx, makeDoc(id1, "https://a.example", "machine learning", "machine vision and learning")), check.IsNil)
	c.Assert(s.idx.Index(ctx, makeDoc(id2, "https://b.example", "cooking", "a machine for bread")), check.IsNil)
	c.Assert(s.idx.Index(ctx, makeDoc(id3, "https://c.example", "gardening", "soil and water")), check.IsNil)

	terms, err := s.idx.DocumentTerms(ctx, []string{"machine", "learning", "unknown"})
	c.Assert(err, check.IsNil)
	c.Assert(terms, check.HasLen, 3)

	byKey := make(map[string]*index.DocumentTerm)
	for _, t := range terms {
		byKey[t.DocumentID().String()+"/"+t.Word()] = t
	}

	machineA := byKey[id1.String()+"/machine"]
	c.Assert(machineA, check.NotNil)
	c.Assert(machineA.URL(), check.Equals, "https://a.example")
	c.Assert(machineA.Title(), check.Equals, "machine learning")
	c.Assert(machineA.DocumentSize(), check.Equals, 6)
	c.Assert(machineA.Positions(index.SectionTitle), check.DeepEquals, []int{0})
	c.Assert(machineA.Positions(index.SectionBody), check.DeepEquals, []int{2})

	learningA := byKey[id1.String()+"/learning"]
	c.Assert(learningA, check.NotNil)
	c.Assert(learningA.Positions(index.SectionTitle), check.DeepEquals, []int{1})
	c.Assert(learningA.Positions(index.SectionBody), check.DeepEquals, []int{5})

	machineB := byKey[id2.String()+"/machine"]
	c.Assert(machineB, check.NotNil)
	c.Assert(machineB.Positions(index.SectionBody), check.DeepEquals, []int{2})

	terms, err = s.idx.DocumentTerms(ctx, nil)
	c.Assert(err, check.IsNil)
	c.Assert(terms, check.HasLen, 0)
}

// TestIDF verifies that rarer words get a larger inverse document frequency,
// that a word found in every document scores about 0 and that unknown words
// are omitted.
func (s *BaseSuite) TestIDF(c *check.C) {
	ctx := context.TODO()
	for i := 0; i < 20; i++ {
		body := "the page"
		if i == 0 {
			body = "the machine page"
		}

		doc := makeDoc(uuid.New(), fmt.Sprintf("https://%d.example", i), "doc", body)
		c.Assert(s.idx.Index(ctx, doc), check.IsNil)
	}

	idf, err := s.idx.IDF(ctx, []string{"the", "machine", "missing"})
	c.Assert(err, check.IsNil)
	c.Assert(idf, check.HasLen, 2)
	c.Assert(math.Abs(idf["the"]) < 1e-4, check.Equals, true, check.Commentf("idf(the) = %f", idf["the"]))
	c.Assert(math.Abs(idf["machine"]-math.Log10(20)) < 1e-3, check.Equals, true, check.Commentf("idf(machine) = %f", idf["machine"]))
	c.Assert(idf["machine"], check.Equals, index.IDF(20, 1))
}

// TestPageRanks verifies PageRank persistence and that re-indexing a
// document does not override its score.
func (s *BaseSuite) TestPageRanks(c *check.C) {
	ctx := context.TODO()
	id1, id2 := uuid.New(), uuid.New()
	c.Assert(s.idx.Index(ctx, makeDoc(id1, "https://a.example", "a", "one")), check.IsNil)
	c.Assert(s.idx.Index(ctx, makeDoc(id2, "https://b.example", "b", "two")), check.IsNil)

	err := s.idx.UpdatePageRanks(ctx, map[uuid.UUID]float64{id1: 0.25, id2: 0.75, uuid.New(): 0.1})
	c.Assert(err, check.IsNil)

	c.Assert(s.idx.Index(ctx, makeDoc(id1, "https://a.example", "a again", "one again")), check.IsNil)

	scores, err := s.idx.PageRanks(ctx, []uuid.UUID{id1, id2, uuid.New()})
	c.Assert(err, check.IsNil)
	c.Assert(scores, check.DeepEquals, map[uuid.UUID]float64{id1: 0.25, id2: 0.75})

	scores, err = s.idx.PageRanks(ctx, nil)
	c.Assert(err, check.IsNil)
	c.Assert(scores, check.HasLen, 0)
}

// TestWordsAroundPositions verifies window lookups around positions.
func (s *BaseSuite) TestWordsAroundPositions(c *check.C) {
	ctx := context.TODO()
	id := uuid.New()
	c.Assert(s.idx.Index(ctx, makeDoc(id, "https://a.example", "the title", "zero one two three four five six")), check.IsNil)

	words, err := s.idx.WordsAroundPositions(ctx, map[uuid.UUID][]int{id: {1, 7}, uuid.New(): {3}}, 1)
	c.Assert(err, check.IsNil)
	c.Assert(words, check.HasLen, 1)

	got := words[id]
	positions := make([]int, 0, len(got))
	for p := range got {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	c.Assert(positions, check.DeepEquals, []int{0, 1, 2, 6, 7, 8})
	c.Assert(got[0], check.Equals, "the")
	c.Assert(got[2], check.Equals, "zero")
	c.Assert(got[8], check.Equals, "six")
}

// makeDoc builds a document whose title words come first followed by the
// body words, positions increasing from zero.
func makeDoc(id uuid.UUID, url, title, body string) *index.Document {
	doc := &index.Document{ID: id, URL: url, Title: title, Description: body}

	pos := 0
	for _, w := range strings.Fields(title) {
		doc.Words = append(doc.Words, index.Word{Text: w, Position: pos, Section: index.SectionTitle})
		pos++
	}

	for _, w := range strings.Fields(body) {
		doc.Words = append(doc.Words, index.Word{Text: w, Position: pos, Section: index.SectionBody})
		pos++
	}

	return doc
}
