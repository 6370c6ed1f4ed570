package es

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	check "gopkg.in/check.v1"

	"github.com/mycok/sherlook/textindexer/index"
	"github.com/mycok/sherlook/textindexer/index/indextest"
)

// Initialize and register an instance of the esIndexTestSuite to be
// executed by check testing package.
var _ = check.Suite(new(esIndexTestSuite))

// Test registers the [check] library with the go testing library and enables
// the running of the test suite using the go testing library.
func Test(t *testing.T) {
	check.TestingT(t)
}

// esIndexTestSuite embeds and runs the BaseSuite tests methods.
type esIndexTestSuite struct {
	idx *ElasticsearchIndex
	indextest.BaseSuite
}

// SetUpSuite runs only once before all tests in the test suite. It skips the
// suite unless ES_NODES lists the elasticsearch nodes to run against.
func (s *esIndexTestSuite) SetUpSuite(c *check.C) {
	nodeList := os.Getenv("ES_NODES")
	if nodeList == "" {
		c.Skip("Missing ES_NODES envvar: skipping elasticsearch index test suite")
	}

	idx, err := NewEsIndexer(strings.Split(nodeList, ","), true)
	if err != nil {
		c.Fatal(err)
	}

	s.SetIndex(idx)
	s.idx = idx
}

// SetUpTest recreates the elasticsearch index before each test.
func (s *esIndexTestSuite) SetUpTest(c *check.C) {
	if s.idx.client != nil {
		_, err := s.idx.client.Indices.Delete([]string{indexName})
		c.Assert(err, check.IsNil)

		err = initIndex(s.idx.client)
		c.Assert(err, check.IsNil)
	}
}

func (s *esIndexTestSuite) TearDownSuite(c *check.C) {
	if s.idx != nil && s.idx.client != nil {
		_, err := s.idx.client.Indices.Delete([]string{indexName})
		c.Assert(err, check.IsNil)
	}
}

// TestCandidatesSpanMultipleBatches ensures the iterator keeps paging past
// the first page of search hits.
func (s *esIndexTestSuite) TestCandidatesSpanMultipleBatches(c *check.C) {
	ctx := context.TODO()
	numOfDocs := batchSize*2 + 7

	for i := 0; i < numOfDocs; i++ {
		doc := &index.Document{
			ID:  uuid.New(),
			URL: "https://example.com",
			Words: []index.Word{
				{Text: "shared", Position: 0, Section: index.SectionBody},
			},
		}
		c.Assert(s.idx.Index(ctx, doc), check.IsNil)
	}

	terms, err := s.idx.DocumentTerms(ctx, []string{"shared"})
	c.Assert(err, check.IsNil)
	c.Assert(terms, check.HasLen, numOfDocs)
}

// esDocSuite covers the document conversions and needs no elasticsearch
// cluster.
type esDocSuite struct{}

var _ = check.Suite(new(esDocSuite))

func (s *esDocSuite) TestRoundTripKeepsSections(c *check.C) {
	doc := &index.Document{
		ID:    uuid.New(),
		URL:   "https://example.com",
		Title: "Go search",
		Words: []index.Word{
			{Text: "go", Position: 0, Section: index.SectionTitle},
			{Text: "search", Position: 1, Section: index.SectionHeader},
			{Text: "go", Position: 2, Section: index.SectionBody},
		},
	}

	esd := makeEsDoc(doc)
	c.Assert(esd.Terms, check.DeepEquals, []string{"go", "search"})
	c.Assert(esd.Size, check.Equals, 3)

	got, err := esDocToDoc(&esd)
	c.Assert(err, check.IsNil)
	c.Assert(got.Words, check.DeepEquals, doc.Words)

	terms, err := documentTerms(&esd, map[string]struct{}{"go": {}})
	c.Assert(err, check.IsNil)
	c.Assert(terms, check.HasLen, 1)
	c.Assert(terms[0].Positions(index.SectionTitle), check.DeepEquals, []int{0})
	c.Assert(terms[0].Positions(index.SectionBody), check.DeepEquals, []int{2})
}

func (s *esDocSuite) TestUnknownSectionIsRejected(c *check.C) {
	esd := esDoc{
		ID:    uuid.New().String(),
		Words: []esWord{{Text: "go", Position: 0, Section: "footer"}},
	}

	_, err := esDocToDoc(&esd)
	c.Assert(err, check.ErrorMatches, ".*unknown section.*")
}
