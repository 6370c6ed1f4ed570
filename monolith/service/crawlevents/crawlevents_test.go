package crawlevents

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	check "gopkg.in/check.v1"

	"github.com/mycok/sherlook/linkgraph/graph"
	graphstore "github.com/mycok/sherlook/linkgraph/store/memory"
	"github.com/mycok/sherlook/monolith/metrics"
	"github.com/mycok/sherlook/textindexer/index"
	indexstore "github.com/mycok/sherlook/textindexer/store/memory"
)

var _ = check.Suite(new(CrawlEventsTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type CrawlEventsTestSuite struct {
	graph *graphstore.InMemoryGraph
	index *indexstore.InMemoryIndex
}

func (s *CrawlEventsTestSuite) SetUpTest(c *check.C) {
	s.graph = graphstore.NewInMemoryGraph()

	idx, err := indexstore.NewInMemoryIndex()
	c.Assert(err, check.IsNil)
	s.index = idx
}

func (s *CrawlEventsTestSuite) TearDownTest(c *check.C) {
	c.Assert(s.index.Close(), check.IsNil)
}

func (s *CrawlEventsTestSuite) TestConfigValidation(c *check.C) {
	originalConfig := Config{
		Reader:   newFakeReader(),
		GraphAPI: s.graph,
		IndexAPI: s.index,
		PageRank: new(countingTrigger),
	}

	config := originalConfig
	c.Assert(config.validate(), check.IsNil)
	c.Assert(config.Clock, check.Not(check.IsNil), check.Commentf("default clock was not assigned"))
	c.Assert(config.Logger, check.Not(check.IsNil), check.Commentf("default logger was not assigned"))

	config = originalConfig
	config.Reader = nil
	c.Assert(config.validate(), check.ErrorMatches, "(?ms).*message reader not provided.*")

	config = originalConfig
	config.GraphAPI = nil
	c.Assert(config.validate(), check.ErrorMatches, "(?ms).*graph API not provided.*")

	config = originalConfig
	config.IndexAPI = nil
	c.Assert(config.validate(), check.ErrorMatches, "(?ms).*index API not provided.*")

	config = originalConfig
	config.PageRank = nil
	c.Assert(config.validate(), check.ErrorMatches, "(?ms).*page-rank trigger not provided.*")
}

func (s *CrawlEventsTestSuite) TestIngestAndTrigger(c *check.C) {
	crawledAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reader := newFakeReader(
		encode(c, Event{Type: EventDocumentCrawled, Document: &CrawledDocument{
			URL:       "https://a.example",
			Title:     "Distributed Systems",
			Headings:  []string{"Consensus"},
			Body:      "Raft and Paxos keep replicas consistent.",
			Links:     []string{"https://b.example", "https://elsewhere.example"},
			CrawledAt: crawledAt,
		}}),
		encode(c, Event{Type: EventDocumentCrawled, Document: &CrawledDocument{
			URL:       "https://b.example",
			Title:     "Replication",
			Body:      "Distributed logs.",
			Links:     []string{"https://a.example"},
			CrawledAt: crawledAt,
		}}),
		[]byte(`{"type": "document_crawled"}`),
		[]byte(`not json`),
		encode(c, Event{Type: EventCrawlCompleted}),
	)
	trigger := new(countingTrigger)

	m, err := metrics.New(prometheus.NewRegistry())
	c.Assert(err, check.IsNil)

	svc, err := New(Config{
		Reader:   reader,
		GraphAPI: s.graph,
		IndexAPI: s.index,
		PageRank: trigger,
		Metrics:  m,
	})
	c.Assert(err, check.IsNil)

	s.runUntilDrained(c, svc, reader)

	c.Assert(reader.committedOffsets(), check.DeepEquals, []int64{0, 1, 2, 3, 4})
	c.Assert(reader.isClosed(), check.Equals, true)
	c.Assert(trigger.count.Load(), check.Equals, int32(1))

	// Only the link between the two stored documents resolves.
	linkIt, err := s.graph.Links(context.TODO())
	c.Assert(err, check.IsNil)
	var links []*graph.Link
	for linkIt.Next() {
		links = append(links, linkIt.Link())
	}
	c.Assert(linkIt.Close(), check.IsNil)
	c.Assert(links, check.HasLen, 2)

	terms, err := s.index.DocumentTerms(context.TODO(), []string{"distributed"})
	c.Assert(err, check.IsNil)
	c.Assert(terms, check.HasLen, 2)

	for _, t := range terms {
		switch t.URL() {
		case "https://a.example":
			c.Assert(t.Positions(index.SectionTitle), check.DeepEquals, []int{0})
		case "https://b.example":
			c.Assert(t.Positions(index.SectionBody), check.DeepEquals, []int{1})
		default:
			c.Fatalf("unexpected document %s", t.URL())
		}
	}

	c.Assert(testutil.ToFloat64(m.CrawlEvents.WithLabelValues(string(EventDocumentCrawled), metrics.OutcomeOK)), check.Equals, 2.0)
	c.Assert(testutil.ToFloat64(m.CrawlEvents.WithLabelValues("malformed", metrics.OutcomeBadInput)), check.Equals, 2.0)
}

func (s *CrawlEventsTestSuite) TestFailedMessageIsRetried(c *check.C) {
	clk := testclock.NewClock(time.Now())
	reader := newFakeReader(encode(c, Event{Type: EventDocumentCrawled, Document: &CrawledDocument{
		URL:   "https://a.example",
		Title: "retry",
	}}))
	flaky := &flakyIndex{IndexAPI: s.index, failures: 1}

	svc, err := New(Config{
		Reader:   reader,
		GraphAPI: s.graph,
		IndexAPI: flaky,
		PageRank: new(countingTrigger),
		Clock:    clk,
	})
	c.Assert(err, check.IsNil)

	go func() {
		// Wait for the retry delay timer and fire it.
		c.Check(clk.WaitAdvance(retryDelay, 10*time.Second, 1), check.IsNil)
	}()

	s.runUntilDrained(c, svc, reader)

	c.Assert(flaky.calls.Load(), check.Equals, int32(2))
	c.Assert(reader.committedOffsets(), check.DeepEquals, []int64{0})

	// Documents without a crawl time are stamped with the service clock.
	docIt, err := s.graph.Documents(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(docIt.Next(), check.Equals, true)
	c.Assert(docIt.Document().CrawledAt.Equal(clk.Now()), check.Equals, true)
	c.Assert(docIt.Close(), check.IsNil)
}

func (s *CrawlEventsTestSuite) TestToIndexDocument(c *check.C) {
	id := uuid.New()
	doc := toIndexDocument(&graph.Document{ID: id}, &CrawledDocument{
		URL:         "https://a.example",
		Title:       "Go Concurrency",
		Description: "Patterns",
		Headings:    []string{"Channels", "Select statements"},
		Body:        "Use channels, not locks!",
	})

	c.Assert(doc.ID, check.Equals, id)
	c.Assert(doc.Description, check.Equals, "Patterns")
	c.Assert(doc.Words, check.DeepEquals, []index.Word{
		{Text: "go", Position: 0, Section: index.SectionTitle},
		{Text: "concurrency", Position: 1, Section: index.SectionTitle},
		{Text: "channels", Position: 2, Section: index.SectionHeader},
		{Text: "select", Position: 3, Section: index.SectionHeader},
		{Text: "statements", Position: 4, Section: index.SectionHeader},
		{Text: "use", Position: 5, Section: index.SectionBody},
		{Text: "channels", Position: 6, Section: index.SectionBody},
		{Text: "not", Position: 7, Section: index.SectionBody},
		{Text: "locks", Position: 8, Section: index.SectionBody},
	})
}

func (s *CrawlEventsTestSuite) TestDecodeEvent(c *check.C) {
	_, err := decodeEvent([]byte(`{"type": "reindex"}`))
	c.Assert(err, check.ErrorMatches, `.*unknown type "reindex"`)

	_, err = decodeEvent([]byte(`{"type": "document_crawled", "document": {"title": "no url"}}`))
	c.Assert(err, check.ErrorMatches, ".*without a document URL")

	evt, err := decodeEvent([]byte(`{"type": "crawl_completed"}`))
	c.Assert(err, check.IsNil)
	c.Assert(evt.Type, check.Equals, EventCrawlCompleted)
}

func (s *CrawlEventsTestSuite) runUntilDrained(c *check.C, svc *Service, reader *fakeReader) {
	ctx, cancelFn := context.WithCancel(context.TODO())
	defer cancelFn()

	runErr := make(chan error, 1)
	go func() { runErr <- svc.Run(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(10 * time.Second):
		c.Fatal("timed out waiting for the consumer to drain its messages")
	}

	cancelFn()
	c.Assert(<-runErr, check.IsNil)
}

func encode(c *check.C, evt Event) []byte {
	data, err := json.Marshal(evt)
	c.Assert(err, check.IsNil)

	return data
}

// fakeReader serves a fixed list of messages and then blocks until the
// context is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	closed    bool

	drained   chan struct{}
	drainOnce sync.Once
}

func newFakeReader(values ...[]byte) *fakeReader {
	r := &fakeReader{drained: make(chan struct{})}
	for i, v := range values {
		r.pending = append(r.pending, kafka.Message{Topic: "crawl-events", Offset: int64(i), Value: v})
	}

	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()

		return msg, nil
	}
	r.mu.Unlock()

	r.drainOnce.Do(func() { close(r.drained) })
	<-ctx.Done()

	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)

	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true

	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	offsets := make([]int64, 0, len(r.committed))
	for _, m := range r.committed {
		offsets = append(offsets, m.Offset)
	}

	return offsets
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

type countingTrigger struct {
	count atomic.Int32
}

func (t *countingTrigger) Trigger() { t.count.Add(1) }

type flakyIndex struct {
	IndexAPI
	failures int32
	calls    atomic.Int32
}

func (f *flakyIndex) Index(ctx context.Context, doc *index.Document) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("index unavailable")
	}

	return f.IndexAPI.Index(ctx, doc)
}
