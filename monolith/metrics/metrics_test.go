package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	check "gopkg.in/check.v1"
)

var _ = check.Suite(new(MetricsTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type MetricsTestSuite struct{}

func (s *MetricsTestSuite) TestDuplicateRegistration(c *check.C) {
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	c.Assert(err, check.IsNil)

	_, err = New(reg)
	c.Assert(err, check.ErrorMatches, "metrics: .*")
}

func (s *MetricsTestSuite) TestObserveSearch(c *check.C) {
	m, err := New(prometheus.NewRegistry())
	c.Assert(err, check.IsNil)

	m.ObserveSearch("keyword", OutcomeOK, 12, 5*time.Millisecond)
	m.ObserveSearch("keyword", OutcomeOK, 3, time.Millisecond)
	m.ObserveSearch("phrase", OutcomeError, 0, time.Millisecond)

	c.Assert(testutil.ToFloat64(m.SearchQueries.WithLabelValues("keyword", OutcomeOK)), check.Equals, 2.0)
	c.Assert(testutil.ToFloat64(m.SearchQueries.WithLabelValues("phrase", OutcomeError)), check.Equals, 1.0)
	c.Assert(testutil.CollectAndCount(m.SearchResults), check.Equals, 1)
}

func (s *MetricsTestSuite) TestObservePageRankPass(c *check.C) {
	m, err := New(prometheus.NewRegistry())
	c.Assert(err, check.IsNil)

	m.ObservePageRankPass(5, 17, true, time.Second)
	m.ObservePageRankPass(8, 100, false, time.Second)
	m.ObservePageRankFailure()

	c.Assert(testutil.ToFloat64(m.PageRankPasses.WithLabelValues("converged")), check.Equals, 1.0)
	c.Assert(testutil.ToFloat64(m.PageRankPasses.WithLabelValues("not_converged")), check.Equals, 1.0)
	c.Assert(testutil.ToFloat64(m.PageRankPasses.WithLabelValues(OutcomeError)), check.Equals, 1.0)
	c.Assert(testutil.ToFloat64(m.PageRankIterations), check.Equals, 100.0)
	c.Assert(testutil.ToFloat64(m.PageRankVertices), check.Equals, 8.0)
}

func (s *MetricsTestSuite) TestHandlerServesRegistry(c *check.C) {
	m, err := New(prometheus.NewRegistry())
	c.Assert(err, check.IsNil)
	m.ObserveCrawlEvent("crawl_completed", OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	c.Assert(rec.Code, check.Equals, 200)
	c.Assert(strings.Contains(rec.Body.String(), "sherlook_crawl_events_total"), check.Equals, true)
}
