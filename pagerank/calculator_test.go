package pagerank_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"testing"
	"time"

	check "gopkg.in/check.v1"

	"github.com/mycok/sherlook/pagerank"
)

var _ = check.Suite(new(CalculatorTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type edge struct {
	src, dest string
}

type spec struct {
	description string
	vertices    []string
	edges       []edge
	expScores   map[string]float64
}

type CalculatorTestSuite struct{}

func (s *CalculatorTestSuite) TestSimpleGraphCase1(c *check.C) {
	spec := spec{
		description: `
(A) -> (B) -> (C)
 ^             |
 |             |
 +-------------+
Expect the page rank score to be distributed evenly across the three nodes
`,
		vertices: []string{"A", "B", "C"},
		edges: []edge{
			{src: "A", dest: "B"},
			{src: "B", dest: "C"},
			{src: "C", dest: "A"},
		},
		expScores: map[string]float64{
			"A": 1.0 / 3.0,
			"B": 1.0 / 3.0,
			"C": 1.0 / 3.0,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestSimpleGraphCase2(c *check.C) {
	spec := spec{
		description: `
  +--(A)<-+
  |       |
  V       |
 (B) <-> (C)

Expect B and C to get better score than A due to the back-link between them.
Also, B should get slightly better score than C as there are two links pointing
to it.
`,
		vertices: []string{"A", "B", "C"},
		edges: []edge{
			{"A", "B"},
			{"B", "C"},
			{"C", "A"},
			{"C", "B"},
		},
		expScores: map[string]float64{
			"A": 0.2148,
			"B": 0.3974,
			"C": 0.3878,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestSimpleGraphCase3(c *check.C) {
	spec := spec{
		description: `
 (A) <-> (B) <-> (C)

Expect A and C to get the same score and B to get the largest score since there
are two links pointing to it.
`,
		vertices: []string{"A", "B", "C"},
		edges: []edge{
			{"A", "B"},
			{"B", "A"},
			{"B", "C"},
			{"C", "B"},
		},
		expScores: map[string]float64{
			"A": 0.2568,
			"B": 0.4865,
			"C": 0.2568,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestDeadEnd(c *check.C) {
	spec := spec{
		description: `
 (A) -> (B) -> (C)

C is a dead-end as it has no outgoing links. Its score is redistributed
uniformly across the graph, so nothing leaks and C ends up with the largest
score while A, with no inbound links, gets the lowest.
`,
		vertices: []string{"A", "B", "C"},
		edges: []edge{
			{"A", "B"},
			{"B", "C"},
		},
		expScores: map[string]float64{
			"A": 0.1844,
			"B": 0.3412,
			"C": 0.4744,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestHubAuthorityDangling(c *check.C) {
	spec := spec{
		description: `
 hub -> authority, x, y
 x -> authority, dangling
 y -> authority
 authority -> x, y

The authority collects three inbound links and outranks the dangling page,
which in turn outranks the hub that nobody links to.
`,
		vertices: []string{"hub", "authority", "dangling", "x", "y"},
		edges: []edge{
			{"hub", "authority"},
			{"hub", "x"},
			{"hub", "y"},
			{"x", "authority"},
			{"y", "authority"},
			{"x", "dangling"},
			{"authority", "x"},
			{"authority", "y"},
		},
		expScores: map[string]float64{
			"hub":       0.0554,
			"authority": 0.3530,
			"dangling":  0.1494,
			"x":         0.2211,
			"y":         0.2211,
		},
	}

	scores := s.assertOnPageRankScores(c, spec)
	c.Assert(scores["authority"] > scores["dangling"], check.Equals, true)
	c.Assert(scores["dangling"] > scores["hub"], check.Equals, true)
}

func (s *CalculatorTestSuite) TestSelfLinksAreIgnored(c *check.C) {
	spec := spec{
		description: `
 (A) <-> (B), with A and B both linking to themselves
`,
		vertices: []string{"A", "B"},
		edges: []edge{
			{"A", "A"},
			{"A", "B"},
			{"B", "B"},
			{"B", "A"},
		},
		expScores: map[string]float64{
			"A": 0.5,
			"B": 0.5,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestUnknownVertex(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	calc.AddVertex("A")
	err = calc.AddEdge("A", "B")
	c.Assert(errors.Is(err, pagerank.ErrUnknownVertex), check.Equals, true)

	err = calc.AddEdge("B", "A")
	c.Assert(errors.Is(err, pagerank.ErrUnknownVertex), check.Equals, true)
}

func (s *CalculatorTestSuite) TestEmptyGraph(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	res, err := calc.Calculate(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(res.Converged, check.Equals, true)

	visited := 0
	c.Assert(calc.Scores(func(string, float64) error { visited++; return nil }), check.IsNil)
	c.Assert(visited, check.Equals, 0)
}

func (s *CalculatorTestSuite) TestNonConvergenceStillYieldsScores(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{MaxIterations: 2})
	c.Assert(err, check.IsNil)

	for _, id := range []string{"A", "B", "C"} {
		calc.AddVertex(id)
	}
	c.Assert(calc.AddEdge("A", "B"), check.IsNil)
	c.Assert(calc.AddEdge("B", "C"), check.IsNil)

	res, err := calc.Calculate(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(res.Converged, check.Equals, false)
	c.Assert(res.Iterations, check.Equals, 2)

	var sum float64
	c.Assert(calc.Scores(func(_ string, score float64) error { sum += score; return nil }), check.IsNil)
	c.Assert(math.Abs(1.0-sum) < 1e-9, check.Equals, true)
}

func (s *CalculatorTestSuite) TestReset(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	calc.AddVertex("A")
	calc.AddVertex("B")
	c.Assert(calc.AddEdge("A", "B"), check.IsNil)

	calc.Reset()
	c.Assert(calc.VertexCount(), check.Equals, 0)

	err = calc.AddEdge("A", "B")
	c.Assert(errors.Is(err, pagerank.ErrUnknownVertex), check.Equals, true)
}

func (s *CalculatorTestSuite) TestConfigValidation(c *check.C) {
	_, err := pagerank.NewCalculator(pagerank.Config{DampingFactor: 1.5})
	c.Assert(err, check.ErrorMatches, "(?ms).*DampingFactor must be in the range.*")

	_, err = pagerank.NewCalculator(pagerank.Config{MaxIterations: -1, ConvergenceThreshold: -1})
	c.Assert(err, check.ErrorMatches, "(?ms).*MaxIterations must be > 0.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*ConvergenceThreshold must be >= 0.*")
}

func (s *CalculatorTestSuite) TestCancelledContext(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)
	calc.AddVertex("A")

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()

	_, err = calc.Calculate(ctx)
	c.Assert(errors.Is(err, context.Canceled), check.Equals, true)
}

func (s *CalculatorTestSuite) TestConvergenceForLargeGraphs(c *check.C) {
	s.assertOnConvergence(c, 100000, 7)
}

func (s *CalculatorTestSuite) assertOnPageRankScores(c *check.C, spec spec) map[string]float64 {
	c.Log(spec.description)

	calc, err := pagerank.NewCalculator(pagerank.Config{DampingFactor: 0.85})
	c.Assert(err, check.IsNil)

	for _, id := range spec.vertices {
		calc.AddVertex(id)
	}

	for _, e := range spec.edges {
		c.Assert(calc.AddEdge(e.src, e.dest), check.IsNil)
	}

	res, err := calc.Calculate(context.TODO())
	c.Assert(err, check.IsNil)
	c.Logf("****converged after %d iterations****", res.Iterations)

	scores := make(map[string]float64, len(spec.vertices))
	var pageRankSum float64
	err = calc.Scores(func(id string, score float64) error {
		scores[id] = score
		pageRankSum += score
		absDelta := math.Abs(score - spec.expScores[id])

		c.Assert(
			absDelta <= 0.01, check.Equals, true,
			check.Commentf(
				"expected score for %v to be %f ± 0.01; got %f (abs. delta %f)",
				id, spec.expScores[id], score, absDelta,
			))

		return nil
	})
	c.Assert(err, check.IsNil)

	c.Assert(
		math.Abs(1.0-pageRankSum) <= 0.001, check.Equals, true,
		check.Commentf(
			"expected all pagerank scores to add up to 1.0; got %f", pageRankSum,
		))

	return scores
}

func (s *CalculatorTestSuite) assertOnConvergence(c *check.C, numOfVertices, maxOutLinks int) {
	calc, err := pagerank.NewCalculator(pagerank.Config{ConvergenceThreshold: 1e-6})
	c.Assert(err, check.IsNil)

	// Ensure to use the same seed to make the test deterministic.
	rng := rand.New(rand.NewSource(42))

	names := make([]string, numOfVertices)
	for i := 0; i < numOfVertices; i++ {
		names[i] = strconv.FormatInt(int64(i), 10)
		calc.AddVertex(names[i])
	}

	start := time.Now()
	for i := 0; i < numOfVertices; i++ {
		outLinks := rng.Intn(maxOutLinks)
		for j := 0; j < outLinks; j++ {
			dest := rng.Intn(numOfVertices)
			c.Assert(calc.AddEdge(names[i], names[dest]), check.IsNil)
		}
	}
	c.Logf(
		"constructed %d nodes in %v",
		numOfVertices, time.Since(start).Truncate(time.Millisecond).String(),
	)

	start = time.Now()
	res, err := calc.Calculate(context.TODO())
	c.Assert(err, check.IsNil)
	c.Logf(
		"converged %d nodes after %d iterations in %v",
		numOfVertices, res.Iterations,
		time.Since(start).Truncate(time.Millisecond).String(),
	)

	var pageRankSum float64
	err = calc.Scores(func(_ string, score float64) error {
		pageRankSum += score

		return nil
	})
	c.Assert(err, check.IsNil)

	c.Assert(
		math.Abs(1.0-pageRankSum) <= 0.001, check.Equals, true,
		check.Commentf("expected all pagerank scores to add up to 1.0; got %f", pageRankSum),
	)
}
