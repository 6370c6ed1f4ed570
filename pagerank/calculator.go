package pagerank

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// ErrUnknownVertex is returned when an edge references a vertex that was
// never added to the calculator.
var ErrUnknownVertex = errors.New("unknown vertex")

// Result describes the outcome of a PageRank pass.
type Result struct {
	// Number of iterations that were executed.
	Iterations int

	// Converged is false when the iteration budget was exhausted before the
	// convergence threshold was reached. Scores are still usable.
	Converged bool

	// Largest absolute score change observed in the last iteration.
	MaxDelta float64
}

// Calculator executes the iterative version of the PageRank algorithm
// on a graph until the desired level of convergence is reached.
//
// Vertices are mapped to dense indices so that every per-vertex accumulator
// is a flat slice. A Calculator is not safe for concurrent use.
type Calculator struct {
	cfg Config

	index map[string]int
	ids   []string

	outDegree []int
	// incoming[v] lists the source indices of every edge pointing at v.
	incoming [][]int

	scores []float64
}

// NewCalculator returns a new Calculator instance using the provided config
// options.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("PageRank calculator config validation failed: %w", err)
	}

	return &Calculator{
		cfg:   cfg,
		index: make(map[string]int),
	}, nil
}

// Reset clears the graph and any previously computed scores.
func (c *Calculator) Reset() {
	c.index = make(map[string]int)
	c.ids = c.ids[:0]
	c.outDegree = c.outDegree[:0]
	c.incoming = c.incoming[:0]
	c.scores = nil
}

// VertexCount returns the number of vertices in the graph.
func (c *Calculator) VertexCount() int {
	return len(c.ids)
}

// AddVertex adds a new vertex with the specified ID into the graph. Adding
// an existing vertex is a no-op.
func (c *Calculator) AddVertex(id string) {
	if _, exists := c.index[id]; exists {
		return
	}

	c.index[id] = len(c.ids)
	c.ids = append(c.ids, id)
	c.outDegree = append(c.outDegree, 0)
	c.incoming = append(c.incoming, nil)
}

// AddEdge inserts a directed edge from src to dst. If both src and dst refer
// to the same vertex then this is a no-op. Parallel edges are kept and each
// one counts towards the source out-degree.
func (c *Calculator) AddEdge(src, dst string) error {
	if src == dst {
		return nil
	}

	srcIdx, exists := c.index[src]
	if !exists {
		return fmt.Errorf("add edge source %q: %w", src, ErrUnknownVertex)
	}

	dstIdx, exists := c.index[dst]
	if !exists {
		return fmt.Errorf("add edge destination %q: %w", dst, ErrUnknownVertex)
	}

	c.outDegree[srcIdx]++
	c.incoming[dstIdx] = append(c.incoming[dstIdx], srcIdx)

	return nil
}

// Calculate runs PageRank until convergence or until the iteration budget
// is exhausted. Scores are normalized to sum to 1.0 after every iteration.
func (c *Calculator) Calculate(ctx context.Context) (Result, error) {
	n := len(c.ids)
	if n == 0 {
		c.scores = nil
		return Result{Converged: true}, nil
	}

	var (
		d        = c.cfg.DampingFactor
		invN     = 1.0 / float64(n)
		prev     = make([]float64, n)
		next     = make([]float64, n)
		dangling = make([]int, 0)
		res      Result
	)

	for v := 0; v < n; v++ {
		prev[v] = invN
		if c.outDegree[v] == 0 {
			dangling = append(dangling, v)
		}
	}

	for res.Iterations < c.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Iterations++

		var danglingMass float64
		for _, v := range dangling {
			danglingMass += prev[v]
		}

		base := (1-d)*invN + d*danglingMass*invN

		var sum float64
		for v := 0; v < n; v++ {
			var in float64
			for _, src := range c.incoming[v] {
				in += prev[src] / float64(c.outDegree[src])
			}

			next[v] = base + d*in
			sum += next[v]
		}

		res.MaxDelta = 0
		for v := 0; v < n; v++ {
			next[v] /= sum
			res.MaxDelta = math.Max(res.MaxDelta, math.Abs(next[v]-prev[v]))
		}

		prev, next = next, prev

		if res.MaxDelta < c.cfg.ConvergenceThreshold {
			res.Converged = true
			break
		}
	}

	c.scores = prev

	fields := logrus.Fields{
		"vertices":   n,
		"iterations": res.Iterations,
		"max_delta":  res.MaxDelta,
	}
	if res.Converged {
		c.cfg.Logger.WithFields(fields).Info("PageRank converged")
	} else {
		c.cfg.Logger.WithFields(fields).Warn("PageRank did not converge; using last approximation")
	}

	return res, nil
}

// Scores invokes the provided visitor function for each vertex in the graph
// with the score computed by the last Calculate call.
func (c *Calculator) Scores(visitFn func(id string, score float64) error) error {
	for i, score := range c.scores {
		if err := visitFn(c.ids[i], score); err != nil {
			return err
		}
	}

	return nil
}
