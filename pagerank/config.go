package pagerank

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Config encapsulates the required parameters for creating a new PageRank
// calculator instance.
type Config struct {
	// DampingFactor is the probability that a random surfer will click on
	// one of the outgoing links on the page they are currently visiting
	// instead of visiting (teleporting to) a random page in the graph.
	//
	// If not specified, a default value of 0.85 will be used instead.
	DampingFactor float64

	// MaxIterations bounds the number of iterations a single pass may run.
	// If not specified, a default value of 100 will be used instead.
	MaxIterations int

	// The algorithm stops once the largest absolute score change between
	// two iterations drops below ConvergenceThreshold. If not specified,
	// a default value of 1e-5 will be used instead.
	ConvergenceThreshold float64

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (c *Config) validate() error {
	var err error

	if c.DampingFactor == 0 {
		c.DampingFactor = 0.85
	} else if c.DampingFactor < 0 || c.DampingFactor >= 1.0 {
		err = multierror.Append(err, fmt.Errorf("DampingFactor must be in the range (0, 1)"))
	}

	if c.MaxIterations == 0 {
		c.MaxIterations = 100
	} else if c.MaxIterations < 0 {
		err = multierror.Append(err, fmt.Errorf("MaxIterations must be > 0"))
	}

	if c.ConvergenceThreshold == 0 {
		c.ConvergenceThreshold = 1e-5
	} else if c.ConvergenceThreshold < 0 {
		err = multierror.Append(err, fmt.Errorf("ConvergenceThreshold must be >= 0"))
	}

	if c.Logger == nil {
		c.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
