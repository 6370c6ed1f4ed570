package pagerank

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/mycok/sherlook/linkgraph/graph"
	"github.com/mycok/sherlook/monolith/metrics"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/mycok/sherlook/monolith/service/pagerank GraphAPI,IndexAPI,Locker
//go:generate mockgen -package mocks -destination mocks/iterator_mocks.go github.com/mycok/sherlook/linkgraph/graph DocumentIterator,LinkIterator

// GraphAPI defines a minimum set of API methods for reading the link graph store.
type GraphAPI interface {
	// Documents returns an iterator over every stored document.
	Documents(ctx context.Context) (graph.DocumentIterator, error)

	// Links returns an iterator over every resolved link.
	Links(ctx context.Context) (graph.LinkIterator, error)
}

// IndexAPI defines a minimum set of API methods for persisting PageRank scores.
type IndexAPI interface {
	// UpdatePageRanks persists the provided PageRank scores.
	UpdatePageRanks(ctx context.Context, scores map[uuid.UUID]float64) error
}

// Locker guards a PageRank pass across application instances.
type Locker interface {
	// TryLock attempts to acquire the lock without blocking.
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases a lock acquired by TryLock.
	Unlock(ctx context.Context) error
}

// CachePurger is implemented by caches holding rankings that become stale
// once new PageRank scores are persisted.
type CachePurger interface {
	Purge()
}

// Config defines configurations for the page-ranking service.
type Config struct {
	// API for reading documents and links from the link graph store.
	GraphAPI GraphAPI

	// API for persisting scores to the index store.
	IndexAPI IndexAPI

	// Optional lock that serializes passes across instances sharing the
	// same stores. Without one, passes are only serialized in-process.
	Locker Locker

	// Optional cache purged after every successful pass.
	Cache CachePurger

	// Optional collectors for pass outcomes.
	Metrics *metrics.Metrics

	// A clock instance for generating time-related events. If not specified,
	// the default wall-clock will be used instead.
	Clock clock.Clock

	// The duration between subsequent page-rank passes.
	UpdateInterval time.Duration

	// PageRank tuning. Zero values fall back to the calculator defaults.
	DampingFactor        float64
	MaxIterations        int
	ConvergenceThreshold float64

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.GraphAPI == nil {
		err = multierror.Append(err, fmt.Errorf("graph API not provided"))
	}

	if config.IndexAPI == nil {
		err = multierror.Append(err, fmt.Errorf("index API not provided"))
	}

	if config.Clock == nil {
		config.Clock = clock.WallClock
	}

	if config.UpdateInterval <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for update interval"))
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
