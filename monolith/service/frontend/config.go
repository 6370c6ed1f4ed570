package frontend

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/mycok/sherlook/monolith/metrics"
	"github.com/mycok/sherlook/query"
	"github.com/mycok/sherlook/ranker"
	"github.com/mycok/sherlook/ranker/cache"
)

const (
	defaultNumOfResultsPerPage = 10
	maxNumOfResultsPerPage     = 100
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/mycok/sherlook/monolith/service/frontend RankerAPI

// RankerAPI defines the ranking operations used for answering search
// queries.
type RankerAPI interface {
	// RankDocuments ranks every document matching the keyword terms.
	RankDocuments(ctx context.Context, terms []string, isPhrase bool) (*ranker.RankingResult, error)

	// RankPhrases ranks the documents matching phrases combined with ops.
	RankPhrases(ctx context.Context, phrases []string, ops []query.Operator) (*ranker.RankingResult, error)

	// PageWithSnippets returns a page of a ranking with snippets set.
	PageWithSnippets(
		ctx context.Context, res *ranker.RankingResult, terms []string, offset, limit int, isPhrase bool,
	) ([]ranker.RankedDocument, error)
}

// CacheAPI defines the ranking cache operations used by the front-end.
type CacheAPI interface {
	// GetOrCompute returns the cached ranking for key, computing it with
	// loadFn when missing.
	GetOrCompute(key string, loadFn cache.LoadFunc) (*ranker.RankingResult, error)

	// Stats returns a snapshot of the cache counters.
	Stats() cache.Stats
}

// Config defines configurations for the front-end service.
type Config struct {
	// API for ranking documents.
	RankerAPI RankerAPI

	// Cache of full rankings keyed by query signature.
	Cache CacheAPI

	// Optional collectors for served queries. When set, they are also
	// exposed on /metrics.
	Metrics *metrics.Metrics

	// Address to listen for incoming requests.
	ListenAddr string

	// Number of results per page when the request does not ask for a
	// specific number. If not specified, a default value of 10 results
	// per page will be used instead.
	NumOfResultsPerPage int

	// HTTP server timeouts. Zero means no timeout.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// A clock instance for measuring query time. If not specified, the
	// default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.RankerAPI == nil {
		err = multierror.Append(err, fmt.Errorf("ranker API not provided"))
	}

	if config.Cache == nil {
		err = multierror.Append(err, fmt.Errorf("ranking cache not provided"))
	}

	if config.ListenAddr == "" {
		err = multierror.Append(err, fmt.Errorf("listen address not provided"))
	}

	if config.NumOfResultsPerPage <= 0 {
		config.NumOfResultsPerPage = defaultNumOfResultsPerPage
	}

	if config.Clock == nil {
		config.Clock = clock.WallClock
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
