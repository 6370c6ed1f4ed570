/*
	crawlevents package consumes the events published by the crawler. Crawled
	documents are written to the link graph and the text index; the end of a
	crawl cycle triggers a PageRank pass.
*/

package crawlevents

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/mycok/sherlook/linkgraph/graph"
	"github.com/mycok/sherlook/monolith/metrics"
	"github.com/mycok/sherlook/textindexer/index"
)

// Delay before retrying a failed fetch or a failed message.
const retryDelay = time.Second

// Reader is the subset of the kafka reader API used by the service.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// GraphAPI defines a minimum set of API methods for updating the link graph.
type GraphAPI interface {
	UpsertDocument(ctx context.Context, doc *graph.Document) error
	UpsertLinks(ctx context.Context, sourceID uuid.UUID, targetURLs []string) error
}

// IndexAPI defines a minimum set of API methods for indexing documents.
type IndexAPI interface {
	Index(ctx context.Context, doc *index.Document) error
}

// PageRankTrigger requests an out-of-schedule PageRank pass.
type PageRankTrigger interface {
	Trigger()
}

// Config defines configurations for the crawl event consumer.
type Config struct {
	// Source of crawl event messages.
	Reader Reader

	// API for storing crawled documents and their links.
	GraphAPI GraphAPI

	// API for indexing the words of crawled documents.
	IndexAPI IndexAPI

	// Receives a trigger for every crawl-completed event.
	PageRank PageRankTrigger

	// Optional collectors for consumed events.
	Metrics *metrics.Metrics

	// Stamps documents that arrive without a crawl time. If not specified,
	// the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.Reader == nil {
		err = multierror.Append(err, fmt.Errorf("message reader not provided"))
	}

	if config.GraphAPI == nil {
		err = multierror.Append(err, fmt.Errorf("graph API not provided"))
	}

	if config.IndexAPI == nil {
		err = multierror.Append(err, fmt.Errorf("index API not provided"))
	}

	if config.PageRank == nil {
		err = multierror.Append(err, fmt.Errorf("page-rank trigger not provided"))
	}

	if config.Clock == nil {
		config.Clock = clock.WallClock
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}

// Service consumes crawl events. it satisfies the service.Service interface.
type Service struct {
	config Config
}

// New creates and returns a fully configured crawl event consumer.
func New(config Config) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("crawl events service: config validation failed: %w", err)
	}

	return &Service{config: config}, nil
}

// Name returns the name of the service.
func (svc *Service) Name() string { return "crawl-events" }

// Run consumes messages until the context gets cancelled. A message is
// committed once handled. Malformed messages are logged, committed and
// dropped; messages whose handling failed are retried.
func (svc *Service) Run(ctx context.Context) error {
	svc.config.Logger.Info("started service")
	defer svc.config.Logger.Info("stopped service")
	defer func() { _ = svc.config.Reader.Close() }()

	for {
		msg, err := svc.config.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			svc.config.Logger.WithField("err", err).Error("failed to fetch message")

			select {
			case <-ctx.Done():
				return nil
			case <-svc.config.Clock.After(retryDelay):
			}

			continue
		}

		logger := svc.config.Logger.WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})

		// Offsets are committed in order, so a message is retried until it
		// is handled rather than skipped.
		for {
			err := svc.handle(ctx, msg.Value, logger)
			if err == nil {
				break
			}

			if ctx.Err() != nil {
				return nil
			}

			logger.WithField("err", err).Error("failed to process message; retrying")

			select {
			case <-ctx.Done():
				return nil
			case <-svc.config.Clock.After(retryDelay):
			}
		}

		if err := svc.config.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.WithField("err", err).Error("failed to commit message")
		}
	}
}

func (svc *Service) handle(ctx context.Context, value []byte, logger *logrus.Entry) error {
	evt, err := decodeEvent(value)
	if err != nil {
		logger.WithField("err", err).Warn("dropping malformed crawl event")
		svc.observe("malformed", metrics.OutcomeBadInput)

		return nil
	}

	switch evt.Type {
	case EventDocumentCrawled:
		if err := svc.ingestDocument(ctx, evt.Document); err != nil {
			svc.observe(string(evt.Type), metrics.OutcomeError)
			return err
		}

		logger.WithField("url", evt.Document.URL).Debug("ingested crawled document")
	case EventCrawlCompleted:
		logger.Info("crawl cycle completed; requesting page-rank pass")
		svc.config.PageRank.Trigger()
	}

	svc.observe(string(evt.Type), metrics.OutcomeOK)

	return nil
}

func (svc *Service) observe(eventType, outcome string) {
	if svc.config.Metrics != nil {
		svc.config.Metrics.ObserveCrawlEvent(eventType, outcome)
	}
}

// NewKafkaReader returns a consumer group reader for the crawl event topic.
func NewKafkaReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
}
