package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mycok/sherlook/linkgraph/graph"
	cdbgraph "github.com/mycok/sherlook/linkgraph/store/cdb"
	memgraph "github.com/mycok/sherlook/linkgraph/store/memory"
	"github.com/mycok/sherlook/monolith/config"
	"github.com/mycok/sherlook/monolith/lock"
	"github.com/mycok/sherlook/monolith/metrics"
	"github.com/mycok/sherlook/monolith/service"
	"github.com/mycok/sherlook/monolith/service/crawlevents"
	"github.com/mycok/sherlook/monolith/service/frontend"
	"github.com/mycok/sherlook/monolith/service/pagerank"
	"github.com/mycok/sherlook/ranker"
	"github.com/mycok/sherlook/ranker/cache"
	"github.com/mycok/sherlook/textindexer/index"
	cdbindex "github.com/mycok/sherlook/textindexer/store/cdb"
	esindex "github.com/mycok/sherlook/textindexer/store/es"
	memindex "github.com/mycok/sherlook/textindexer/store/memory"
)

const (
	appName = "sherlook-monolith"
	appSHA  = "compiled-and-deployed-at"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.Parse()

	host, _ := os.Hostname()
	// Instantiate a root logger that will be passed to all services.
	rootLogger := logrus.New()
	logger := rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"SHA":  appSHA,
		"host": host,
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithField("err", err).Error("shutting down due to an error")

		return
	}

	if err := configureLogger(rootLogger, cfg.Logging); err != nil {
		logger.WithField("err", err).Error("shutting down due to an error")

		return
	}

	svcGroup, closers, err := configureServices(cfg, logger)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		logger.WithField("err", err).Error("shutting down due to an error")

		return
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	// Launch a separate process to listen and respond to os signals
	// and trigger a graceful shutdown.
	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGHUP)

		select {
		case s := <-signalChan:
			logger.WithField("signal", s.String()).Info("shutting down due to os signal")
			// Cancel context, this signals all services to return since they all
			// share this same context.
			cancelFn()
		case <-ctx.Done():
		}
	}()

	if err := svcGroup.Execute(ctx); err != nil {
		logger.WithField("err", err).Error("shutting down due to an error")

		return
	}

	// Shutdown due to context cancellation.
	logger.Info("shutdown complete")
}

func configureLogger(l *logrus.Logger, cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	return nil
}

func configureServices(cfg *config.Config, logger *logrus.Entry) (service.Group, []io.Closer, error) {
	var closers []io.Closer

	linkGraph, closer, err := getLinkGraph(cfg.Stores.LinkGraphURI, logger)
	if err != nil {
		return nil, closers, err
	}
	closers = appendCloser(closers, closer)

	textIndex, closer, err := getTextIndex(cfg.Stores.TextIndexURI, logger)
	if err != nil {
		return nil, closers, err
	}
	closers = appendCloser(closers, closer)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(reg)
	if err != nil {
		return nil, closers, err
	}

	rnk, err := ranker.New(ranker.Config{
		IndexAPI:         textIndex,
		LexicalWeight:    cfg.Ranking.LexicalWeight,
		PopularityWeight: cfg.Ranking.PopularityWeight,
		KeywordWindow:    cfg.Ranking.KeywordWindow,
		PhraseWindow:     cfg.Ranking.PhraseWindow,
		Logger:           logger.WithField("component", "ranker"),
	})
	if err != nil {
		return nil, closers, err
	}

	rankingCache, err := cache.New(cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
		Logger:     logger.WithField("component", "ranking-cache"),
	})
	if err != nil {
		return nil, closers, err
	}
	if err = reg.Register(rankingCache); err != nil {
		return nil, closers, fmt.Errorf("registering ranking cache collector: %w", err)
	}

	var locker pagerank.Locker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, rdb)

		redisLock, err := lock.New(lock.Config{
			Client: rdb,
			Key:    cfg.Redis.LockKey,
			TTL:    cfg.Redis.LockTTL,
			Logger: logger.WithField("component", "page-rank-lock"),
		})
		if err != nil {
			return nil, closers, err
		}

		logger.WithField("addr", cfg.Redis.Addr).Info("using redis lock for page-rank passes")
		locker = redisLock
	}

	var svcGrp service.Group

	pageRankSvc, err := pagerank.New(pagerank.Config{
		GraphAPI:             linkGraph,
		IndexAPI:             textIndex,
		Locker:               locker,
		Cache:                rankingCache,
		Metrics:              m,
		UpdateInterval:       cfg.PageRank.UpdateInterval,
		DampingFactor:        cfg.PageRank.DampingFactor,
		MaxIterations:        cfg.PageRank.MaxIterations,
		ConvergenceThreshold: cfg.PageRank.ConvergenceThreshold,
		Logger:               logger.WithField("service", "page-rank"),
	})
	if err != nil {
		return nil, closers, err
	}
	svcGrp = append(svcGrp, pageRankSvc)

	frontendSvc, err := frontend.New(frontend.Config{
		RankerAPI:           rnk,
		Cache:               rankingCache,
		Metrics:             m,
		ListenAddr:          cfg.Server.ListenAddr,
		NumOfResultsPerPage: cfg.Server.ResultsPerPage,
		ReadTimeout:         cfg.Server.ReadTimeout,
		WriteTimeout:        cfg.Server.WriteTimeout,
		Logger:              logger.WithField("service", "frontend"),
	})
	if err != nil {
		return nil, closers, err
	}
	svcGrp = append(svcGrp, frontendSvc)

	if len(cfg.Kafka.Brokers) != 0 {
		crawlSvc, err := crawlevents.New(crawlevents.Config{
			Reader:   crawlevents.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.Topic),
			GraphAPI: linkGraph,
			IndexAPI: textIndex,
			PageRank: pageRankSvc,
			Metrics:  m,
			Logger:   logger.WithField("service", "crawl-events"),
		})
		if err != nil {
			return nil, closers, err
		}
		svcGrp = append(svcGrp, crawlSvc)
	} else {
		logger.Info("no kafka brokers configured; crawl event consumer disabled")
	}

	return svcGrp, closers, nil
}

func appendCloser(closers []io.Closer, v interface{}) []io.Closer {
	if c, ok := v.(io.Closer); ok {
		closers = append(closers, c)
	}

	return closers
}

func getLinkGraph(linkGraphURI string, logger *logrus.Entry) (graph.Graph, interface{}, error) {
	if linkGraphURI == "" {
		return nil, nil, fmt.Errorf("link graph URI must be specified")
	}

	u, err := url.Parse(linkGraphURI)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse link graph URI: %w", err)
	}

	switch u.Scheme {
	case "in-memory":
		logger.Info("using in-memory link graph store")

		g := memgraph.NewInMemoryGraph()
		return g, g, nil
	case "postgresql":
		logger.Info("using CDB link graph store")

		g, err := cdbgraph.NewCockroachDBGraph(linkGraphURI)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	default:
		return nil, nil, fmt.Errorf("unsupported link graph URI scheme: %q", u.Scheme)
	}
}

func getTextIndex(textIndexURI string, logger *logrus.Entry) (index.Indexer, interface{}, error) {
	if textIndexURI == "" {
		return nil, nil, fmt.Errorf("text index URI must be specified")
	}

	u, err := url.Parse(textIndexURI)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse text index URI: %w", err)
	}

	switch u.Scheme {
	case "in-memory":
		logger.Info("using in-memory index store")

		idx, err := memindex.NewInMemoryIndex()
		if err != nil {
			return nil, nil, err
		}
		return idx, idx, nil
	case "postgresql":
		logger.Info("using CDB index store")

		idx, err := cdbindex.NewCockroachDBIndex(textIndexURI)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx, nil
	case "es":
		nodes := make([]string, 0)
		for _, addr := range strings.Split(u.Host, ",") {
			nodes = append(nodes, "http://"+addr)
		}

		logger.WithField("nodes", nodes).Info("using ES index store")

		idx, err := esindex.NewEsIndexer(nodes, false)
		if err != nil {
			return nil, nil, err
		}
		return idx, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported text index URI scheme: %q", u.Scheme)
	}
}
