package pagerank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mycok/sherlook/pagerank"
)

// ErrPassInProgress is returned when a PageRank pass is requested while
// another pass is running in this process or on another instance.
var ErrPassInProgress = errors.New("page-rank pass already in progress")

// Service represents a page-rank service for the sherlook application. it
// satisfies the service.Service interface.
type Service struct {
	config Config

	// Guards calculator; a pass holds it for its whole duration.
	passMu     sync.Mutex
	calculator *pagerank.Calculator

	trigger chan struct{}
}

// New creates and returns a fully configured page-rank service instance.
func New(config Config) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("page-rank service: config validation failed: %w", err)
	}

	calc, err := pagerank.NewCalculator(pagerank.Config{
		DampingFactor:        config.DampingFactor,
		MaxIterations:        config.MaxIterations,
		ConvergenceThreshold: config.ConvergenceThreshold,
		Logger:               config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("page-rank service: config validation failed: %w", err)
	}

	return &Service{
		config:     config,
		calculator: calc,
		trigger:    make(chan struct{}, 1),
	}, nil
}

// Name returns the name of the service.
func (svc *Service) Name() string { return "page-rank" }

// Trigger requests a pass without waiting for the update interval. Requests
// arriving while one is already pending are coalesced.
func (svc *Service) Trigger() {
	select {
	case svc.trigger <- struct{}{}:
	default:
	}
}

// Run executes the service and blocks until the context gets cancelled
// or an error occurs. A failed pass is logged and retried on the next tick.
func (svc *Service) Run(ctx context.Context) error {
	svc.config.Logger.WithField(
		"update_interval", svc.config.UpdateInterval.String(),
	).Info("started service")
	defer svc.config.Logger.Info("stopped service")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-svc.config.Clock.After(svc.config.UpdateInterval):
			svc.runPass(ctx, "interval")
		case <-svc.trigger:
			svc.runPass(ctx, "trigger")
		}
	}
}

func (svc *Service) runPass(ctx context.Context, reason string) {
	logger := svc.config.Logger.WithField("reason", reason)

	_, err := svc.RankPagesByPopularity(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrPassInProgress):
		logger.Info("skipping page-rank pass: another pass is in progress")
	case ctx.Err() != nil:
		logger.Info("page-rank pass interrupted by shutdown")
	default:
		logger.WithField("err", err).Error("page-rank pass failed")
	}
}

// RankPagesByPopularity runs a full PageRank pass: it loads the link graph,
// iterates until convergence or the iteration budget and persists the
// resulting scores. Non-convergence is not an error.
func (svc *Service) RankPagesByPopularity(ctx context.Context) (pagerank.Result, error) {
	if !svc.passMu.TryLock() {
		return pagerank.Result{}, ErrPassInProgress
	}
	defer svc.passMu.Unlock()

	if svc.config.Locker != nil {
		acquired, err := svc.config.Locker.TryLock(ctx)
		if err != nil {
			return pagerank.Result{}, fmt.Errorf("page-rank pass: %w", err)
		}

		if !acquired {
			return pagerank.Result{}, fmt.Errorf("page-rank pass: held by another instance: %w", ErrPassInProgress)
		}

		defer func() {
			if err := svc.config.Locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				svc.config.Logger.WithField("err", err).Warn("unable to release page-rank lock")
			}
		}()
	}

	res, err := svc.updateGraphScores(ctx)
	if err != nil {
		if svc.config.Metrics != nil {
			svc.config.Metrics.ObservePageRankFailure()
		}

		return res, err
	}

	return res, nil
}

func (svc *Service) updateGraphScores(ctx context.Context) (pagerank.Result, error) {
	svc.config.Logger.Info("started page-rank update pass")

	startedAt := svc.config.Clock.Now()

	tick := svc.config.Clock.Now()
	svc.calculator.Reset()

	if err := svc.loadDocuments(ctx); err != nil {
		return pagerank.Result{}, fmt.Errorf("page-rank pass: load documents: %w", err)
	}

	if err := svc.loadLinks(ctx); err != nil {
		return pagerank.Result{}, fmt.Errorf("page-rank pass: load links: %w", err)
	}
	graphPopulationDuration := svc.config.Clock.Now().Sub(tick)

	tick = svc.config.Clock.Now()
	res, err := svc.calculator.Calculate(ctx)
	if err != nil {
		return res, fmt.Errorf("page-rank pass: calculate: %w", err)
	}
	scoreCalculationDuration := svc.config.Clock.Now().Sub(tick)

	tick = svc.config.Clock.Now()
	scores := make(map[uuid.UUID]float64, svc.calculator.VertexCount())
	if err := svc.calculator.Scores(func(id string, score float64) error {
		docID, err := uuid.Parse(id)
		if err != nil {
			return err
		}

		scores[docID] = score

		return nil
	}); err != nil {
		return res, fmt.Errorf("page-rank pass: collect scores: %w", err)
	}

	if err := svc.config.IndexAPI.UpdatePageRanks(ctx, scores); err != nil {
		return res, fmt.Errorf("page-rank pass: persist scores: %w", err)
	}
	scorePersistenceDuration := svc.config.Clock.Now().Sub(tick)

	if svc.config.Cache != nil {
		svc.config.Cache.Purge()
	}

	totalDuration := svc.config.Clock.Now().Sub(startedAt)
	if svc.config.Metrics != nil {
		svc.config.Metrics.ObservePageRankPass(len(scores), res.Iterations, res.Converged, totalDuration)
	}

	svc.config.Logger.WithFields(logrus.Fields{
		"processed_documents":        len(scores),
		"iterations":                 res.Iterations,
		"converged":                  res.Converged,
		"graph_population_duration":  graphPopulationDuration.String(),
		"score_calculation_duration": scoreCalculationDuration.String(),
		"score_persistence_duration": scorePersistenceDuration.String(),
		"total_processing_time":      totalDuration.String(),
	}).Info("completed page-rank update pass")

	return res, nil
}

func (svc *Service) loadDocuments(ctx context.Context) error {
	docIt, err := svc.config.GraphAPI.Documents(ctx)
	if err != nil {
		return err
	}

	for docIt.Next() {
		svc.calculator.AddVertex(docIt.Document().ID.String())
	}

	if err := docIt.Error(); err != nil {
		_ = docIt.Close()

		return err
	}

	return docIt.Close()
}

func (svc *Service) loadLinks(ctx context.Context) error {
	linkIt, err := svc.config.GraphAPI.Links(ctx)
	if err != nil {
		return err
	}

	for linkIt.Next() {
		l := linkIt.Link()
		// Links whose endpoints were stored after the documents were read
		// are picked up by the next pass.
		if err := svc.calculator.AddEdge(l.Source.String(), l.Target.String()); err != nil {
			if !errors.Is(err, pagerank.ErrUnknownVertex) {
				_ = linkIt.Close()

				return err
			}
		}
	}

	if err := linkIt.Error(); err != nil {
		_ = linkIt.Close()

		return err
	}

	return linkIt.Close()
}
