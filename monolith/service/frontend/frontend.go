package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mycok/sherlook/monolith/metrics"
	"github.com/mycok/sherlook/query"
	"github.com/mycok/sherlook/ranker"
)

const (
	searchEndpoint     = "/search"
	cacheStatsEndpoint = "/admin/cache-stats"
	metricsEndpoint    = "/metrics"
)

var errBadRequest = errors.New("bad request")

// Service represents a front-end service for the sherlook application. it
// satisfies the service.Service interface.
type Service struct {
	config Config
	// Any router type that satisfies the http.Handler interface.
	router *chi.Mux
}

// New creates and returns a fully configured front-end service instance.
func New(config Config) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("frontend service: config validation failed: %w", err)
	}

	svc := &Service{
		config: config,
		router: chi.NewRouter(),
	}

	svc.router.Get(searchEndpoint, svc.search)
	svc.router.Get(cacheStatsEndpoint, svc.cacheStats)
	if config.Metrics != nil {
		svc.router.Handle(metricsEndpoint, config.Metrics.Handler())
	}

	svc.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "page not found")
	})

	return svc, nil
}

// Name returns the name of the service.
func (svc *Service) Name() string { return "frontend" }

// ServeHTTP implements http.Handler.
func (svc *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	svc.router.ServeHTTP(w, r)
}

// Run executes the service and blocks until the context gets cancelled
// or an error occurs.
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.config.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:         svc.config.ListenAddr,
		Handler:      svc.router,
		ReadTimeout:  svc.config.ReadTimeout,
		WriteTimeout: svc.config.WriteTimeout,
	}

	go func() {
		<-ctx.Done()

		_ = srv.Close()
	}()

	svc.config.Logger.WithField("addr", svc.config.ListenAddr).Info(
		"started service",
	)

	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Server closed gracefully.
		err = nil
	}

	return err
}

// searchResponse is the JSON body of a successful search.
type searchResponse struct {
	Results        []searchResult `json:"results"`
	TotalPages     int            `json:"totalPages"`
	TimeMs         int64          `json:"timeMs"`
	TotalDocuments int            `json:"totalDocuments"`
}

type searchResult struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
}

func (svc *Service) search(w http.ResponseWriter, r *http.Request) {
	startedAt := svc.config.Clock.Now()

	raw := r.URL.Query().Get("query")
	q := query.Parse(raw)

	mode := "keyword"
	if q.Phrase {
		mode = "phrase"
	}

	resp, err := svc.runQuery(r, raw, q)
	took := svc.config.Clock.Now().Sub(startedAt)

	if err != nil {
		if errors.Is(err, errBadRequest) {
			svc.observe(mode, metrics.OutcomeBadInput, 0, took)
			writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		svc.config.Logger.WithField("err", err).Error("search query execution failed")
		svc.observe(mode, metrics.OutcomeError, 0, took)
		writeError(w, http.StatusInternalServerError, "an error occurred, please try again later")

		return
	}

	resp.TimeMs = took.Milliseconds()

	outcome := metrics.OutcomeOK
	if resp.TotalDocuments == 0 {
		outcome = metrics.OutcomeEmpty
	}
	svc.observe(mode, outcome, resp.TotalDocuments, took)

	writeJSON(w, http.StatusOK, resp)
}

func (svc *Service) runQuery(r *http.Request, raw string, q query.Query) (*searchResponse, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: missing query parameter", errBadRequest)
	}

	page, err := intParam(r, "page", 1)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("%w: invalid page parameter", errBadRequest)
	}

	perPage, err := intParam(r, "resultsPerPage", svc.config.NumOfResultsPerPage)
	if err != nil || perPage < 1 {
		return nil, fmt.Errorf("%w: invalid resultsPerPage parameter", errBadRequest)
	}
	perPage = min(perPage, maxNumOfResultsPerPage)

	// The offset of the requested page must fit in an int.
	if page-1 > math.MaxInt/perPage {
		return nil, fmt.Errorf("%w: invalid page parameter", errBadRequest)
	}

	// The ranking may be shared with concurrent identical queries, so it must
	// not be aborted when this particular request goes away.
	loadCtx := context.WithoutCancel(r.Context())

	res, err := svc.config.Cache.GetOrCompute(q.Signature(), func() (*ranker.RankingResult, error) {
		switch {
		case q.Empty():
			return &ranker.RankingResult{}, nil
		case q.Phrase:
			return svc.config.RankerAPI.RankPhrases(loadCtx, q.Phrases, q.Operators)
		default:
			return svc.config.RankerAPI.RankDocuments(loadCtx, q.Terms, false)
		}
	})
	if err != nil {
		return nil, err
	}

	docs, err := svc.config.RankerAPI.PageWithSnippets(
		r.Context(), res, q.SearchTerms(), (page-1)*perPage, perPage, q.Phrase,
	)
	if err != nil {
		return nil, err
	}

	total := res.Total()
	resp := &searchResponse{
		Results:        make([]searchResult, 0, len(docs)),
		TotalPages:     (total + perPage - 1) / perPage,
		TotalDocuments: total,
	}

	for _, d := range docs {
		resp.Results = append(resp.Results, searchResult{
			ID:          d.ID.String(),
			URL:         d.URL,
			Title:       d.Title,
			Description: d.Description,
			Snippet:     d.Snippet,
			Score:       d.FinalScore,
		})
	}

	return resp, nil
}

func (svc *Service) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, svc.config.Cache.Stats())
}

func (svc *Service) observe(mode, outcome string, results int, took time.Duration) {
	if svc.config.Metrics != nil {
		svc.config.Metrics.ObserveSearch(mode, outcome, results, took)
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}

	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
