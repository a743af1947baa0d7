// Package chi exposes the recommendation service over HTTP.
package chi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/result"
	"github.com/kailas-cloud/clubrec/internal/metrics"
	healthuc "github.com/kailas-cloud/clubrec/internal/usecase/health"
	"github.com/kailas-cloud/clubrec/internal/version"
)

const headerEmbeddingTokens = "X-Embedding-Tokens"

// DefaultMaxBodyBytes caps request bodies. Queries are bounded well below this.
const DefaultMaxBodyBytes = 64 << 10

// Recommender is the recommendation use case.
type Recommender interface {
	Recommend(ctx context.Context, queryText string, topN *int) ([]result.Result, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options configures the router.
type Options struct {
	APIKeys            []string
	CORSAllowedOrigins []string
	RateLimitRequests  int // per client IP per window on the recommend route; 0 = unlimited
	RateLimitWindow    time.Duration
	MaxBodyBytes       int64
}

// Server holds HTTP handlers.
type Server struct {
	recommend     Recommender
	health        HealthChecker
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(recommend Recommender, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		recommend:     recommend,
		health:        health,
		logger:        logger,
		maxBodyBytes:  DefaultMaxBodyBytes,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router(opts Options) http.Handler {
	if opts.MaxBodyBytes > 0 {
		s.maxBodyBytes = opts.MaxBodyBytes
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chimw.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(corsMiddleware(opts.CORSAllowedOrigins))
	r.Use(BearerAuthMiddleware(opts.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/", s.Home)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.With(rateLimit(opts.RateLimitRequests, opts.RateLimitWindow)).
		Post("/v1/recommendations", s.Recommend)

	return r
}

type recommendRequest struct {
	QueryText json.RawMessage `json:"queryText"`
	TopN      json.RawMessage `json:"topN"`
}

// RecommendationItem is one entry of a successful response.
type RecommendationItem struct {
	ItemID      string  `json:"itemId"`
	DisplayName *string `json:"displayName"`
	Description *string `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// RecommendResponse is the body of a successful recommendation.
type RecommendResponse struct {
	Results []RecommendationItem `json:"results"`
}

// Recommend handles POST /v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	queryText, topN, err := req.decode()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.recommend.Recommend(ctx, queryText, topN)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]RecommendationItem, len(results))
	for i := range results {
		items[i] = RecommendationItem{
			ItemID:      results[i].ItemID(),
			DisplayName: results[i].DisplayName(),
			Description: results[i].Description(),
			Score:       results[i].Score(),
		}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, RecommendResponse{Results: items})
}

// decode turns loosely typed JSON fields into arguments. A missing or null
// queryText becomes "" so the use case reports it as required.
func (req recommendRequest) decode() (string, *int, error) {
	var queryText string
	if isPresent(req.QueryText) {
		if err := json.Unmarshal(req.QueryText, &queryText); err != nil {
			return "", nil, domain.NewValidationError("queryText", "must be a string")
		}
	}

	var topN *int
	if isPresent(req.TopN) {
		var f float64
		if err := json.Unmarshal(req.TopN, &f); err != nil || f != math.Trunc(f) {
			return "", nil, domain.NewValidationError("topN", "must be an integer")
		}
		// Out-of-range values are clamped downstream; bound here only to fit an int.
		n := int(max(min(f, math.MaxInt32), math.MinInt32))
		topN = &n
	}
	return queryText, topN, nil
}

func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "clubrec recommendation service",
		"version": version.Version,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if tokens, used := usage.Snapshot(); used {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(tokens))
	}
}
