// Package recommend turns a free-text query into a ranked, enriched list of
// catalog items: embed, search, dedup, rank, enrich.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/candidate"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/request"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/result"
	"github.com/kailas-cloud/clubrec/internal/logger"
	"github.com/kailas-cloud/clubrec/internal/metrics"
	"github.com/kailas-cloud/clubrec/internal/resilience"
)

// Upstream labels for retry metrics.
const (
	upstreamEmbedding = "embedding"
	upstreamIndex     = "index"
)

// Defaults applied to zero Options fields.
const (
	DefaultOverfetch     = 2
	DefaultConcurrency   = 8
	DefaultLookupTimeout = 500 * time.Millisecond
)

// Options tunes the pipeline. Zero fields take defaults.
type Options struct {
	Limits        request.Limits
	Overfetch     int
	Embed         resilience.RetryPolicy
	Search        resilience.RetryPolicy
	LookupTimeout time.Duration
	Concurrency   int
}

func (o Options) withDefaults() Options {
	o.Limits = o.Limits.Normalized()
	if o.Overfetch < 1 {
		o.Overfetch = DefaultOverfetch
	}
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = DefaultLookupTimeout
	}
	return o
}

// Service is the recommendation engine. It holds no per-request state.
type Service struct {
	embedder Embedder
	index    VectorIndex
	catalog  Catalog
	dims     int
	logger   *zap.Logger
	opts     Options
}

// New creates a recommendation service. catalog may be nil, in which case
// results carry no display metadata.
func New(embedder Embedder, index VectorIndex, catalog Catalog, dims int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder: embedder,
		index:    index,
		catalog:  catalog,
		dims:     dims,
		logger:   logger,
		opts:     Options{}.withDefaults(),
	}
}

// WithOptions replaces the pipeline tuning.
func (s *Service) WithOptions(o Options) *Service {
	s.opts = o.withDefaults()
	return s
}

// Limits returns the effective request bounds.
func (s *Service) Limits() request.Limits { return s.opts.Limits }

// Recommend validates the query and returns at most topN results ordered by
// score desc, itemID asc. topN nil means the configured default.
func (s *Service) Recommend(ctx context.Context, queryText string, topN *int) ([]result.Result, error) {
	start := time.Now()
	results, err := s.recommend(ctx, queryText, topN)
	metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	metrics.RecommendRequestsTotal.WithLabelValues(outcome(err)).Inc()
	return results, err
}

func (s *Service) recommend(ctx context.Context, queryText string, topN *int) ([]result.Result, error) {
	req, err := request.New(queryText, topN, s.opts.Limits)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.logger)

	vector, err := s.vectorize(ctx, req.QueryText())
	if err != nil {
		return nil, err
	}

	k := searchK(req.TopN(), s.opts.Overfetch, s.opts.Limits.MaxTopN)
	cands, err := resilience.Retry(ctx, s.opts.Search, upstreamIndex,
		func(ctx context.Context) ([]candidate.Candidate, error) {
			return s.index.Search(ctx, vector, k)
		})
	if err != nil {
		return nil, fmt.Errorf("search index: %w: %w", domain.ErrVectorIndexError, err)
	}

	ranked, distinct := rank(cands, req.TopN(), log)
	metrics.RecommendCandidates.Observe(float64(distinct))
	log.Debug("candidates ranked",
		zap.Int("k", k),
		zap.Int("hits", len(cands)),
		zap.Int("distinct", distinct),
		zap.Int("top_n", req.TopN()),
	)

	return s.enrich(ctx, ranked), nil
}

// vectorize embeds the query. The vector check runs after the retry loop:
// a malformed vector is a provider bug, not a transient failure.
func (s *Service) vectorize(ctx context.Context, text string) ([]float32, error) {
	emb, err := resilience.Retry(ctx, s.opts.Embed, upstreamEmbedding,
		func(ctx context.Context) (domain.EmbeddingResult, error) {
			return s.embedder.Embed(ctx, text)
		})
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if err := domain.CheckVector(emb.Embedding, s.dims); err != nil {
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return emb.Embedding, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return "embedding_error"
	case errors.Is(err, domain.ErrVectorIndexError):
		return "index_error"
	default:
		return "internal"
	}
}
