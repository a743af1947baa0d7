package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clubrec/internal/config"
	"github.com/kailas-cloud/clubrec/internal/db"
	dbValkey "github.com/kailas-cloud/clubrec/internal/db/valkey"
	"github.com/kailas-cloud/clubrec/internal/domain"
	domcat "github.com/kailas-cloud/clubrec/internal/domain/catalog"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/candidate"
	logpkg "github.com/kailas-cloud/clubrec/internal/logger"
	"github.com/kailas-cloud/clubrec/internal/metrics"
	catalogrepo "github.com/kailas-cloud/clubrec/internal/repository/catalog"
	"github.com/kailas-cloud/clubrec/internal/repository/embcache"
	"github.com/kailas-cloud/clubrec/internal/repository/vectorindex"
	"github.com/kailas-cloud/clubrec/internal/resilience"
	openaiEmb "github.com/kailas-cloud/clubrec/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/clubrec/internal/usecase/embedding"
)

// app is the composition root shared by serve and ingest.
type app struct {
	env     string
	cfg     config.Config
	logger  *zap.Logger
	store   db.Store
	closers []func()
}

func bootstrap(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.Register()

	// valkey and redis speak the same FT.* dialect through one client.
	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}

	a := &app{env: env, cfg: cfg, logger: logger, store: store, closers: []func(){store.Close}}

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		a.close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *app) breakerSettings(name string) *resilience.BreakerSettings {
	b := a.cfg.Breaker
	if !b.Enabled {
		return nil
	}
	return &resilience.BreakerSettings{
		Name:             name,
		MinRequests:      b.MinRequests,
		FailureRatio:     b.FailureRatio,
		Interval:         time.Duration(b.IntervalSec) * time.Second,
		OpenTimeout:      time.Duration(b.OpenTimeoutSec) * time.Second,
		HalfOpenRequests: b.HalfOpenRequests,
	}
}

// embedderChain wraps the shared guarded provider with cache, instrumentation
// and an instruction prefix. The instruction is outermost so it is part of the cache key.
type embedderChain interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

func (a *app) buildProvider() domain.Embedder {
	ec := a.cfg.Embedding
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     a.logger,
	})
	return embeddinguc.NewGuardedEmbedder(base, ec.RateLimitRPS, ec.RateLimitBurst,
		a.breakerSettings("embedding"), a.logger)
}

func (a *app) buildEmbedder(provider domain.Embedder, instruction string) embedderChain {
	ec := a.cfg.Embedding

	embedder := provider
	if ec.CacheEnabled {
		embedder = embcache.New(provider, a.store, embcache.Options{
			KeyPrefix:  a.cfg.Index.KeyPrefix + "emb_cache:",
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			TTL:        ec.CacheTTL(),
		}, metrics.EmbeddingCacheTotal, a.logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, a.logger)
	return domain.NewInstructionEmbedder(embedder, instruction)
}

func (a *app) buildVectorIndex() (*vectorindex.Repo, error) {
	metric, err := db.ParseDistanceMetric(a.cfg.Index.DistanceMetric)
	if err != nil {
		return nil, fmt.Errorf("index.distance_metric: %w", err)
	}
	repo := vectorindex.New(a.store, vectorindex.Options{
		IndexName:       a.cfg.Index.Name,
		KeyPrefix:       a.cfg.Index.KeyPrefix,
		Dimensions:      a.cfg.Embedding.Dimensions,
		Metric:          metric,
		HNSWM:           a.cfg.Index.HNSWM,
		HNSWEFConstruct: a.cfg.Index.HNSWEFConstruct,
	})
	if bs := a.breakerSettings("index"); bs != nil {
		repo.WithBreaker(resilience.NewBreaker[[]candidate.Candidate](*bs, a.logger))
	}
	return repo, nil
}

// catalogStore is what both commands need from the configured catalog backend.
type catalogStore interface {
	Lookup(ctx context.Context, id string) (domcat.Item, error)
	Upsert(ctx context.Context, item domcat.Item) error
	Ping(ctx context.Context) error
}

// buildCatalog returns nil when the catalog driver is "none".
func (a *app) buildCatalog(ctx context.Context) (catalogStore, error) {
	switch a.cfg.Catalog.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		repo, err := catalogrepo.OpenSQL(ctx, a.cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		return repo, nil
	default:
		return catalogrepo.NewHashRepo(a.store, a.cfg.Index.KeyPrefix), nil
	}
}
