package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/metrics"
	"github.com/kailas-cloud/clubrec/internal/resilience"
)

// GuardedEmbedder sits directly on the provider: an outbound rate limiter paces
// calls and a circuit breaker fails fast while the provider is down. Either may be nil.
type GuardedEmbedder struct {
	inner        domain.Embedder
	limiter      *rate.Limiter
	breaker      *resilience.Breaker[domain.EmbeddingResult]
	batchBreaker *resilience.Breaker[domain.BatchEmbeddingResult]
}

// NewGuardedEmbedder wraps inner. rps <= 0 disables the limiter, a nil breaker
// disables circuit breaking.
func NewGuardedEmbedder(
	inner domain.Embedder, rps float64, burst int,
	breaker *resilience.BreakerSettings, logger *zap.Logger,
) *GuardedEmbedder {
	g := &GuardedEmbedder{inner: inner}
	if rps > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
	if breaker != nil {
		g.breaker = resilience.NewBreaker[domain.EmbeddingResult](*breaker, logger)
		batch := *breaker
		batch.Name += "-batch"
		g.batchBreaker = resilience.NewBreaker[domain.BatchEmbeddingResult](batch, logger)
	}
	return g
}

func (g *GuardedEmbedder) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	start := time.Now()
	err := g.limiter.Wait(ctx)
	metrics.EmbeddingRateLimitWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("embedding rate limit: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return nil
}

// Embed implements domain.Embedder.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := g.wait(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}
	if g.breaker == nil {
		return g.inner.Embed(ctx, text) //nolint:wrapcheck // transparent decorator
	}
	return g.breaker.Execute(func() (domain.EmbeddingResult, error) {
		return g.inner.Embed(ctx, text)
	})
}

// BatchEmbed implements domain.BatchEmbedder. A batch costs one limiter token.
func (g *GuardedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	if err := g.wait(ctx); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	call := func() (domain.BatchEmbeddingResult, error) {
		return batchOrFallback(ctx, g.inner, texts)
	}
	if g.batchBreaker == nil {
		return call()
	}
	return g.batchBreaker.Execute(call)
}

// HealthCheck bypasses limiter and breaker so /health reports the provider itself.
func (g *GuardedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
