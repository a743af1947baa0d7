package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register adds the HTTP and domain collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestDuration,
			HTTPRequestsTotal,
			HTTPRequestsInFlight,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			EmbeddingRateLimitWait,
			RecommendRequestsTotal,
			RecommendDuration,
			RecommendCandidates,
			UpstreamRetriesTotal,
			EnrichmentTotal,
			CircuitBreakerState,
			CircuitBreakerTransitions,
			CircuitBreakerRejected,
		)
	})
}
