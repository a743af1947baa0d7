package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogPinger checks the catalog store used for enrichment.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}
