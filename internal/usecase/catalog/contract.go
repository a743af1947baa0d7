package catalog

import (
	"context"

	"github.com/kailas-cloud/clubrec/internal/domain"
	domcat "github.com/kailas-cloud/clubrec/internal/domain/catalog"
)

// VectorWriter manages the vector index and writes per-field vectors.
type VectorWriter interface {
	EnsureIndex(ctx context.Context, recreate bool) (created bool, err error)
	UpsertVectors(ctx context.Context, itemID string, vectors map[string][]float32) error
}

// ItemWriter persists catalog display metadata.
type ItemWriter interface {
	Upsert(ctx context.Context, item domcat.Item) error
}

// BatchEmbedder vectorizes several texts in one call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
