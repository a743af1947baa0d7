package recommend

import (
	"context"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/catalog"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/candidate"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex returns nearest-neighbor candidates for a query vector.
// It may return fewer than k hits, or the same item more than once.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]candidate.Candidate, error)
}

// Catalog resolves display metadata. Lookup returns domain.ErrNotFound for unknown items.
type Catalog interface {
	Lookup(ctx context.Context, itemID string) (catalog.Item, error)
}
