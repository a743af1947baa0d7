// Package vectorindex stores per-field item embeddings as hashes and queries
// them with KNN through the search module.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/clubrec/internal/db"
	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/candidate"
	"github.com/kailas-cloud/clubrec/internal/resilience"
)

const (
	fieldItemID = "item_id"
	fieldName   = "field"
	fieldVector = "vector"
)

// store is the consumer interface for index operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Options describes the index layout.
type Options struct {
	IndexName       string
	KeyPrefix       string // e.g. "clubrec:"; vectors live under <KeyPrefix>vec:
	Dimensions      int
	Metric          db.DistanceMetric
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements the engine's vector index over a db store.
type Repo struct {
	store   store
	opts    Options
	breaker *resilience.Breaker[[]candidate.Candidate]
}

// New creates a vector index repository.
func New(s store, opts Options) *Repo {
	if opts.Metric == "" {
		opts.Metric = db.DistanceCosine
	}
	return &Repo{store: s, opts: opts}
}

// WithBreaker routes searches through b.
func (r *Repo) WithBreaker(b *resilience.Breaker[[]candidate.Candidate]) *Repo {
	r.breaker = b
	return r
}

func (r *Repo) vectorPrefix() string {
	return r.opts.KeyPrefix + "vec:"
}

// VectorKey is the hash key holding one field's embedding for an item.
func (r *Repo) VectorKey(itemID, field string) string {
	return r.vectorPrefix() + itemID + ":" + field
}

// Search returns up to k candidates. The store may return fewer, or the same
// item more than once (one hit per embedded field).
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]candidate.Candidate, error) {
	if r.breaker == nil {
		return r.search(ctx, vector, k)
	}
	return r.breaker.Execute(func() ([]candidate.Candidate, error) {
		return r.search(ctx, vector, k)
	})
}

func (r *Repo) search(ctx context.Context, vector []float32, k int) ([]candidate.Candidate, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.opts.IndexName,
		VectorField:  fieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldItemID},
	})
	if err != nil {
		if errors.Is(err, db.ErrUnavailable) {
			return nil, fmt.Errorf("search %s: %w: %w", r.opts.IndexName, domain.ErrTransient, err)
		}
		return nil, fmt.Errorf("search %s: %w", r.opts.IndexName, err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, candidate.New(r.itemIDOf(e), r.similarity(e.Distance)))
	}
	return out, nil
}

// itemIDOf prefers the item_id tag and falls back to parsing the key.
func (r *Repo) itemIDOf(e db.SearchEntry) string {
	if id := e.Fields[fieldItemID]; id != "" {
		return id
	}
	rest := strings.TrimPrefix(e.Key, r.vectorPrefix())
	if rest == e.Key {
		return ""
	}
	if i := strings.LastIndexByte(rest, ':'); i > 0 {
		return rest[:i]
	}
	return rest
}

// similarity turns a distance into a higher-is-better score. NaN stays NaN.
func (r *Repo) similarity(d float64) float64 {
	if math.IsNaN(d) {
		return d
	}
	switch r.opts.Metric {
	case db.DistanceL2:
		return 1 / (1 + d)
	default: // COSINE and IP report 1 - similarity
		return 1 - d
	}
}

// UpsertVectors writes one hash per field for itemID in a single round-trip.
func (r *Repo) UpsertVectors(ctx context.Context, itemID string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(vectors))
	for field, vec := range vectors {
		if err := domain.CheckVector(vec, r.opts.Dimensions); err != nil {
			return fmt.Errorf("item %s field %s: %w", itemID, field, err)
		}
		items = append(items, db.HashSetItem{
			Key: r.VectorKey(itemID, field),
			Fields: map[string]string{
				fieldItemID: itemID,
				fieldName:   field,
				fieldVector: db.EncodeVector(vec),
			},
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert vectors %s: %w", itemID, err)
	}
	return nil
}

// Definition is the FT.CREATE schema for the configured layout.
func (r *Repo) Definition() (*db.IndexDefinition, error) {
	return db.NewIndexDefinition(r.opts.IndexName, r.vectorPrefix(),
		db.TagField(fieldItemID),
		db.TagField(fieldName),
		db.VectorField(fieldVector, db.VectorParams{
			Algorithm:   db.VectorHNSW,
			Dim:         r.opts.Dimensions,
			Metric:      r.opts.Metric,
			M:           r.opts.HNSWM,
			EFConstruct: r.opts.HNSWEFConstruct,
		}),
	)
}

// EnsureIndex creates the index when absent. With recreate, an existing index
// is dropped first; the vector hashes themselves are left in place.
func (r *Repo) EnsureIndex(ctx context.Context, recreate bool) (created bool, err error) {
	def, err := r.Definition()
	if err != nil {
		return false, fmt.Errorf("index definition: %w", err)
	}

	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("probe index %s: %w", def.Name, err)
	}
	if exists && !recreate {
		return false, nil
	}
	if exists {
		if err := r.store.DropIndex(ctx, def.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return false, fmt.Errorf("drop index %s: %w", def.Name, err)
		}
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return true, nil
}
