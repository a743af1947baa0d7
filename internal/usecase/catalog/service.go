// Package catalog loads club records, embeds their text fields and stores
// both the vectors and the display metadata.
package catalog

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clubrec/internal/domain"
	dombatch "github.com/kailas-cloud/clubrec/internal/domain/batch"
	domcat "github.com/kailas-cloud/clubrec/internal/domain/catalog"
	"github.com/kailas-cloud/clubrec/internal/logger"
)

// DefaultBatchSize is the number of items embedded per provider call.
const DefaultBatchSize = 32

// Service ingests catalog items.
type Service struct {
	vectors   VectorWriter
	items     ItemWriter
	embed     BatchEmbedder
	batchSize int
	logger    *zap.Logger
}

// New creates an ingest service. items may be nil when no catalog store is configured.
func New(vectors VectorWriter, items ItemWriter, embed BatchEmbedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		vectors:   vectors,
		items:     items,
		embed:     embed,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize sets the number of items per embedding call.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Ingest makes sure the index exists, then embeds and stores every item.
// Item failures are reported per item; only index setup errors abort the run.
func (s *Service) Ingest(ctx context.Context, items []domcat.Item, recreate bool) ([]dombatch.Result, dombatch.Summary, error) {
	log := logger.FromContext(ctx, s.logger)

	created, err := s.vectors.EnsureIndex(ctx, recreate)
	if err != nil {
		return nil, dombatch.Summary{}, fmt.Errorf("ensure index: %w", err)
	}
	if created {
		log.Info("vector index created")
	}

	results := make([]dombatch.Result, 0, len(items))
	tokens := 0
	for chunk := range slices.Chunk(items, s.batchSize) {
		if err := ctx.Err(); err != nil {
			for _, it := range chunk {
				results = append(results, dombatch.NewError(it.ID(), err))
			}
			continue
		}
		res, used := s.ingestChunk(ctx, chunk, log)
		results = append(results, res...)
		tokens += used
	}

	sum := dombatch.Summarize(results, tokens)
	log.Info("catalog ingested",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("vectors", sum.Vectors),
		zap.Int("tokens", sum.Tokens),
	)
	return results, sum, nil
}

type textRef struct {
	item  int
	field string
}

func (s *Service) ingestChunk(ctx context.Context, chunk []domcat.Item, log *zap.Logger) ([]dombatch.Result, int) {
	var (
		texts []string
		refs  []textRef
	)
	for i := range chunk {
		byField := chunk[i].EmbeddingTexts()
		for _, f := range []string{domcat.FieldName, domcat.FieldDescription} {
			if t, ok := byField[f]; ok {
				texts = append(texts, t)
				refs = append(refs, textRef{item: i, field: f})
			}
		}
	}

	results := make([]dombatch.Result, len(chunk))

	emb, err := s.embed.BatchEmbed(ctx, texts)
	if err == nil && len(emb.Embeddings) != len(texts) {
		err = fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingProviderError, len(emb.Embeddings), len(texts))
	}
	if err != nil {
		log.Warn("batch embed failed", zap.Int("items", len(chunk)), zap.Error(err))
		for i := range chunk {
			results[i] = dombatch.NewError(chunk[i].ID(), fmt.Errorf("embed: %w", err))
		}
		return results, 0
	}

	vectors := make([]map[string][]float32, len(chunk))
	for j, ref := range refs {
		if vectors[ref.item] == nil {
			vectors[ref.item] = make(map[string][]float32, 2)
		}
		vectors[ref.item][ref.field] = emb.Embeddings[j]
	}

	for i := range chunk {
		results[i] = s.store(ctx, chunk[i], vectors[i])
		if err := results[i].Err(); err != nil {
			log.Warn("item ingest failed", zap.String("item_id", chunk[i].ID()), zap.Error(err))
		}
	}
	return results, emb.TotalTokens
}

// store writes metadata before vectors so that any searchable item resolves.
func (s *Service) store(ctx context.Context, item domcat.Item, vectors map[string][]float32) dombatch.Result {
	if s.items != nil {
		if err := s.items.Upsert(ctx, item); err != nil {
			return dombatch.NewError(item.ID(), fmt.Errorf("store item: %w", err))
		}
	}
	if err := s.vectors.UpsertVectors(ctx, item.ID(), vectors); err != nil {
		return dombatch.NewError(item.ID(), fmt.Errorf("store vectors: %w", err))
	}
	return dombatch.NewOK(item.ID(), len(vectors))
}
