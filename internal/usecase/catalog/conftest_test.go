package catalog

import (
	"context"
	"errors"

	"github.com/kailas-cloud/clubrec/internal/domain"
	domcat "github.com/kailas-cloud/clubrec/internal/domain/catalog"
)

// --- Mocks ---

type mockVectors struct {
	ensureErr error
	created   bool
	recreate  bool
	upsertErr map[string]error
	stored    map[string]map[string][]float32
}

func newMockVectors() *mockVectors {
	return &mockVectors{
		upsertErr: make(map[string]error),
		stored:    make(map[string]map[string][]float32),
	}
}

func (m *mockVectors) EnsureIndex(_ context.Context, recreate bool) (bool, error) {
	m.recreate = recreate
	return m.created, m.ensureErr
}

func (m *mockVectors) UpsertVectors(_ context.Context, itemID string, vectors map[string][]float32) error {
	if err := m.upsertErr[itemID]; err != nil {
		return err
	}
	m.stored[itemID] = vectors
	return nil
}

type mockItems struct {
	items map[string]domcat.Item
	err   error
}

func (m *mockItems) Upsert(_ context.Context, item domcat.Item) error {
	if m.err != nil {
		return m.err
	}
	if m.items == nil {
		m.items = make(map[string]domcat.Item)
	}
	m.items[item.ID()] = item
	return nil
}

// mockEmbedder returns a vector whose first element is the text length.
type mockEmbedder struct {
	err     error
	short   bool
	calls   int
	batches [][]string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 0, 0}
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts) * 5}, nil
}

var errBoom = errors.New("boom")

func club(name, description string) domcat.Item {
	it, err := domcat.New("", name, description, domcat.Links{})
	if err != nil {
		panic(err)
	}
	return it
}
