package recommend

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/catalog"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/candidate"
)

const testDims = 3

func vec() []float32 { return []float32{0.1, 0.2, 0.3} }

// --- Mocks ---

type mockEmbedder struct {
	vector []float32
	errs   []error // consumed one per call; nil entries succeed
	block  bool    // wait for ctx cancellation, then return ctx.Err()
	calls  atomic.Int32
	got    string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	n := int(m.calls.Add(1)) - 1
	m.got = text
	if m.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}
	if n < len(m.errs) && m.errs[n] != nil {
		return domain.EmbeddingResult{}, m.errs[n]
	}
	return domain.EmbeddingResult{Embedding: m.vector, TotalTokens: 4}, nil
}

type mockIndex struct {
	cands []candidate.Candidate
	errs  []error
	calls atomic.Int32
	lastK int
}

func (m *mockIndex) Search(_ context.Context, _ []float32, k int) ([]candidate.Candidate, error) {
	n := int(m.calls.Add(1)) - 1
	m.lastK = k
	if n < len(m.errs) && m.errs[n] != nil {
		return nil, m.errs[n]
	}
	return m.cands, nil
}

type mockCatalog struct {
	mu     sync.Mutex
	items  map[string]catalog.Item
	errs   map[string]error
	calls  map[string]int
	active atomic.Int32
	peak   atomic.Int32
	wait   chan struct{} // when set, lookups block until closed
}

func newMockCatalog(items ...catalog.Item) *mockCatalog {
	m := &mockCatalog{
		items: make(map[string]catalog.Item),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
	for _, it := range items {
		m.items[it.ID()] = it
	}
	return m
}

func (m *mockCatalog) Lookup(ctx context.Context, itemID string) (catalog.Item, error) {
	cur := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if cur <= p || m.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	m.mu.Lock()
	m.calls[itemID]++
	err := m.errs[itemID]
	item, ok := m.items[itemID]
	m.mu.Unlock()

	if m.wait != nil {
		select {
		case <-m.wait:
		case <-ctx.Done():
			return catalog.Item{}, ctx.Err()
		}
	}
	if err != nil {
		return catalog.Item{}, err
	}
	if !ok {
		return catalog.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func (m *mockCatalog) callCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func club(id, name, description string) catalog.Item {
	it, err := catalog.New(id, name, description, catalog.Links{})
	if err != nil {
		panic(err)
	}
	return it
}
