package catalog

import (
	"context"
	"testing"

	"github.com/kailas-cloud/clubrec/internal/db"
	"github.com/kailas-cloud/clubrec/internal/domain/catalog"
)

// mockHashStore is an in-memory hashStore.
type mockHashStore struct {
	hashes  map[string]map[string]string
	getErr  error
	pingErr error
}

func newMockHashStore() *mockHashStore {
	return &mockHashStore{hashes: make(map[string]map[string]string)}
}

func (m *mockHashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (m *mockHashStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *mockHashStore) Ping(context.Context) error { return m.pingErr }

func testItem(t *testing.T) catalog.Item {
	t.Helper()
	item, err := catalog.New("", "Robotics Club", "We build robots.", catalog.Links{
		Website:   "https://robotics.example.edu",
		Facebook:  "N/A",
		Instagram: "https://instagram.com/robotics",
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return item
}
