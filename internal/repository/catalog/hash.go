// Package catalog persists catalog items for display enrichment, either as
// Valkey hashes next to the vector index or in a relational SQLite table.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/clubrec/internal/db"
	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/catalog"
)

// Hash field names. They double as the SQLite column names.
const (
	colName        = "name"
	colDescription = "description"
	colWebsite     = "website"
	colLink        = "link"
	colFacebook    = "facebook"
	colLinkedIn    = "linkedin"
	colInstagram   = "instagram"
	colYouTube     = "youtube"
)

// hashStore is the consumer interface for the hash-backed catalog (ISP).
type hashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// HashRepo stores each item as a hash under <prefix>catalog:<id>.
type HashRepo struct {
	store  hashStore
	prefix string
}

// NewHashRepo creates a hash-backed catalog repository.
func NewHashRepo(s hashStore, keyPrefix string) *HashRepo {
	return &HashRepo{store: s, prefix: keyPrefix + "catalog:"}
}

func (r *HashRepo) key(id string) string { return r.prefix + id }

// Lookup returns domain.ErrNotFound when the item is absent.
func (r *HashRepo) Lookup(ctx context.Context, id string) (catalog.Item, error) {
	fields, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return catalog.Item{}, fmt.Errorf("catalog item %s: %w", id, domain.ErrNotFound)
		}
		return catalog.Item{}, fmt.Errorf("catalog lookup %s: %w", id, err)
	}
	return fromFields(id, fields)
}

// Upsert writes every field, blanking links the item no longer has.
func (r *HashRepo) Upsert(ctx context.Context, item catalog.Item) error {
	if err := r.store.HSet(ctx, r.key(item.ID()), toFields(item)); err != nil {
		return fmt.Errorf("catalog upsert %s: %w", item.ID(), err)
	}
	return nil
}

// Delete removes an item. Deleting an absent item is not an error.
func (r *HashRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("catalog delete %s: %w", id, err)
	}
	return nil
}

// Ping checks the backing store.
func (r *HashRepo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx) //nolint:wrapcheck // health probe
}

func toFields(item catalog.Item) map[string]string {
	l := item.Links()
	return map[string]string{
		colName:        item.Name(),
		colDescription: item.Description(),
		colWebsite:     l.Website,
		colLink:        l.Link,
		colFacebook:    l.Facebook,
		colLinkedIn:    l.LinkedIn,
		colInstagram:   l.Instagram,
		colYouTube:     l.YouTube,
	}
}

func fromFields(id string, f map[string]string) (catalog.Item, error) {
	item, err := catalog.New(id, f[colName], f[colDescription], catalog.Links{
		Website:   f[colWebsite],
		Link:      f[colLink],
		Facebook:  f[colFacebook],
		LinkedIn:  f[colLinkedIn],
		Instagram: f[colInstagram],
		YouTube:   f[colYouTube],
	})
	if err != nil {
		return catalog.Item{}, fmt.Errorf("corrupt catalog item %s: %w", id, err)
	}
	return item, nil
}
