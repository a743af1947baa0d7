package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/catalog"
)

const memoryPath = ":memory:"

const schema = `CREATE TABLE IF NOT EXISTS clubs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	link        TEXT NOT NULL DEFAULT '',
	facebook    TEXT NOT NULL DEFAULT '',
	linkedin    TEXT NOT NULL DEFAULT '',
	instagram   TEXT NOT NULL DEFAULT '',
	youtube     TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT ''
)`

const selectItem = `SELECT name, description, link, facebook, linkedin, instagram, youtube, website
FROM clubs WHERE id = ?`

const upsertItem = `INSERT INTO clubs (id, name, description, link, facebook, linkedin, instagram, youtube, website)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	description = excluded.description,
	link = excluded.link,
	facebook = excluded.facebook,
	linkedin = excluded.linkedin,
	instagram = excluded.instagram,
	youtube = excluded.youtube,
	website = excluded.website`

// SQLRepo keeps the catalog in a SQLite "clubs" table.
type SQLRepo struct {
	db *sql.DB
}

// OpenSQL opens (creating if needed) the SQLite catalog at path. ":memory:" is
// accepted for tests and pins the pool to a single connection.
func OpenSQL(ctx context.Context, path string) (*SQLRepo, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == memoryPath {
		dsn = memoryPath
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	if path == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating clubs table: %w", err)
	}
	return &SQLRepo{db: conn}, nil
}

// Lookup returns domain.ErrNotFound when no row matches id.
func (r *SQLRepo) Lookup(ctx context.Context, id string) (catalog.Item, error) {
	var name, description string
	var l catalog.Links

	err := r.db.QueryRowContext(ctx, selectItem, id).Scan(
		&name, &description, &l.Link, &l.Facebook, &l.LinkedIn, &l.Instagram, &l.YouTube, &l.Website,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Item{}, fmt.Errorf("catalog item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return catalog.Item{}, fmt.Errorf("catalog lookup %s: %w", id, err)
	}

	item, err := catalog.New(id, name, description, l)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("corrupt catalog item %s: %w", id, err)
	}
	return item, nil
}

// Upsert inserts or replaces the row for item.
func (r *SQLRepo) Upsert(ctx context.Context, item catalog.Item) error {
	l := item.Links()
	_, err := r.db.ExecContext(ctx, upsertItem,
		item.ID(), item.Name(), item.Description(),
		l.Link, l.Facebook, l.LinkedIn, l.Instagram, l.YouTube, l.Website,
	)
	if err != nil {
		return fmt.Errorf("catalog upsert %s: %w", item.ID(), err)
	}
	return nil
}

// Delete removes an item. Deleting an absent item is not an error.
func (r *SQLRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM clubs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("catalog delete %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored items.
func (r *SQLRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clubs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog count: %w", err)
	}
	return n, nil
}

// Ping checks the database handle.
func (r *SQLRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx) //nolint:wrapcheck // health probe
}

// Close releases the pool.
func (r *SQLRepo) Close() error {
	return r.db.Close() //nolint:wrapcheck // shutdown path
}
