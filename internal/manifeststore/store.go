// Package manifeststore persists the {path -> fingerprint} manifest that is
// the authoritative answer to "is this path currently indexed at this
// fingerprint". It is backed by a dedicated SQLite table (WAL mode for
// concurrent reader access), separate from the chunk store's own tables.
package manifeststore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	cierrors "github.com/forge9/codeindex/internal/errors"
	"github.com/forge9/codeindex/internal/model"
)

// writeRetryConfig governs retries of manifest writes against transient
// SQLITE_BUSY contention from a concurrent reader or writer on the same
// database file, on top of the busy_timeout pragma already set in Open.
var writeRetryConfig = cierrors.RetryConfig{
	MaxRetries:   3,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     500 * time.Millisecond,
	Multiplier:   2.0,
	Jitter:       true,
}

const schema = `
CREATE TABLE IF NOT EXISTS manifest (
	path       TEXT PRIMARY KEY,
	hash       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// pageSize mirrors the store's scrolled full-scan page size from the spec's
// "cursor protocol" description (§4.2): List reads in batches of this size
// so a very large manifest never resides in memory as one query result.
const pageSize = 1000

// Store implements list / upsert / delete over a SQLite-backed manifest.
type Store struct {
	db *sql.DB
}

// Open creates or opens the manifest database at path. An empty path opens
// an in-memory database, used by tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create manifest dir: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open manifest db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create manifest schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns the full {path -> hash} manifest, read in pageSize-row pages
// to bound memory while scanning a very large table (the spec's "scrolled
// full scan" contract).
func (s *Store) List(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	lastPath := ""
	for {
		rows, err := s.db.QueryContext(ctx,
			`SELECT path, hash FROM manifest WHERE path > ? ORDER BY path LIMIT ?`,
			lastPath, pageSize)
		if err != nil {
			return nil, fmt.Errorf("scan manifest page: %w", err)
		}

		n := 0
		for rows.Next() {
			var path, hash string
			if err := rows.Scan(&path, &hash); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan manifest row: %w", err)
			}
			out[path] = hash
			lastPath = path
			n++
		}
		closeErr := rows.Close()
		if closeErr != nil {
			return nil, closeErr
		}
		if n < pageSize {
			break
		}
	}
	return out, nil
}

// Get returns a single manifest entry, or ok=false if the path is not
// currently indexed.
func (s *Store) Get(ctx context.Context, path string) (entry model.ManifestEntry, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, hash, created_at, updated_at FROM manifest WHERE path = ?`, path)
	err = row.Scan(&entry.Path, &entry.Hash, &entry.CreatedAt, &entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.ManifestEntry{}, false, nil
	}
	if err != nil {
		return model.ManifestEntry{}, false, fmt.Errorf("get manifest entry %s: %w", path, err)
	}
	return entry, true, nil
}

// Upsert writes or replaces the manifest entry for path. Refresh-on-write is
// implicit: SQLite commits are visible to the next read on this connection
// pool without a separate refresh step.
func (s *Store) Upsert(ctx context.Context, path, hash string, now time.Time) error {
	err := cierrors.Retry(ctx, writeRetryConfig, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO manifest (path, hash, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, updated_at = excluded.updated_at
		`, path, hash, now, now)
		return err
	})
	if err != nil {
		return cierrors.NewKind(cierrors.KindStoreTransient, "upsert manifest entry failed", path, "manifest", err)
	}
	return nil
}

// Delete removes the manifest entry for path, if any.
func (s *Store) Delete(ctx context.Context, path string) error {
	err := cierrors.Retry(ctx, writeRetryConfig, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM manifest WHERE path = ?`, path)
		return err
	})
	if err != nil {
		return cierrors.NewKind(cierrors.KindStoreTransient, "delete manifest entry failed", path, "manifest", err)
	}
	return nil
}
