// Package sqlitesnapshot stores freshness cache snapshots in a local SQLite file.
package sqlitesnapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MensaSverige/swagapp-sub001/freshness"
	apperrors "github.com/MensaSverige/swagapp-sub001/internal/errors"

	_ "modernc.org/sqlite"
)

var _ freshness.Snapshotter = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" keeps everything in memory.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("[sqlitesnapshot.Open] create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[sqlitesnapshot.Open] open sqlite: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS snapshots (
  name TEXT PRIMARY KEY,
  data BLOB NOT NULL,
  fetched_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("[sqlitesnapshot] create snapshots table: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, time.Time, error) {
	var (
		data      []byte
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, fetched_at FROM snapshots WHERE name = ?`, name).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("[Store.Load] %s: %w", name, err)
	}

	at, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("[Store.Load] %s: parse fetched_at: %w", name, err)
	}
	return data, at, nil
}

func (s *Store) Save(ctx context.Context, name string, data []byte, fetchedAt time.Time) error {
	const stmt = `
INSERT INTO snapshots (name, data, fetched_at)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  data=excluded.data,
  fetched_at=excluded.fetched_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, name, data, fetchedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("[Store.Save] %s: %w", name, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
