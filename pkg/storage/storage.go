package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sw33tLie/scopediff/pkg/snapshot"
	_ "modernc.org/sqlite"
)

// DB stores snapshots in a SQLite database.
type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
  key        TEXT PRIMARY KEY,
  kind       TEXT NOT NULL CHECK (kind IN ('program','list')),
  data       BLOB NOT NULL,
  size       INTEGER NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

func (d *DB) Load(ctx context.Context, key snapshot.Key) ([]byte, error) {
	var data []byte
	err := d.sql.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE key = ?", key.FileName()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", key.FileName(), snapshot.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (d *DB) Save(ctx context.Context, key snapshot.Key, data []byte) error {
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO snapshots(key, kind, data, size, updated_at) VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, size = excluded.size, updated_at = CURRENT_TIMESTAMP`,
		key.FileName(), key.Kind.String(), data, len(data))
	return err
}

func (d *DB) List(ctx context.Context) ([]Info, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT key, size, updated_at FROM snapshots ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			name      string
			size      int
			updatedAt string
		)
		if err := rows.Scan(&name, &size, &updatedAt); err != nil {
			return nil, err
		}
		key, err := snapshot.ParseKey(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Info{Key: key, Size: size, UpdatedAt: parseTimestamp(updatedAt)})
	}
	return out, rows.Err()
}

// parseTimestamp reads SQLite CURRENT_TIMESTAMP values.
// Try "2006-01-02 15:04:05" then RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
