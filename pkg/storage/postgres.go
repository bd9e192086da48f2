package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
)

// PGStore stores snapshots in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
  key        TEXT PRIMARY KEY,
  kind       TEXT NOT NULL CHECK (kind IN ('program','list')),
  data       BYTEA NOT NULL,
  size       INTEGER NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context, key snapshot.Key) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM snapshots WHERE key = $1", key.FileName()).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", key.FileName(), snapshot.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (s *PGStore) Save(ctx context.Context, key snapshot.Key, data []byte) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO snapshots(key, kind, data, size, updated_at) VALUES($1, $2, $3, $4, now())
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, size = EXCLUDED.size, updated_at = now()`,
		key.FileName(), key.Kind.String(), data, len(data))
	return err
}

func (s *PGStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.pool.Query(ctx, "SELECT key, size, updated_at FROM snapshots ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			name string
			info Info
		)
		if err := rows.Scan(&name, &info.Size, &info.UpdatedAt); err != nil {
			return nil, err
		}
		if info.Key, err = snapshot.ParseKey(name); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
