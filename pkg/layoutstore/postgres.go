package layoutstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgConn is the subset of *pgxpool.Pool the store uses
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PGStore keeps snapshots in a JSONB column, one row per graph
type PGStore struct {
	pool pgConn
}

// NewPGStore connects to databaseURL and creates the table if needed
func NewPGStore(ctx context.Context, databaseURL string, maxConns int32) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return newPGStore(ctx, pool)
}

func newPGStore(ctx context.Context, pool pgConn) (*PGStore, error) {
	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS layout_snapshots (
	graph_id TEXT PRIMARY KEY,
	layout TEXT NOT NULL DEFAULT '',
	saved_at TIMESTAMPTZ NOT NULL,
	snapshot JSONB NOT NULL
);
`

func (s *PGStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, pgSchema)
	return err
}

func (s *PGStore) Backend() string { return BackendPostgres }

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	query := `
		INSERT INTO layout_snapshots (graph_id, layout, saved_at, snapshot)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (graph_id) DO UPDATE
		SET layout = EXCLUDED.layout, saved_at = EXCLUDED.saved_at, snapshot = EXCLUDED.snapshot
	`
	if _, err := s.pool.Exec(ctx, query, snap.GraphID, snap.Layout, snap.SavedAt, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context, graphID string) (*Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM layout_snapshots WHERE graph_id = $1`, graphID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
