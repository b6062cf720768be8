// Package repo provides database repositories
package repo

import (
	"context"

	"nasa-explorer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepo persists load action outcomes. Response bodies and records are never stored.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

// NewHistoryRepo creates a new history repository
func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// Insert records one load action
func (r *HistoryRepo) Insert(ctx context.Context, e domain.LoadEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO load_history(resource, query, outcome, failure_kind, status, record_count, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.Resource), e.Query, e.Outcome, string(e.FailureKind), e.Status, e.RecordCount, e.LoadedAt)
	return err
}

// ListRecent lists the most recent load actions, newest first
func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.LoadEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource, query, outcome, failure_kind, status, record_count, loaded_at
		FROM load_history ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.LoadEntry{}
	for rows.Next() {
		var e domain.LoadEntry
		var resource, kind string
		if err := rows.Scan(&e.ID, &resource, &e.Query, &e.Outcome, &kind, &e.Status, &e.RecordCount, &e.LoadedAt); err != nil {
			return nil, err
		}
		e.Resource = domain.Resource(resource)
		e.FailureKind = domain.FailureKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the most recent load action for a resource, or nil
func (r *HistoryRepo) Latest(ctx context.Context, resource domain.Resource) (*domain.LoadEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, resource, query, outcome, failure_kind, status, record_count, loaded_at
		FROM load_history WHERE resource = $1 ORDER BY id DESC LIMIT 1`, string(resource))

	var e domain.LoadEntry
	var res, kind string
	err := row.Scan(&e.ID, &res, &e.Query, &e.Outcome, &kind, &e.Status, &e.RecordCount, &e.LoadedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Resource = domain.Resource(res)
	e.FailureKind = domain.FailureKind(kind)
	return &e, nil
}

// InitDB initializes database tables
func InitDB(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS load_history(
			id BIGSERIAL PRIMARY KEY,
			resource TEXT NOT NULL,
			query TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			failure_kind TEXT NOT NULL DEFAULT '',
			status INTEGER NOT NULL DEFAULT 0,
			record_count INTEGER NOT NULL DEFAULT 0,
			loaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS ix_load_history_resource
		 ON load_history(resource, loaded_at DESC)`,
	}

	for _, q := range queries {
		if _, err := pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
