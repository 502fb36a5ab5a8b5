package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/newscuss/internal/repository"
)

// PostgresBackend adapts the session record repository to Backend.
type PostgresBackend struct {
	pool    *pgxpool.Pool
	records *repository.SessionRecords
}

func NewPostgresBackend(pool *pgxpool.Pool, records *repository.SessionRecords) *PostgresBackend {
	return &PostgresBackend{pool: pool, records: records}
}

func (p *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return p.records.Get(ctx, key)
}

func (p *PostgresBackend) Put(ctx context.Context, key string, value []byte) error {
	return p.records.Put(ctx, key, value)
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	return p.records.Delete(ctx, key)
}

func (p *PostgresBackend) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return p.records.DeleteStale(ctx, maxAge)
}

func (p *PostgresBackend) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
