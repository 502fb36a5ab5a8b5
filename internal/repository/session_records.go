package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRecords stores one opaque JSON document per storage key.
type SessionRecords struct {
	pool *pgxpool.Pool
}

func NewSessionRecords(pool *pgxpool.Pool) *SessionRecords {
	return &SessionRecords{pool: pool}
}

// Get returns nil when no record exists for key.
func (r *SessionRecords) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM session_records WHERE key = $1`, key,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session record: %w", err)
	}
	return payload, nil
}

func (r *SessionRecords) Put(ctx context.Context, key string, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_records (key, payload, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		key, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert session record: %w", err)
	}
	return nil
}

func (r *SessionRecords) Delete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM session_records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	return nil
}

// DeleteStale removes records untouched for longer than maxAge. Expired
// records are otherwise only purged when read.
func (r *SessionRecords) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM session_records WHERE updated_at < $1`, time.Now().Add(-maxAge),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale session records: %w", err)
	}
	return tag.RowsAffected(), nil
}
