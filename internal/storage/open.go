package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/set-night/newscuss/internal/repository"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// OpenOptions select and locate a Backend.
type OpenOptions struct {
	Driver      string
	Path        string
	DatabaseURL string
	// Migrations holds the postgres schema at its root.
	Migrations fs.FS
}

// Sweeper is implemented by backends that can drop stale records in bulk.
type Sweeper interface {
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// OpenBackend builds the backend named by opts.Driver. The returned closer
// is never nil.
func OpenBackend(ctx context.Context, opts OpenOptions) (Backend, io.Closer, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryBackend(), nopCloser{}, nil
	case DriverFile, "":
		b, err := NewFileBackend(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return b, nopCloser{}, nil
	case DriverSQLite:
		if err := os.MkdirAll(opts.Path, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create storage dir: %w", err)
		}
		b, err := NewSQLiteBackend(filepath.Join(opts.Path, "sessions.db"))
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("postgres storage needs a database url")
		}
		pool, records, err := repository.Open(ctx, opts.DatabaseURL, opts.Migrations)
		if err != nil {
			return nil, nil, err
		}
		b := NewPostgresBackend(pool, records)
		return b, b, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
