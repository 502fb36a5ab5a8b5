// Package app wires the backend clients, the session storage backend and
// the article previewer shared by the bot and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"

	newscuss "github.com/set-night/newscuss"
	"github.com/set-night/newscuss/internal/article"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/service"
	"github.com/set-night/newscuss/internal/storage"
)

type App struct {
	Cfg       *config.Config
	API       *service.APIClient
	Stream    *service.StreamClient
	Backend   storage.Backend
	Previews  *article.PreviewCache
	Previewer *article.Previewer

	closer io.Closer
}

// New builds every shared component from cfg. Close releases the storage
// backend.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	migrations, err := fs.Sub(newscuss.MigrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	backend, closer, err := storage.OpenBackend(ctx, storage.OpenOptions{
		Driver:      cfg.StorageDriver,
		Path:        cfg.StoragePath,
		DatabaseURL: cfg.DatabaseURL,
		Migrations:  migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	slog.Debug("session storage ready", "driver", cfg.StorageDriver, "path", cfg.StoragePath)

	previews := article.NewPreviewCache(config.PreviewCacheTTL)
	return &App{
		Cfg:       cfg,
		API:       service.NewAPIClient(cfg.APIBaseURL),
		Stream:    service.NewStreamClient(cfg.APIBaseURL),
		Backend:   backend,
		Previews:  previews,
		Previewer: article.NewPreviewer(previews),
		closer:    closer,
	}, nil
}

// Controller returns a controller whose session is stored under key.
func (a *App) Controller(key string, opts ...debate.Option) *debate.Controller {
	store := storage.NewSessionStore(a.Backend, key)
	return debate.New(a.API, a.Stream, store, opts...)
}

// ChatKey is the storage key of one Telegram chat's session.
func (a *App) ChatKey(chatID int64) string {
	return a.Cfg.StorageKey + ":" + strconv.FormatInt(chatID, 10)
}

// Sweep drops stored records untouched for longer than two expiry periods
// when the backend supports it.
func (a *App) Sweep(ctx context.Context) {
	sw, ok := a.Backend.(storage.Sweeper)
	if !ok {
		return
	}
	n, err := sw.DeleteStale(ctx, 2*config.SessionExpiry)
	if err != nil {
		slog.Error("sweep stale sessions", "error", err)
		return
	}
	if n > 0 {
		slog.Info("stale sessions removed", "count", n)
	}
}

func (a *App) Close() error {
	return a.closer.Close()
}
