// Package storage persists the debate session so it survives restarts.
// Records expire 30 minutes after their last write; reads never return an
// expired record and remove it on sight.
package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
)

// SessionStore reads and writes one session record under a fixed key.
// Failures are logged and swallowed: losing persistence must never break
// the debate itself. A store without a backend does nothing.
type SessionStore struct {
	backend Backend
	key     string
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	deadline time.Time // last expiry stamped or read; zero after Clear
}

type Option func(*SessionStore)

func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) { s.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *SessionStore) { s.ttl = ttl }
}

func NewSessionStore(backend Backend, key string, opts ...Option) *SessionStore {
	s := &SessionStore{
		backend: backend,
		key:     key,
		ttl:     config.SessionExpiry,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) Key() string { return s.key }

// Enabled reports whether the store has somewhere to write.
func (s *SessionStore) Enabled() bool {
	return s != nil && s.backend != nil
}

// Save writes rec, stamping a fresh expiry. rec itself is not modified.
func (s *SessionStore) Save(ctx context.Context, rec *domain.PersistedSession) {
	if !s.Enabled() || rec == nil {
		return
	}
	out := *rec
	deadline := s.now().Add(s.ttl)
	out.ExpiresAt = deadline.UnixMilli()
	s.setDeadline(deadline)

	data, err := json.Marshal(out)
	if err != nil {
		slog.Error("encode session record", "key", s.key, "error", err)
		return
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		slog.Error("save session record", "key", s.key, "error", err)
	}
}

// Load returns the stored record, or nil when there is none, it cannot be
// decoded, or it has expired. Undecodable and expired records are removed.
func (s *SessionStore) Load(ctx context.Context) *domain.PersistedSession {
	if !s.Enabled() {
		return nil
	}
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		slog.Error("load session record", "key", s.key, "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	var rec domain.PersistedSession
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("discard unreadable session record", "key", s.key, "error", err)
		s.Clear(ctx)
		return nil
	}
	if rec.ExpiresAt <= s.now().UnixMilli() {
		slog.Info("session record expired", "key", s.key)
		s.Clear(ctx)
		return nil
	}
	s.setDeadline(time.UnixMilli(rec.ExpiresAt))
	return &rec
}

func (s *SessionStore) Clear(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	s.setDeadline(time.Time{})
	if err := s.backend.Delete(ctx, s.key); err != nil {
		slog.Error("clear session record", "key", s.key, "error", err)
	}
}

// Update applies fn to the stored record and saves it. Without a live
// record it does nothing, so a late write can never resurrect a cleared
// session.
func (s *SessionStore) Update(ctx context.Context, fn func(rec *domain.PersistedSession)) {
	rec := s.Load(ctx)
	if rec == nil {
		return
	}
	fn(rec)
	s.Save(ctx, rec)
}

// TouchExpiry re-saves the live record so its expiry slides forward.
func (s *SessionStore) TouchExpiry(ctx context.Context) {
	if rec := s.Load(ctx); rec != nil {
		s.Save(ctx, rec)
	}
}

func (s *SessionStore) IsValid(ctx context.Context) bool {
	return s.Load(ctx) != nil
}

// WithinDeadline reports whether the last expiry this store stamped or read
// still lies ahead. A missing record is then a lost write rather than an
// expired session.
func (s *SessionStore) WithinDeadline() bool {
	if !s.Enabled() {
		return false
	}
	s.mu.Lock()
	deadline := s.deadline
	s.mu.Unlock()
	return !deadline.IsZero() && s.now().Before(deadline)
}

func (s *SessionStore) setDeadline(t time.Time) {
	s.mu.Lock()
	s.deadline = t
	s.mu.Unlock()
}
