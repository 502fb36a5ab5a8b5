package debate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/storage"
)

func TestRegistry_RestoresAndRefreshes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	backend := storage.NewMemoryBackend()
	api := newFakeAPI()
	stream := &fakeStream{}
	reg := NewRegistry(func(chatID int64) *Controller {
		store := storage.NewSessionStore(backend, fmt.Sprintf("newscuss_session:%d", chatID), storage.WithClock(clock))
		return New(api, stream, store)
	})

	first := reg.Get(ctx, 1)
	_, err := first.SubmitURL(ctx, "https://news.example/a")
	require.NoError(t, err)
	assert.Same(t, first, reg.Get(ctx, 1))

	idle := reg.Get(ctx, 2)
	assert.False(t, idle.Snapshot().Active())
	assert.Equal(t, 2, reg.Len())

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, reg.RefreshAll(ctx))
	assert.Equal(t, 1, reg.Len())

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, reg.RefreshAll(ctx))

	reg.Forget(1)
	restored := reg.Get(ctx, 1)
	assert.NotSame(t, first, restored)
	assert.Equal(t, "s1", restored.Snapshot().SessionID)

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 0, reg.RefreshAll(ctx))
	assert.Equal(t, 0, reg.Len())
	assert.False(t, restored.Snapshot().Active())
}

type slowBackend struct {
	*storage.MemoryBackend
	delay time.Duration
}

func (s *slowBackend) Get(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(s.delay)
	return s.MemoryBackend.Get(ctx, key)
}

func TestRegistry_ConcurrentGetSeesRestoredState(t *testing.T) {
	ctx := context.Background()
	backend := &slowBackend{MemoryBackend: storage.NewMemoryBackend(), delay: 20 * time.Millisecond}
	seed := storage.NewSessionStore(backend, "newscuss_session:7")
	seed.Save(ctx, &domain.PersistedSession{SessionID: "restored", Topic: "T"})

	var wg sync.WaitGroup
	reg := NewRegistry(func(chatID int64) *Controller {
		store := storage.NewSessionStore(backend, fmt.Sprintf("newscuss_session:%d", chatID))
		return New(newFakeAPI(), &fakeStream{}, store)
	})

	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = reg.Get(ctx, 7).Snapshot().SessionID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "restored", id)
	}
	assert.Equal(t, 1, reg.Len())
}
