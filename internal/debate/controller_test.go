package debate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/service"
	"github.com/set-night/newscuss/internal/storage"
)

func TestController_TariffsScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	res, err := h.ctrl.SubmitURL(ctx, "https://news.example/a")
	require.NoError(t, err)
	assert.Equal(t, "s1", res.SessionID)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, []string{"tariffs", "trade", "economy"}, snap.Keywords)

	_, err = h.ctrl.GenerateTopic(ctx)
	require.NoError(t, err)

	start, err := h.ctrl.StartDiscussion(ctx, domain.PositionFor, domain.DifficultyMedium)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionAgainst, start.AIPosition)

	snap = h.ctrl.Snapshot()
	require.NotNil(t, snap.AIPosition)
	assert.Equal(t, domain.PositionAgainst, *snap.AIPosition)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, domain.SenderAI, snap.Messages[0].Sender)
	assert.Equal(t, "14:05", snap.Messages[0].Time)

	h.stream.chunks = []string{"I ", "disagree ", "because..."}
	var updates []domain.Message
	final, err := h.ctrl.SendMessage(ctx, "I think tariffs hurt consumers", func(m domain.Message) {
		updates = append(updates, m)
	})
	require.NoError(t, err)
	assert.Equal(t, "I disagree because...", final.Text)
	assert.False(t, final.IsStreaming)

	snap = h.ctrl.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, domain.SenderUser, snap.Messages[1].Sender)
	assert.Equal(t, "I think tariffs hurt consumers", snap.Messages[1].Text)
	assert.Equal(t, "I disagree because...", snap.Messages[2].Text)

	require.Len(t, updates, 5)
	assert.True(t, updates[0].IsStreaming)
	assert.Equal(t, "", updates[0].Text)
	assert.Equal(t, "I disagree ", updates[2].Text)
	assert.False(t, updates[4].IsStreaming)
	for _, u := range updates {
		assert.Equal(t, final.ID, u.ID)
	}

	rec := h.store.Load(ctx)
	require.NotNil(t, rec)
	assert.Len(t, rec.Messages, 3)
	assert.Equal(t, "Should tariffs rise?", rec.Topic)
	assert.Zero(t, h.api.sendCalls.Load())
}

func TestController_FinalMessageTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))

	h.stream.chunks = []string{"draft ", "text"}
	h.stream.final = "Polished reply."
	final, err := h.ctrl.SendMessage(ctx, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Polished reply.", final.Text)
}

func TestController_StreamFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))

	h.stream.chunks = []string{"partial"}
	h.stream.err = apierr.New("Streaming connection error: reset", 0, apierr.Flags{})

	final, err := h.ctrl.SendMessage(ctx, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback reply", final.Text)
	assert.Equal(t, int32(1), h.api.sendCalls.Load())
	assert.Empty(t, h.ctrl.LastError())

	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Messages, 3)
	ai := 0
	for _, m := range snap.Messages {
		if m.Sender == domain.SenderAI {
			ai++
			assert.False(t, m.IsStreaming)
		}
	}
	assert.Equal(t, 2, ai)
	assert.Equal(t, final.ID, snap.Messages[2].ID)
}

func TestController_DoubleFailureDropsPlaceholder(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))

	h.stream.chunks = []string{"half an ans"}
	h.stream.err = apierr.New("Streaming connection error: reset", 0, apierr.Flags{})
	h.api.sendMessage = func(context.Context, string, string) (string, error) {
		return "", apierr.FromResponse(500, "Internal Server Error", map[string]any{"error": "llm down"})
	}

	_, err := h.ctrl.SendMessage(ctx, "hello", nil)
	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.KindServer, e.Kind)
	assert.NotEmpty(t, h.ctrl.LastError())
	assert.False(t, h.ctrl.IsLoading())

	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, domain.SenderAI, snap.Messages[0].Sender)
	assert.Equal(t, domain.SenderUser, snap.Messages[1].Sender)

	rec := h.store.Load(ctx)
	require.NotNil(t, rec)
	assert.Len(t, rec.Messages, 2)
}

func TestController_SessionExpiryResets(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	_, err := h.ctrl.SubmitURL(ctx, "https://news.example/a")
	require.NoError(t, err)
	require.True(t, h.store.IsValid(ctx))

	h.api.generateTopic = func(context.Context, string, string, []string) (*domain.GeneratedTopic, error) {
		return nil, apierr.FromResponse(401, "Unauthorized", map[string]any{"error": "session not found"})
	}
	_, err = h.ctrl.GenerateTopic(ctx)
	assert.True(t, apierr.IsSessionExpiredError(err))

	assert.False(t, h.ctrl.Snapshot().Active())
	assert.False(t, h.store.IsValid(ctx))
	assert.NotEmpty(t, h.ctrl.LastError())
}

func TestController_Guards(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	_, err := h.ctrl.GenerateTopic(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSession)
	assert.Equal(t, domain.ErrNoSession.Error(), h.ctrl.LastError())

	_, err = h.ctrl.SendMessage(ctx, "hi", nil)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = h.ctrl.SubmitURL(ctx, "news.example/a")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)

	_, err = h.ctrl.SubmitURL(ctx, "https://news.example/a")
	require.NoError(t, err)
	assert.NoError(t, h.ctrl.RequireSession())
	assert.ErrorIs(t, h.ctrl.RequireTopic(), domain.ErrNoTopic)

	_, err = h.ctrl.StartDiscussion(ctx, domain.PositionFor, domain.DifficultyEasy)
	assert.ErrorIs(t, err, domain.ErrNoTopic)

	_, err = h.ctrl.GenerateTopic(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, h.ctrl.RequireDiscussion(), domain.ErrNoDiscussion)

	_, err = h.ctrl.StartDiscussion(ctx, domain.Position("maybe"), domain.DifficultyEasy)
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
	_, err = h.ctrl.StartDiscussion(ctx, domain.PositionAgainst, domain.Difficulty("brutal"))
	assert.ErrorIs(t, err, domain.ErrInvalidDifficulty)

	_, err = h.ctrl.SendMessage(ctx, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestController_ReadOnlyNeverSends(t *testing.T) {
	ctx := context.Background()
	h := newHarness(WithReadOnly())
	require.NoError(t, h.started(ctx))

	_, err := h.ctrl.SendMessage(ctx, "hello", nil)
	assert.ErrorIs(t, err, domain.ErrReadOnly)
	assert.Zero(t, h.stream.calls.Load())
	assert.Zero(t, h.api.sendCalls.Load())
	assert.Len(t, h.ctrl.Snapshot().Messages, 1)
}

type blockingStream struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStream) SendStream(_ context.Context, _, _ string, h service.StreamHandler) (string, error) {
	close(b.entered)
	<-b.release
	return "done", nil
}

func TestController_OneSendInFlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))

	bs := &blockingStream{entered: make(chan struct{}), release: make(chan struct{})}
	h.ctrl.stream = bs

	errCh := make(chan error, 1)
	go func() {
		_, err := h.ctrl.SendMessage(ctx, "first", nil)
		errCh <- err
	}()
	<-bs.entered

	assert.True(t, h.ctrl.IsLoading())
	_, err := h.ctrl.SendMessage(ctx, "second", nil)
	assert.ErrorIs(t, err, domain.ErrSendInFlight)

	close(bs.release)
	require.NoError(t, <-errCh)
	assert.False(t, h.ctrl.IsLoading())
	assert.Len(t, h.ctrl.Snapshot().Messages, 3)
}

func TestController_Pagination(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	rec := &domain.PersistedSession{SessionID: "s1", Topic: "Should tariffs rise?"}
	for i := 1; i <= 12; i++ {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderAI
		}
		rec.Messages = append(rec.Messages, domain.Message{ID: fmt.Sprintf("old%d", i), Sender: sender, Text: fmt.Sprint(i)})
	}
	h.store.Save(ctx, rec)

	require.True(t, h.ctrl.Restore(ctx))
	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Messages, 10)
	assert.True(t, snap.HasMoreMessages)
	assert.Equal(t, "old3", snap.Messages[0].ID)

	added, err := h.ctrl.LoadMoreMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	snap = h.ctrl.Snapshot()
	require.Len(t, snap.Messages, 12)
	assert.False(t, snap.HasMoreMessages)
	assert.Equal(t, "old1", snap.Messages[0].ID)

	added, err = h.ctrl.LoadMoreMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestController_PersistKeepsOlderHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	rec := &domain.PersistedSession{SessionID: "s1", Topic: "T"}
	for i := 1; i <= 12; i++ {
		rec.Messages = append(rec.Messages, domain.Message{ID: fmt.Sprintf("old%d", i), Sender: domain.SenderAI, Text: "x"})
	}
	h.store.Save(ctx, rec)
	require.True(t, h.ctrl.Restore(ctx))

	h.stream.chunks = []string{"reply"}
	_, err := h.ctrl.SendMessage(ctx, "hello", nil)
	require.NoError(t, err)

	stored := h.store.Load(ctx)
	require.NotNil(t, stored)
	require.Len(t, stored.Messages, 14)
	assert.Equal(t, "old1", stored.Messages[0].ID)
	assert.Equal(t, "reply", stored.Messages[13].Text)
	assert.Len(t, h.ctrl.Snapshot().Messages, 12)
}

func TestController_ExpiryRefresherKeepsIdleHistory(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{t: fixedClock()}
	h := newHarness()
	store := storage.NewSessionStore(h.backend, "newscuss_session", storage.WithClock(clock.now))
	ctrl := New(h.api, h.stream, store, WithClock(fixedClock))

	rec := &domain.PersistedSession{SessionID: "s1", Topic: "T"}
	for i := 1; i <= 13; i++ {
		rec.Messages = append(rec.Messages, domain.Message{ID: fmt.Sprintf("old%d", i), Sender: domain.SenderAI, Text: "x"})
	}
	store.Save(ctx, rec)
	require.True(t, ctrl.Restore(ctx))
	require.Len(t, ctrl.Snapshot().Messages, 10)

	stop := ctrl.StartExpiryRefresher(ctx, 5*time.Millisecond)
	defer stop()

	clock.advance(20 * time.Minute)
	require.Eventually(t, func() bool {
		stored := store.Load(ctx)
		return stored != nil && stored.ExpiresAt == clock.now().Add(30*time.Minute).UnixMilli()
	}, time.Second, 5*time.Millisecond)

	clock.advance(20 * time.Minute)
	h.stream.chunks = []string{"still here"}
	_, err := ctrl.SendMessage(ctx, "back after a break", nil)
	require.NoError(t, err)

	stored := store.Load(ctx)
	require.NotNil(t, stored)
	require.Len(t, stored.Messages, 15)
	assert.Equal(t, "old1", stored.Messages[0].ID)
	assert.Equal(t, "still here", stored.Messages[14].Text)
}

func TestController_LostWriteIsNotExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{t: fixedClock()}
	h := newHarness()
	backend := &flakyBackend{MemoryBackend: storage.NewMemoryBackend()}
	store := storage.NewSessionStore(backend, "newscuss_session", storage.WithClock(clock.now))
	ctrl := New(h.api, h.stream, store, WithClock(fixedClock))

	backend.failing.Store(true)
	_, err := ctrl.SubmitURL(ctx, "https://news.example/a")
	require.NoError(t, err)
	require.False(t, store.IsValid(ctx))

	backend.failing.Store(false)
	assert.True(t, ctrl.CheckExpiry(ctx))
	assert.Equal(t, "s1", ctrl.Snapshot().SessionID)
	require.True(t, store.IsValid(ctx), "record is written again")

	clock.advance(31 * time.Minute)
	assert.False(t, ctrl.CheckExpiry(ctx))
	assert.False(t, ctrl.Snapshot().Active())
}

func TestController_NeedsEndConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))
	h.stream.chunks = []string{"ok"}

	assert.True(t, h.ctrl.NeedsEndConfirmation(ctx))
	_, err := h.ctrl.SendMessage(ctx, "one", nil)
	require.NoError(t, err)
	assert.True(t, h.ctrl.NeedsEndConfirmation(ctx))
	_, err = h.ctrl.SendMessage(ctx, "two", nil)
	require.NoError(t, err)
	assert.False(t, h.ctrl.NeedsEndConfirmation(ctx))
}

func TestController_FeedbackFetchedOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))

	first, err := h.ctrl.GetFeedback(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 80, first.OverallScore)

	_, err = h.ctrl.GetFeedback(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.api.feedbackCalls.Load())

	_, err = h.ctrl.GetFeedback(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), h.api.feedbackCalls.Load())

	rec := h.store.Load(ctx)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Feedback)
	assert.Equal(t, "Good.", rec.Feedback.OverallComment)
}

func TestController_ResetClearsEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))

	h.ctrl.ResetSession(ctx)
	snap := h.ctrl.Snapshot()
	assert.False(t, snap.Active())
	assert.Empty(t, snap.Messages)
	assert.Equal(t, domain.DifficultyMedium, snap.Difficulty)
	assert.Equal(t, domain.SummaryPending, snap.SummaryStatus)
	assert.Nil(t, h.store.Load(ctx))
}

func TestController_RestoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))

	other := New(h.api, h.stream, h.store)
	require.True(t, other.Restore(ctx))
	snap := other.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, "Should tariffs rise?", snap.Topic)
	require.NotNil(t, snap.UserPosition)
	assert.Equal(t, domain.PositionFor, *snap.UserPosition)
	assert.Len(t, snap.Messages, 1)
}

func TestController_CheckSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	_, err := h.ctrl.CheckSession(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	require.NoError(t, h.started(ctx))
	got, err := h.ctrl.CheckSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", got["sessionId"])
}

func TestController_ConcurrentSendsAreSerialised(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.started(ctx))
	h.stream.chunks = []string{"ok"}

	var wg sync.WaitGroup
	var ok, busy atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.ctrl.SendMessage(ctx, "hi", nil)
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, domain.ErrSendInFlight):
				busy.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), ok.Load()+busy.Load())
	assert.Len(t, h.ctrl.Snapshot().Messages, 1+2*int(ok.Load()))
}
