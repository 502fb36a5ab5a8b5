package debate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/service"
	"github.com/set-night/newscuss/internal/storage"
)

type fakeAPI struct {
	submitURL       func(ctx context.Context, u string) (*domain.ArticleAnalysis, error)
	generateTopic   func(ctx context.Context, sid, summary string, kw []string) (*domain.GeneratedTopic, error)
	startDiscussion func(ctx context.Context, sid, topic string, p domain.Position, d domain.Difficulty) (*domain.DiscussionStart, error)
	sendMessage     func(ctx context.Context, sid, msg string) (string, error)
	getSummary      func(ctx context.Context, sid string) (string, error)
	getFeedback     func(ctx context.Context, sid string) (*domain.FeedbackReport, error)

	summaryCalls  atomic.Int32
	feedbackCalls atomic.Int32
	sendCalls     atomic.Int32
}

func (f *fakeAPI) SubmitURL(ctx context.Context, u string) (*domain.ArticleAnalysis, error) {
	return f.submitURL(ctx, u)
}

func (f *fakeAPI) GenerateTopic(ctx context.Context, sid, summary string, kw []string) (*domain.GeneratedTopic, error) {
	return f.generateTopic(ctx, sid, summary, kw)
}

func (f *fakeAPI) StartDiscussion(ctx context.Context, sid, topic string, p domain.Position, d domain.Difficulty) (*domain.DiscussionStart, error) {
	return f.startDiscussion(ctx, sid, topic, p, d)
}

func (f *fakeAPI) SendMessage(ctx context.Context, sid, msg string) (string, error) {
	f.sendCalls.Add(1)
	return f.sendMessage(ctx, sid, msg)
}

func (f *fakeAPI) GetSummary(ctx context.Context, sid string) (string, error) {
	f.summaryCalls.Add(1)
	return f.getSummary(ctx, sid)
}

func (f *fakeAPI) GetFeedback(ctx context.Context, sid string) (*domain.FeedbackReport, error) {
	f.feedbackCalls.Add(1)
	return f.getFeedback(ctx, sid)
}

func (f *fakeAPI) CheckSession(_ context.Context, sid string) (map[string]any, error) {
	return map[string]any{"sessionId": sid, "exists": true}, nil
}

// newFakeAPI answers like a healthy backend.
func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		submitURL: func(_ context.Context, _ string) (*domain.ArticleAnalysis, error) {
			return &domain.ArticleAnalysis{
				SessionID: "s1",
				Keywords:  []string{"tariffs", "trade", "economy"},
				Summary:   "Tariffs are rising across major economies.",
			}, nil
		},
		generateTopic: func(_ context.Context, _, _ string, _ []string) (*domain.GeneratedTopic, error) {
			return &domain.GeneratedTopic{Topic: "Should tariffs rise?", Description: "Trade policy debate."}, nil
		},
		startDiscussion: func(_ context.Context, _, _ string, p domain.Position, _ domain.Difficulty) (*domain.DiscussionStart, error) {
			return &domain.DiscussionStart{AIPosition: p.Opposite(), AIMessage: "Tariffs protect local industry."}, nil
		},
		sendMessage: func(_ context.Context, _, _ string) (string, error) {
			return "fallback reply", nil
		},
		getSummary: func(_ context.Context, _ string) (string, error) {
			return "Both sides debated tariffs and their effect on consumer prices.", nil
		},
		getFeedback: func(_ context.Context, _ string) (*domain.FeedbackReport, error) {
			return &domain.FeedbackReport{OverallScore: 80, OverallComment: "Good."}, nil
		},
	}
}

type fakeStream struct {
	chunks []string
	final  string
	err    error
	calls  atomic.Int32
}

func (f *fakeStream) SendStream(_ context.Context, _, _ string, h service.StreamHandler) (string, error) {
	f.calls.Add(1)
	acc := ""
	for _, c := range f.chunks {
		acc += c
		if h.OnChunk != nil {
			h.OnChunk(c, acc)
		}
	}
	if f.err != nil {
		if h.OnError != nil {
			h.OnError(f.err)
		}
		return "", f.err
	}
	final := acc
	if f.final != "" {
		final = f.final
	}
	if h.OnComplete != nil {
		h.OnComplete(final)
	}
	return final, nil
}

type sequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequentialIDs) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("m%d", s.n)
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 14, 5, 0, 0, time.UTC)
}

// manualClock is a store clock the test moves by hand.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// flakyBackend fails every Put while failing is set.
type flakyBackend struct {
	*storage.MemoryBackend
	failing atomic.Bool
}

func (f *flakyBackend) Put(ctx context.Context, key string, value []byte) error {
	if f.failing.Load() {
		return errors.New("write refused")
	}
	return f.MemoryBackend.Put(ctx, key, value)
}

type harness struct {
	api     *fakeAPI
	stream  *fakeStream
	backend *storage.MemoryBackend
	store   *storage.SessionStore
	ctrl    *Controller
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		api:     newFakeAPI(),
		stream:  &fakeStream{},
		backend: storage.NewMemoryBackend(),
	}
	h.store = storage.NewSessionStore(h.backend, "newscuss_session")
	ids := &sequentialIDs{}
	opts = append([]Option{WithClock(fixedClock), WithIDGenerator(ids.next)}, opts...)
	h.ctrl = New(h.api, h.stream, h.store, opts...)
	return h
}

// started brings the harness to an open discussion.
func (h *harness) started(ctx context.Context) error {
	if _, err := h.ctrl.SubmitURL(ctx, "https://news.example/a"); err != nil {
		return err
	}
	if _, err := h.ctrl.GenerateTopic(ctx); err != nil {
		return err
	}
	_, err := h.ctrl.StartDiscussion(ctx, domain.PositionFor, domain.DifficultyMedium)
	return err
}
