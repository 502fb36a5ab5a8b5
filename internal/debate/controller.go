// Package debate drives one debate session: article submission, topic
// generation, the streamed discussion itself, the background summary and
// the final feedback. State lives in memory behind a mutex and is mirrored
// to a storage.SessionStore after every change worth keeping.
package debate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/article"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/service"
	"github.com/set-night/newscuss/internal/storage"
)

// API is the non-streaming backend surface the controller depends on.
type API interface {
	SubmitURL(ctx context.Context, articleURL string) (*domain.ArticleAnalysis, error)
	GenerateTopic(ctx context.Context, sessionID, summary string, keywords []string) (*domain.GeneratedTopic, error)
	StartDiscussion(ctx context.Context, sessionID, topic string, position domain.Position, difficulty domain.Difficulty) (*domain.DiscussionStart, error)
	SendMessage(ctx context.Context, sessionID, message string) (string, error)
	GetSummary(ctx context.Context, sessionID string) (string, error)
	GetFeedback(ctx context.Context, sessionID string) (*domain.FeedbackReport, error)
	CheckSession(ctx context.Context, sessionID string) (map[string]any, error)
}

type Streamer interface {
	SendStream(ctx context.Context, sessionID, message string, h service.StreamHandler) (string, error)
}

type Controller struct {
	api      API
	stream   Streamer
	store    *storage.SessionStore
	readOnly bool
	now      func() time.Time
	newID    func() string

	mu          sync.Mutex
	state       domain.Session
	lastErr     string
	loading     int
	sending     bool
	summaryDone chan struct{}
	summaryErr  error

	// persistMu orders snapshot writes so a later snapshot is never
	// overwritten by an earlier one.
	persistMu sync.Mutex
}

type Option func(*Controller)

// WithReadOnly disables SendMessage. Everything else keeps working so a
// finished discussion can still be reviewed.
func WithReadOnly() Option {
	return func(c *Controller) { c.readOnly = true }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

func New(api API, stream Streamer, store *storage.SessionStore, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		stream: stream,
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		state:  domain.NewSession(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore loads the stored record into memory. The in-memory message
// window is the most recent page of the stored log. It reports whether a
// live record was found.
func (c *Controller) Restore(ctx context.Context) bool {
	rec := c.store.Load(ctx)
	if rec == nil || rec.SessionID == "" {
		return false
	}

	s := domain.NewSession()
	s.SessionID = rec.SessionID
	s.Keywords = append(s.Keywords, rec.Keywords...)
	s.ArticleSummary = rec.ArticleSummary
	s.Topic = rec.Topic
	s.TopicDescription = rec.TopicDescription
	s.UserPosition = rec.UserPosition
	s.AIPosition = rec.AIPosition
	if rec.Difficulty != "" {
		s.Difficulty = rec.Difficulty
	}
	s.Feedback = rec.Feedback

	start := max(0, len(rec.Messages)-config.MessagesPerPage)
	s.Messages = append(s.Messages, rec.Messages[start:]...)
	s.HasMoreMessages = start > 0

	switch {
	case rec.SummaryStatus == domain.SummaryCompleted && rec.CachedSummary != "":
		s.SummaryStatus = domain.SummaryCompleted
		s.SummaryProgress = config.SummaryProgressDone
		s.CachedSummary = rec.CachedSummary
	case rec.SummaryStatus == domain.SummaryFailed:
		s.SummaryStatus = domain.SummaryFailed
	}

	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	return true
}

func (c *Controller) Snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

func (c *Controller) IsReadOnly() bool { return c.readOnly }

func (c *Controller) RequireSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requireSessionLocked()
}

func (c *Controller) RequireTopic() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSessionLocked(); err != nil {
		return err
	}
	if c.state.Topic == "" {
		return domain.ErrNoTopic
	}
	return nil
}

func (c *Controller) RequireDiscussion() error {
	if err := c.RequireTopic(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Started() {
		return domain.ErrNoDiscussion
	}
	return nil
}

func (c *Controller) requireSessionLocked() error {
	if !c.state.Active() {
		return domain.ErrNoSession
	}
	return nil
}

// begin marks a foreground operation in flight and clears the last error.
func (c *Controller) begin() func() {
	c.mu.Lock()
	c.loading++
	c.lastErr = ""
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.loading--
		c.mu.Unlock()
	}
}

// reject records a local precondition failure.
func (c *Controller) reject(err error) error {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
	return err
}

// fail normalizes a backend failure, logs it, records the user-facing
// message and resets everything when the backend no longer knows the
// session.
func (c *Controller) fail(ctx context.Context, op string, err error) error {
	e := apierr.Normalize(err)
	apierr.Log(err, op)

	if e.Kind == apierr.KindSessionExpired {
		c.ResetSession(ctx)
	}

	c.mu.Lock()
	c.lastErr = apierr.FriendlyMessage(e)
	c.mu.Unlock()
	return e
}

func (c *Controller) timestamp() string {
	return c.now().Format("15:04")
}

func (c *Controller) SubmitURL(ctx context.Context, articleURL string) (*domain.ArticleAnalysis, error) {
	articleURL = strings.TrimSpace(articleURL)
	if err := article.ValidateURL(articleURL); err != nil {
		return nil, c.reject(err)
	}

	done := c.begin()
	defer done()

	res, err := c.api.SubmitURL(ctx, articleURL)
	if err != nil {
		return nil, c.fail(ctx, "submit url", err)
	}

	s := domain.NewSession()
	s.SessionID = res.SessionID
	s.Keywords = append(s.Keywords, res.Keywords...)
	s.ArticleSummary = res.Summary

	c.mu.Lock()
	c.state = s
	c.summaryErr = nil
	c.mu.Unlock()

	c.persist(ctx)
	return res, nil
}

func (c *Controller) GenerateTopic(ctx context.Context) (*domain.GeneratedTopic, error) {
	c.mu.Lock()
	if err := c.requireSessionLocked(); err != nil {
		c.mu.Unlock()
		return nil, c.reject(err)
	}
	sid, summary := c.state.SessionID, c.state.ArticleSummary
	keywords := append([]string(nil), c.state.Keywords...)
	c.mu.Unlock()

	done := c.begin()
	defer done()

	res, err := c.api.GenerateTopic(ctx, sid, summary, keywords)
	if err != nil {
		return nil, c.fail(ctx, "generate topic", err)
	}

	c.mu.Lock()
	if c.state.SessionID != sid {
		c.mu.Unlock()
		return res, nil
	}
	c.state.Topic = res.Topic
	c.state.TopicDescription = res.Description
	c.mu.Unlock()

	c.persist(ctx)
	return res, nil
}

// StartDiscussion asks the backend to open the debate. The message log is
// replaced by the AI's opening statement, and any summary or feedback from
// an earlier discussion is dropped.
func (c *Controller) StartDiscussion(ctx context.Context, position domain.Position, difficulty domain.Difficulty) (*domain.DiscussionStart, error) {
	if err := c.RequireTopic(); err != nil {
		return nil, c.reject(err)
	}
	if !position.Valid() {
		return nil, c.reject(domain.ErrInvalidPosition)
	}
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}
	if _, err := domain.ParseDifficulty(string(difficulty)); err != nil {
		return nil, c.reject(err)
	}

	c.mu.Lock()
	sid, topic := c.state.SessionID, c.state.Topic
	c.mu.Unlock()

	done := c.begin()
	defer done()

	res, err := c.api.StartDiscussion(ctx, sid, topic, position, difficulty)
	if err != nil {
		return nil, c.fail(ctx, "start discussion", err)
	}

	aiPosition := res.AIPosition
	if !aiPosition.Valid() || aiPosition == position {
		aiPosition = position.Opposite()
	}
	userPosition := position

	c.mu.Lock()
	if c.state.SessionID != sid {
		c.mu.Unlock()
		return res, nil
	}
	c.state.UserPosition = &userPosition
	c.state.AIPosition = &aiPosition
	c.state.Difficulty = difficulty
	c.state.Messages = []domain.Message{{
		ID:     c.newID(),
		Sender: domain.SenderAI,
		Text:   res.AIMessage,
		Time:   c.timestamp(),
	}}
	c.state.HasMoreMessages = false
	c.state.SummaryStatus = domain.SummaryPending
	c.state.SummaryProgress = 0
	c.state.CachedSummary = ""
	c.state.Feedback = nil
	c.summaryErr = nil
	c.mu.Unlock()

	c.persist(ctx)
	return res, nil
}

func (c *Controller) CheckSession(ctx context.Context) (map[string]any, error) {
	c.mu.Lock()
	if err := c.requireSessionLocked(); err != nil {
		c.mu.Unlock()
		return nil, c.reject(err)
	}
	sid := c.state.SessionID
	c.mu.Unlock()

	done := c.begin()
	defer done()

	res, err := c.api.CheckSession(ctx, sid)
	if err != nil {
		return nil, c.fail(ctx, "check session", err)
	}
	return res, nil
}

// GetFeedback returns the cached report unless refresh is set or nothing
// has been fetched yet.
func (c *Controller) GetFeedback(ctx context.Context, refresh bool) (*domain.FeedbackReport, error) {
	c.mu.Lock()
	if err := c.requireSessionLocked(); err != nil {
		c.mu.Unlock()
		return nil, c.reject(err)
	}
	if !refresh && c.state.Feedback != nil {
		f := *c.state.Feedback
		c.mu.Unlock()
		return &f, nil
	}
	sid := c.state.SessionID
	c.mu.Unlock()

	done := c.begin()
	defer done()

	report, err := c.api.GetFeedback(ctx, sid)
	if err != nil {
		return nil, c.fail(ctx, "get feedback", err)
	}

	c.mu.Lock()
	if c.state.SessionID == sid {
		f := *report
		c.state.Feedback = &f
	}
	c.mu.Unlock()

	c.persist(ctx)
	return report, nil
}

// ResetSession returns every field to its initial value and clears the
// stored record.
func (c *Controller) ResetSession(ctx context.Context) {
	c.mu.Lock()
	c.state = domain.NewSession()
	c.lastErr = ""
	c.summaryErr = nil
	c.mu.Unlock()

	c.persistMu.Lock()
	c.store.Clear(ctx)
	c.persistMu.Unlock()
}

// NeedsEndConfirmation reports whether ending now would throw away a
// discussion the user has barely taken part in.
func (c *Controller) NeedsEndConfirmation(ctx context.Context) bool {
	log := c.fullLog(ctx)
	sent := 0
	for _, m := range log {
		if m.Sender == domain.SenderUser {
			sent++
		}
	}
	return sent <= 1
}

// fullLog is the stored log merged with the in-memory window.
func (c *Controller) fullLog(ctx context.Context) []domain.Message {
	snap := c.Snapshot()
	return mergeLog(c.store.Load(ctx), snap.SessionID, snap.Messages)
}

// CheckExpiry clears in-memory state when the stored record has expired
// underneath an open session. A record that vanished before its expiry is
// written again instead. It reports whether the session is still live.
func (c *Controller) CheckExpiry(ctx context.Context) bool {
	c.mu.Lock()
	active := c.state.Active()
	c.mu.Unlock()
	if !active {
		return false
	}
	if !c.store.Enabled() || c.store.IsValid(ctx) {
		return true
	}
	if c.store.WithinDeadline() {
		slog.Warn("session record missing before its expiry, rewriting", "key", c.store.Key())
		c.persist(ctx)
		return true
	}
	c.mu.Lock()
	c.state = domain.NewSession()
	c.lastErr = apierr.FriendlyMessage(apierr.New("session expired", 401, apierr.Flags{}))
	c.mu.Unlock()
	return false
}

// RefreshExpiry slides the stored record's expiry forward while a session
// is open.
func (c *Controller) RefreshExpiry(ctx context.Context) {
	c.mu.Lock()
	active := c.state.Active()
	c.mu.Unlock()
	if !active {
		return
	}
	c.persistMu.Lock()
	c.store.TouchExpiry(ctx)
	c.persistMu.Unlock()
}

// StartExpiryRefresher calls RefreshExpiry every interval until ctx ends
// or the returned stop function is called.
func (c *Controller) StartExpiryRefresher(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = config.SessionRefreshInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RefreshExpiry(ctx)
			}
		}
	}()
	return cancel
}
