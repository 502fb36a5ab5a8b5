package debate

import (
	"context"
	"strings"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/service"
)

// SendMessage appends the user's turn plus an empty streaming AI
// placeholder, then fills the placeholder from the stream. onUpdate, when
// set, sees every placeholder revision. If streaming fails the reply is
// fetched once more without streaming; if that fails too the placeholder is
// dropped and the error returned.
func (c *Controller) SendMessage(ctx context.Context, text string, onUpdate func(domain.Message)) (domain.Message, error) {
	if c.readOnly {
		return domain.Message{}, c.reject(domain.ErrReadOnly)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, c.reject(domain.ErrEmptyMessage)
	}

	c.mu.Lock()
	if err := c.requireSessionLocked(); err != nil {
		c.mu.Unlock()
		return domain.Message{}, c.reject(err)
	}
	if c.sending {
		c.mu.Unlock()
		return domain.Message{}, c.reject(domain.ErrSendInFlight)
	}
	c.sending = true
	c.loading++
	c.lastErr = ""

	sid := c.state.SessionID
	ts := c.timestamp()
	placeholder := domain.Message{ID: c.newID(), Sender: domain.SenderAI, Time: ts, IsStreaming: true}
	c.state.Messages = append(c.state.Messages,
		domain.Message{ID: c.newID(), Sender: domain.SenderUser, Text: text, Time: ts},
		placeholder,
	)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sending = false
		c.loading--
		c.mu.Unlock()
	}()

	notify := func(m domain.Message, ok bool) {
		if ok && onUpdate != nil {
			onUpdate(m)
		}
	}
	notify(placeholder, true)

	reply, err := c.stream.SendStream(ctx, sid, text, service.StreamHandler{
		OnChunk: func(_, accumulated string) {
			notify(c.patchMessage(placeholder.ID, accumulated, true))
		},
	})
	if err != nil {
		apierr.Log(err, "send message stream")

		reply, err = c.api.SendMessage(ctx, sid, text)
		if err != nil {
			c.removeMessage(placeholder.ID)
			c.persist(ctx)
			return domain.Message{}, c.fail(ctx, "send message", err)
		}
	}

	final, ok := c.patchMessage(placeholder.ID, reply, false)
	if !ok {
		return domain.Message{}, c.reject(domain.ErrNoSession)
	}
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()

	notify(final, true)
	c.persist(ctx)
	return final, nil
}

// patchMessage rewrites a message in place by ID. It reports false when the
// message is gone, for instance after a reset in the middle of a stream.
func (c *Controller) patchMessage(id, text string, streaming bool) (domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Messages {
		if c.state.Messages[i].ID == id {
			c.state.Messages[i].Text = text
			c.state.Messages[i].IsStreaming = streaming
			return c.state.Messages[i], true
		}
	}
	return domain.Message{}, false
}

func (c *Controller) removeMessage(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Messages {
		if c.state.Messages[i].ID == id {
			c.state.Messages = append(c.state.Messages[:i], c.state.Messages[i+1:]...)
			return
		}
	}
}

// LoadMoreMessages grows the in-memory window backward by one page of the
// stored log and returns how many messages were added.
func (c *Controller) LoadMoreMessages(ctx context.Context) (int, error) {
	c.mu.Lock()
	if err := c.requireSessionLocked(); err != nil {
		c.mu.Unlock()
		return 0, c.reject(err)
	}
	if len(c.state.Messages) == 0 {
		c.state.HasMoreMessages = false
		c.mu.Unlock()
		return 0, nil
	}
	sid := c.state.SessionID
	oldest := c.state.Messages[0].ID
	c.mu.Unlock()

	rec := c.store.Load(ctx)
	end := -1
	if rec != nil && rec.SessionID == sid {
		end = indexOf(rec.Messages, oldest)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.SessionID != sid || len(c.state.Messages) == 0 || c.state.Messages[0].ID != oldest {
		return 0, nil
	}
	if end <= 0 {
		c.state.HasMoreMessages = false
		return 0, nil
	}

	start := max(0, end-config.MessagesPerPage)
	older := append([]domain.Message(nil), rec.Messages[start:end]...)
	c.state.Messages = append(older, c.state.Messages...)
	c.state.HasMoreMessages = start > 0
	return len(older), nil
}

func indexOf(log []domain.Message, id string) int {
	for i, m := range log {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// mergeLog rebuilds the full log: everything stored before the window's
// oldest message, followed by the window itself. Streaming placeholders are
// never stored.
func mergeLog(rec *domain.PersistedSession, sessionID string, window []domain.Message) []domain.Message {
	var out []domain.Message
	if rec != nil && rec.SessionID == sessionID && len(window) > 0 {
		if i := indexOf(rec.Messages, window[0].ID); i > 0 {
			out = append(out, rec.Messages[:i]...)
		}
	}
	for _, m := range window {
		if !m.IsStreaming {
			out = append(out, m)
		}
	}
	return out
}

// persist writes the current state, keeping the part of the stored log that
// lies outside the in-memory window.
func (c *Controller) persist(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	snap := c.Snapshot()
	if !snap.Active() {
		return
	}

	rec := c.store.Load(ctx)
	c.store.Save(ctx, &domain.PersistedSession{
		SessionID:        snap.SessionID,
		Keywords:         snap.Keywords,
		ArticleSummary:   snap.ArticleSummary,
		Topic:            snap.Topic,
		TopicDescription: snap.TopicDescription,
		UserPosition:     snap.UserPosition,
		AIPosition:       snap.AIPosition,
		Difficulty:       snap.Difficulty,
		Messages:         mergeLog(rec, snap.SessionID, snap.Messages),
		SummaryStatus:    persistedStatus(snap.SummaryStatus),
		CachedSummary:    snap.CachedSummary,
		Feedback:         snap.Feedback,
	})
}

// persistedStatus never stores an in-flight summary: after a restart there
// is no request behind it.
func persistedStatus(s domain.SummaryStatus) domain.SummaryStatus {
	if s == domain.SummarySummarizing {
		return domain.SummaryPending
	}
	return s
}
