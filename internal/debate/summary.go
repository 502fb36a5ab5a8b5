package debate

import (
	"context"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
)

// StartBackgroundSummary kicks off summary generation unless one is already
// running or finished. It reports whether a request was started. The
// request outlives ctx cancellation; only its values are inherited.
func (c *Controller) StartBackgroundSummary(ctx context.Context) bool {
	c.mu.Lock()
	if !c.state.Active() {
		c.mu.Unlock()
		return false
	}
	switch c.state.SummaryStatus {
	case domain.SummarySummarizing, domain.SummaryCompleted:
		c.mu.Unlock()
		return false
	}
	c.state.SummaryStatus = domain.SummarySummarizing
	c.state.SummaryProgress = config.SummaryProgressStarted
	c.summaryErr = nil
	done := make(chan struct{})
	c.summaryDone = done
	sid := c.state.SessionID
	c.mu.Unlock()

	go c.runSummary(context.WithoutCancel(ctx), sid, done)
	return true
}

func (c *Controller) runSummary(ctx context.Context, sid string, done chan struct{}) {
	defer close(done)

	c.setSummaryProgress(sid, config.SummaryProgressRequested)
	summary, err := c.api.GetSummary(ctx, sid)
	if err != nil {
		e := apierr.Normalize(err)
		c.mu.Lock()
		current := c.state.SessionID == sid
		if current {
			c.state.SummaryStatus = domain.SummaryFailed
			c.state.SummaryProgress = 0
			c.summaryErr = e
		}
		c.mu.Unlock()
		if !current {
			return
		}
		c.fail(ctx, "background summary", e)
		c.persist(ctx)
		return
	}

	c.setSummaryProgress(sid, config.SummaryProgressReceived)

	c.mu.Lock()
	if c.state.SessionID != sid {
		c.mu.Unlock()
		return
	}
	c.state.CachedSummary = summary
	c.state.SummaryStatus = domain.SummaryCompleted
	c.state.SummaryProgress = config.SummaryProgressDone
	c.mu.Unlock()

	c.persist(ctx)
}

func (c *Controller) setSummaryProgress(sid string, progress int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.SessionID == sid && c.state.SummaryStatus == domain.SummarySummarizing {
		c.state.SummaryProgress = progress
	}
}

// WaitForSummary blocks until a running summary request settles and
// returns its result. A completed summary is returned at once; a failed
// one returns the failure. Without a request in flight or done it returns
// domain.ErrSummaryNotStarted.
func (c *Controller) WaitForSummary(ctx context.Context) (string, error) {
	c.mu.Lock()
	status, done := c.state.SummaryStatus, c.summaryDone
	c.mu.Unlock()

	if status == domain.SummarySummarizing && done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state.SummaryStatus {
	case domain.SummaryCompleted:
		return c.state.CachedSummary, nil
	case domain.SummaryFailed:
		if c.summaryErr != nil {
			return "", c.summaryErr
		}
		return "", domain.ErrSummaryNotStarted
	}
	if !c.state.Active() {
		return "", domain.ErrNoSession
	}
	return "", domain.ErrSummaryNotStarted
}

// CachedSummary returns a completed summary from memory or, failing that,
// from the stored record. It never asks the backend.
func (c *Controller) CachedSummary(ctx context.Context) (string, bool) {
	c.mu.Lock()
	if c.state.SummaryStatus == domain.SummaryCompleted && c.state.CachedSummary != "" {
		s := c.state.CachedSummary
		c.mu.Unlock()
		return s, true
	}
	sid := c.state.SessionID
	c.mu.Unlock()
	if sid == "" {
		return "", false
	}

	rec := c.store.Load(ctx)
	if rec == nil || rec.SessionID != sid || rec.SummaryStatus != domain.SummaryCompleted || rec.CachedSummary == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.SessionID != sid {
		return "", false
	}
	if c.state.SummaryStatus != domain.SummarySummarizing {
		c.state.SummaryStatus = domain.SummaryCompleted
		c.state.SummaryProgress = config.SummaryProgressDone
		c.state.CachedSummary = rec.CachedSummary
	}
	return rec.CachedSummary, true
}
