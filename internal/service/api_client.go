package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
)

// APIClient talks JSON to the debate backend. Every call gets its own
// timeout; connectivity failures and 5xx answers are retried with
// exponential backoff.
type APIClient struct {
	baseURL        string
	httpClient     *http.Client
	headers        map[string]string
	timeout        time.Duration
	summaryTimeout time.Duration
	maxRetries     int
	baseDelay      time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

type APIOption func(*APIClient)

func WithHTTPClient(c *http.Client) APIOption {
	return func(a *APIClient) { a.httpClient = c }
}

// WithHeader adds a header sent on every request. Per-call headers still win.
func WithHeader(key, value string) APIOption {
	return func(a *APIClient) { a.headers[key] = value }
}

func WithTimeouts(request, summary time.Duration) APIOption {
	return func(a *APIClient) {
		a.timeout = request
		a.summaryTimeout = summary
	}
}

func WithRetryPolicy(maxRetries int, baseDelay time.Duration) APIOption {
	return func(a *APIClient) {
		a.maxRetries = maxRetries
		a.baseDelay = baseDelay
	}
}

func NewAPIClient(baseURL string, opts ...APIOption) *APIClient {
	c := &APIClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		headers:        map[string]string{},
		timeout:        config.RequestTimeout,
		summaryTimeout: config.SummaryTimeout,
		maxRetries:     config.RetryMaxAttempts,
		baseDelay:      config.RetryBaseDelay,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	method  string
	body    any
	headers map[string]string
	timeout time.Duration
}

type submitURLRequest struct {
	URL string `json:"url"`
}

type topicRequest struct {
	SessionID string   `json:"sessionId"`
	Summary   string   `json:"summary"`
	Keywords  []string `json:"keywords"`
}

type startRequest struct {
	SessionID    string            `json:"sessionId"`
	Topic        string            `json:"topic"`
	UserPosition domain.Position   `json:"userPosition"`
	Difficulty   domain.Difficulty `json:"difficulty"`
}

type messageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (c *APIClient) SubmitURL(ctx context.Context, articleURL string) (*domain.ArticleAnalysis, error) {
	var out domain.ArticleAnalysis
	err := c.request(ctx, "/url", requestOptions{
		method: http.MethodPost,
		body:   submitURLRequest{URL: articleURL},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GenerateTopic(ctx context.Context, sessionID, summary string, keywords []string) (*domain.GeneratedTopic, error) {
	if keywords == nil {
		keywords = []string{}
	}
	var out domain.GeneratedTopic
	err := c.request(ctx, "/topic", requestOptions{
		method: http.MethodPost,
		body:   topicRequest{SessionID: sessionID, Summary: summary, Keywords: keywords},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) StartDiscussion(ctx context.Context, sessionID, topic string, position domain.Position, difficulty domain.Difficulty) (*domain.DiscussionStart, error) {
	var out domain.DiscussionStart
	err := c.request(ctx, "/discussion/start", requestOptions{
		method: http.MethodPost,
		body: startRequest{
			SessionID:    sessionID,
			Topic:        topic,
			UserPosition: position,
			Difficulty:   difficulty,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage is the non-streaming discussion turn.
func (c *APIClient) SendMessage(ctx context.Context, sessionID, message string) (string, error) {
	var out struct {
		AIMessage string `json:"aiMessage"`
	}
	err := c.request(ctx, "/discussion/message", requestOptions{
		method: http.MethodPost,
		body:   messageRequest{SessionID: sessionID, Message: message},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.AIMessage, nil
}

const (
	msgSummaryTimeout   = "Generating the summary timed out. Long discussions can take more time."
	msgSummaryRateLimit = "The summary hit the AI request limit. Please try again shortly."
	msgSummaryDegraded  = "The summary could not be generated. The discussion may be too long or complex."
	msgFeedbackMissing  = "The feedback response did not include a report."
)

// GetSummary fetches the discussion summary. The backend can answer 200 with
// an error field or a truncated summary; both are failures.
func (c *APIClient) GetSummary(ctx context.Context, sessionID string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
		Error   string `json:"error"`
	}
	err := c.request(ctx, "/discussion/summary/"+url.PathEscape(sessionID), requestOptions{
		method:  http.MethodGet,
		timeout: c.summaryTimeout,
	}, &out)
	if err != nil {
		e := apierr.Normalize(err)
		switch {
		case e.Kind == apierr.KindSessionExpired:
			return "", e
		case e.Flags.Timeout:
			return "", apierr.Timeout(msgSummaryTimeout, e)
		case e.Kind == apierr.KindRateLimit || strings.Contains(strings.ToLower(e.Message), "rate limit"):
			return "", apierr.RateLimit(msgSummaryRateLimit)
		}
		return "", e
	}

	if out.Error != "" {
		if rateLimitWording(out.Error) {
			return "", apierr.RateLimit(msgSummaryRateLimit)
		}
		e := apierr.New("Summary generation failed: "+out.Error, http.StatusOK, apierr.Flags{})
		e.Body = map[string]any{"error": out.Error}
		return "", e
	}

	if !usableSummary(out.Summary) {
		return "", apierr.Parsing(msgSummaryDegraded)
	}
	return out.Summary, nil
}

func (c *APIClient) GetFeedback(ctx context.Context, sessionID string) (*domain.FeedbackReport, error) {
	var out struct {
		Feedback *domain.FeedbackReport `json:"feedback"`
	}
	err := c.request(ctx, "/discussion/feedback/"+url.PathEscape(sessionID), requestOptions{
		method: http.MethodGet,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Feedback == nil {
		return nil, apierr.Parsing(msgFeedbackMissing)
	}
	return out.Feedback, nil
}

// CheckSession returns the backend's raw view of a session.
func (c *APIClient) CheckSession(ctx context.Context, sessionID string) (map[string]any, error) {
	var out map[string]any
	err := c.request(ctx, "/session/"+url.PathEscape(sessionID), requestOptions{
		method: http.MethodGet,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) request(ctx context.Context, path string, opts requestOptions, out any) error {
	for attempt := 0; ; attempt++ {
		err := c.do(ctx, path, opts, out)
		if err == nil {
			return nil
		}

		apierr.Log(err, "api "+opts.method+" "+path)

		if !c.shouldRetry(err, attempt) {
			return apierr.Normalize(err)
		}

		delay := c.backoff(attempt)
		slog.Warn("retrying request", "path", path, "attempt", attempt+1, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return apierr.Normalize(err)
		}
	}
}

func (c *APIClient) shouldRetry(err error, attempt int) bool {
	if attempt >= c.maxRetries {
		return false
	}
	if apierr.IsNetworkError(err) {
		return true
	}
	code, ok := apierr.StatusCodeOf(err)
	return ok && code >= 500
}

// backoff returns the wait before retry number attempt+1: base·2^attempt.
func (c *APIClient) backoff(attempt int) time.Duration {
	d := c.baseDelay
	for i := 0; i < attempt; i++ {
		d *= config.RetryBackoffFactor
	}
	return d
}

func (c *APIClient) do(ctx context.Context, path string, opts requestOptions, out any) error {
	timeout := opts.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if opts.body != nil {
		payload, err := json.Marshal(opts.body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, opts.method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, attemptCtx, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, attemptCtx, timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody map[string]any
		_ = json.Unmarshal(data, &errBody)
		return apierr.FromResponse(resp.StatusCode, http.StatusText(resp.StatusCode), errBody)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apierr.Parsing(fmt.Sprintf("parse response: %v", err))
	}
	return nil
}

// transportError turns a client failure into either a timeout (our own
// per-call deadline fired) or the bare cause without the request URL, whose
// path would otherwise leak words like "session" into classification.
func transportError(parent, attemptCtx context.Context, timeout time.Duration, err error) error {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return apierr.Timeout(fmt.Sprintf("The request timed out after %s.", timeout), err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return fmt.Errorf("send request: %w", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rateLimitWording matches the quota errors the backend reports inside a
// 200 summary response.
func rateLimitWording(s string) bool {
	m := strings.ToLower(s)
	return strings.Contains(m, "rate limit") || strings.Contains(m, "token") || strings.Contains(m, "토큰")
}

func usableSummary(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < config.MinSummaryLength {
		return false
	}
	lower := strings.ToLower(s)
	for _, phrase := range config.SummaryFailurePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
