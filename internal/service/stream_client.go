package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/config"
)

// StreamHandler receives the progress of one streamed reply. Exactly one of
// OnComplete or OnError fires per SendStream call.
type StreamHandler struct {
	OnChunk    func(delta, accumulated string)
	OnComplete func(final string)
	OnError    func(err error)
}

type StreamClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	readSize   int
}

type StreamOption func(*StreamClient)

func WithStreamHTTPClient(c *http.Client) StreamOption {
	return func(s *StreamClient) { s.httpClient = c }
}

func WithStreamTimeout(d time.Duration) StreamOption {
	return func(s *StreamClient) { s.timeout = d }
}

func NewStreamClient(baseURL string, opts ...StreamOption) *StreamClient {
	c := &StreamClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    config.StreamTimeout,
		readSize:   4096,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type streamRecord struct {
	Type         string `json:"type"`
	Content      string `json:"content"`
	FinalMessage string `json:"final_message"`
	Message      string `json:"message"`
}

type streamRun struct {
	handler   StreamHandler
	completed bool
	acc       strings.Builder
}

func (r *streamRun) complete(final string) (string, error) {
	if !r.completed {
		r.completed = true
		if r.handler.OnComplete != nil {
			r.handler.OnComplete(final)
		}
	}
	return final, nil
}

func (r *streamRun) fail(err error) (string, error) {
	if !r.completed {
		r.completed = true
		apierr.Log(err, "stream")
		if r.handler.OnError != nil {
			r.handler.OnError(err)
		}
	}
	return "", err
}

// dispatch applies one record. done is true once the stream reached a
// terminal record.
func (r *streamRun) dispatch(ev Event) (final string, done bool, err error) {
	var rec streamRecord
	if err := json.Unmarshal([]byte(ev.Data), &rec); err != nil {
		slog.Warn("skip malformed stream record", "data", ev.Data, "error", err)
		return "", false, nil
	}

	switch rec.Type {
	case "chunk":
		r.acc.WriteString(rec.Content)
		if r.handler.OnChunk != nil {
			r.handler.OnChunk(rec.Content, r.acc.String())
		}
	case "end":
		final := rec.FinalMessage
		if final == "" {
			final = r.acc.String()
		}
		return final, true, nil
	case "error":
		msg := rec.Message
		if msg == "" {
			msg = "An error occurred while streaming the reply."
		}
		return "", true, apierr.New(msg, 0, apierr.Flags{})
	default:
		slog.Debug("ignore stream record", "type", rec.Type)
	}
	return "", false, nil
}

// SendStream posts a user turn and consumes the AI reply as an event
// stream. The returned text equals what OnComplete received.
func (c *StreamClient) SendStream(ctx context.Context, sessionID, message string, h StreamHandler) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	run := &streamRun{handler: h}

	payload, err := json.Marshal(messageRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return run.fail(apierr.Normalize(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/discussion/message/stream", bytes.NewReader(payload))
	if err != nil {
		return run.fail(apierr.Normalize(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return run.fail(streamError(ctx, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		return run.fail(apierr.FromResponse(resp.StatusCode, http.StatusText(resp.StatusCode), body))
	}
	if resp.Body == http.NoBody {
		return run.fail(apierr.New("The stream response has no body.", 0, apierr.Flags{}))
	}

	parser := &Parser{}
	buf := make([]byte, c.readSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				if final, done, err := run.dispatch(ev); done {
					if err != nil {
						return run.fail(err)
					}
					return run.complete(final)
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			for _, ev := range parser.Flush() {
				if final, done, err := run.dispatch(ev); done {
					if err != nil {
						return run.fail(err)
					}
					return run.complete(final)
				}
			}
			if run.acc.Len() == 0 {
				return run.fail(apierr.New("The stream ended before any reply arrived.", 0, apierr.Flags{}))
			}
			return run.complete(run.acc.String())
		}
		if readErr != nil {
			return run.fail(streamError(ctx, readErr))
		}
	}
}

func streamError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apierr.Timeout("The streaming request timed out.", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return &apierr.Error{Kind: apierr.KindUnknown, Message: "The streaming request was cancelled.", Err: ctx.Err()}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return &apierr.Error{
		Kind:    apierr.KindNetwork,
		Message: "Streaming connection error: " + err.Error(),
		Err:     err,
	}
}
