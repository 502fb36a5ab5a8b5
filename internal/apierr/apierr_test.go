package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PassThrough(t *testing.T) {
	orig := FromResponse(503, "Service Unavailable", map[string]any{"error": "backend busy"})
	got := Normalize(orig)
	assert.Same(t, orig, got)
	assert.Equal(t, "backend busy", got.Message)
	assert.Equal(t, 503, got.StatusCode)
	assert.Equal(t, KindServer, got.Kind)

	wrapped := fmt.Errorf("submit url: %w", orig)
	assert.Same(t, orig, Normalize(wrapped))
}

func TestNormalize_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		message string
		status  int
		kind    Kind
	}{
		{"nil", nil, msgUnknown, 0, KindUnknown},
		{"string", "something broke", "something broke", 0, KindUnknown},
		{"string mentioning expiry", "세션이 만료되었습니다", "세션이 만료되었습니다", 0, KindSessionExpired},
		{"map with message", map[string]any{"message": "bad input", "statusCode": float64(422)}, "bad input", 422, KindValidation},
		{"nested response data", map[string]any{
			"response": map[string]any{"status": 500, "data": map[string]any{"error": "db down"}},
		}, "db down", 500, KindServer},
		{"nested response without text", map[string]any{
			"response": map[string]any{"status": 404, "data": map[string]any{}},
		}, msgServer, 404, KindAPI},
		{"unknown shape", 42, msgUnexpected, 0, KindUnknown},
		{"plain error with status", errors.New("HTTP 401: Unauthorized"), "HTTP 401: Unauthorized", 401, KindSessionExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			require.NotNil(t, got)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}
}

func TestNormalize_DeadlineIsTimeout(t *testing.T) {
	got := Normalize(fmt.Errorf("post: %w", context.DeadlineExceeded))
	assert.Equal(t, KindNetwork, got.Kind)
	assert.True(t, got.Flags.Timeout)
	assert.Equal(t, 408, got.StatusCode)
	assert.False(t, IsNetworkError(got))
}

func TestIsNetworkError(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")}
	assert.True(t, IsNetworkError(fmt.Errorf("post: %w", opErr)))
	assert.True(t, IsNetworkError(errors.New("Network request failed")))
	assert.True(t, IsNetworkError(errors.New("no internet")))
	assert.False(t, IsNetworkError(errors.New("bad request")))
	assert.False(t, IsNetworkError(nil))
	assert.False(t, IsNetworkError(Timeout("timed out", nil)))

	n := Normalize(fmt.Errorf("Post \"http://127.0.0.1:1/api/session/s1\": %w", opErr))
	assert.Equal(t, KindNetwork, n.Kind)
	assert.Zero(t, n.StatusCode)
}

func TestStatusCodeOf(t *testing.T) {
	code, ok := StatusCodeOf(FromResponse(404, "Not Found", nil))
	assert.True(t, ok)
	assert.Equal(t, 404, code)

	code, ok = StatusCodeOf(errors.New("API request failed: 502 Bad Gateway"))
	assert.True(t, ok)
	assert.Equal(t, 502, code)

	_, ok = StatusCodeOf(errors.New("nothing here"))
	assert.False(t, ok)

	_, ok = StatusCodeOf(nil)
	assert.False(t, ok)
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsSessionExpiredError(FromResponse(401, "Unauthorized", nil)))
	assert.True(t, IsSessionExpiredError(errors.New("session not found")))
	assert.False(t, IsSessionExpiredError(FromResponse(403, "Forbidden", nil)))

	assert.True(t, IsServerError(FromResponse(500, "Internal Server Error", nil)))
	assert.False(t, IsServerError(FromResponse(499, "", nil)))

	assert.True(t, IsValidationError(FromResponse(400, "Bad Request", nil)))
	assert.True(t, IsValidationError(FromResponse(422, "Unprocessable", nil)))
	assert.False(t, IsValidationError(FromResponse(404, "Not Found", nil)))
}

func TestFromResponse_Message(t *testing.T) {
	e := FromResponse(500, "Internal Server Error", nil)
	assert.Equal(t, "API request failed: 500 Internal Server Error", e.Message)

	e = FromResponse(429, "Too Many Requests", map[string]any{"error": "slow down"})
	assert.Equal(t, KindRateLimit, e.Kind)
	assert.True(t, e.Flags.RateLimit)
}

func TestFriendlyMessageAndRecovery(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Err: errors.New("refused")}
	assert.Equal(t, "Please check your internet connection.", FriendlyMessage(opErr))
	assert.Equal(t, "Your session has expired. Please start over.", FriendlyMessage(FromResponse(401, "", nil)))
	assert.Equal(t, "Please check what you entered.", FriendlyMessage(FromResponse(400, "", nil)))
	assert.Equal(t, "too short", FriendlyMessage(Parsing("too short")))

	assert.Equal(t, RecoveryRetry, Normalize(opErr).Recovery())
	assert.Equal(t, RecoveryRestart, FromResponse(401, "", nil).Recovery())
	assert.Equal(t, RecoveryAcknowledge, FromResponse(422, "", nil).Recovery())
	assert.Equal(t, RecoveryRetry, Parsing("x").Recovery())
}

func TestLog_DoesNotPanic(t *testing.T) {
	SetVerbose(true)
	Log(FromResponse(500, "", map[string]any{"error": "x"}), "test")
	SetVerbose(false)
	Log(errors.New("plain"), "test")
	Log(nil, "test")
}
