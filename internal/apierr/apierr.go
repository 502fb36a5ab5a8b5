// Package apierr normalizes the failure shapes seen at the backend boundary
// (transport errors, HTTP error bodies, timeouts, server-declared failures)
// into a single tagged error type.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

type Kind string

const (
	KindNetwork        Kind = "NETWORK"
	KindAPI            Kind = "API"
	KindValidation     Kind = "VALIDATION"
	KindSessionExpired Kind = "SESSION_EXPIRED"
	KindServer         Kind = "SERVER"
	KindRateLimit      Kind = "RATE_LIMIT"
	KindParsing        Kind = "PARSING"
	KindUnknown        Kind = "UNKNOWN"
)

type Flags struct {
	Timeout   bool
	RateLimit bool
	Parsing   bool
}

// Error is the only error shape that leaves the service layer.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Flags      Flags
	Body       map[string]any
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

const (
	msgUnknown    = "An unknown error occurred."
	msgServer     = "The server returned an error."
	msgUnexpected = "An unexpected error occurred."
)

// New builds a tagged error and classifies it.
func New(message string, statusCode int, flags Flags) *Error {
	return classify(&Error{Message: message, StatusCode: statusCode, Flags: flags})
}

// Timeout builds a NETWORK error flagged as a timeout (HTTP 408 semantics).
func Timeout(message string, cause error) *Error {
	return &Error{Kind: KindNetwork, Message: message, StatusCode: 408, Flags: Flags{Timeout: true}, Err: cause}
}

// Parsing marks a call that succeeded at the HTTP level but returned an
// unusable payload.
func Parsing(message string) *Error {
	return &Error{Kind: KindParsing, Message: message, Flags: Flags{Parsing: true}}
}

func RateLimit(message string) *Error {
	return &Error{Kind: KindRateLimit, Message: message, StatusCode: 429, Flags: Flags{RateLimit: true}}
}

// FromResponse builds the error for a non-2xx response. The server's "error"
// (or "message") field wins over the generic status text.
func FromResponse(status int, statusText string, body map[string]any) *Error {
	msg := stringField(body, "error")
	if msg == "" {
		msg = stringField(body, "message")
	}
	if msg == "" {
		msg = fmt.Sprintf("API request failed: %d %s", status, statusText)
	}
	return classify(&Error{Message: msg, StatusCode: status, Body: body})
}

// Normalize maps any failure shape onto *Error:
//  1. values exposing a message (errors, maps with "message") pass through
//     with their status code;
//  2. plain strings become the message;
//  3. maps with a nested response/data body yield the server's message;
//  4. anything else gets a generic message.
func Normalize(raw any) *Error {
	switch v := raw.(type) {
	case nil:
		return &Error{Kind: KindUnknown, Message: msgUnknown}
	case *Error:
		if v == nil {
			return &Error{Kind: KindUnknown, Message: msgUnknown}
		}
		return classify(v)
	case error:
		var ae *Error
		if errors.As(v, &ae) {
			return classify(ae)
		}
		return fromPlainError(v)
	case string:
		if v == "" {
			return &Error{Kind: KindUnknown, Message: msgUnknown}
		}
		return classify(&Error{Message: v})
	case map[string]any:
		return fromMap(v)
	default:
		return &Error{Kind: KindUnknown, Message: msgUnexpected}
	}
}

func fromPlainError(err error) *Error {
	msg := err.Error()
	if msg == "" {
		msg = msgUnknown
	}
	e := &Error{Message: msg, Err: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindNetwork
		e.StatusCode = 408
		e.Flags.Timeout = true
		return e
	case networkCause(err):
		e.Kind = KindNetwork
		return e
	}
	if code, ok := statusFromText(msg); ok {
		e.StatusCode = code
	}
	return classify(e)
}

func fromMap(m map[string]any) *Error {
	if msg := stringField(m, "message"); msg != "" {
		return classify(&Error{Message: msg, StatusCode: intField(m, "statusCode")})
	}
	if resp, ok := m["response"].(map[string]any); ok {
		if data, ok := resp["data"].(map[string]any); ok {
			msg := stringField(data, "message")
			if msg == "" {
				msg = stringField(data, "error")
			}
			if msg == "" {
				msg = msgServer
			}
			return classify(&Error{Message: msg, StatusCode: intField(resp, "status"), Body: data})
		}
	}
	return &Error{Kind: KindUnknown, Message: msgUnexpected}
}

func classify(e *Error) *Error {
	if e.Kind != "" {
		return e
	}
	switch {
	case e.Flags.Parsing:
		e.Kind = KindParsing
	case e.Flags.RateLimit || e.StatusCode == 429:
		e.Kind = KindRateLimit
		e.Flags.RateLimit = true
	case e.Flags.Timeout:
		e.Kind = KindNetwork
	case e.StatusCode == 401 || expiryWording(e.Message):
		e.Kind = KindSessionExpired
	case e.StatusCode == 400 || e.StatusCode == 422:
		e.Kind = KindValidation
	case e.StatusCode >= 500:
		e.Kind = KindServer
	case (e.Err != nil && networkCause(e.Err)) || networkWording(e.Message):
		e.Kind = KindNetwork
	case e.StatusCode != 0:
		e.Kind = KindAPI
	default:
		e.Kind = KindUnknown
	}
	return e
}

// IsNetworkError reports a connectivity failure: the client could not reach
// the backend at all. Timeouts are not connectivity failures.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != "" {
		return ae.Kind == KindNetwork && !ae.Flags.Timeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return networkCause(err) || networkWording(err.Error())
}

// StatusCodeOf extracts an HTTP status from a tagged error or, failing that,
// from a three-digit code in the message.
func StatusCodeOf(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.StatusCode != 0 {
			return ae.StatusCode, true
		}
		return 0, false
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return statusFromText(err.Error())
}

func IsSessionExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != "" {
		return ae.Kind == KindSessionExpired || ae.StatusCode == 401
	}
	if code, ok := StatusCodeOf(err); ok && code == 401 {
		return true
	}
	return expiryWording(err.Error())
}

func IsServerError(err error) bool {
	code, ok := StatusCodeOf(err)
	return ok && code >= 500
}

func IsValidationError(err error) bool {
	code, ok := StatusCodeOf(err)
	return ok && (code == 400 || code == 422)
}

func networkCause(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}

func networkWording(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "network") ||
		strings.Contains(m, "internet") ||
		strings.Contains(m, "connection refused") ||
		strings.Contains(m, "connection reset") ||
		strings.Contains(m, "no such host")
}

func expiryWording(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "session") || strings.Contains(m, "expired") || strings.Contains(m, "만료")
}

var statusPattern = regexp.MustCompile(`\b([1-5]\d{2})\b`)

func statusFromText(msg string) (int, bool) {
	match := statusPattern.FindStringSubmatch(msg)
	if match == nil {
		return 0, false
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
