package apierr

import (
	"log/slog"
	"sync/atomic"
)

type Recovery string

const (
	RecoveryRetry       Recovery = "retry"
	RecoveryRestart     Recovery = "restart"
	RecoveryAcknowledge Recovery = "acknowledge"
)

// Recovery is the action a front end should offer for this failure.
func (e *Error) Recovery() Recovery {
	switch e.Kind {
	case KindNetwork, KindAPI, KindServer, KindRateLimit, KindParsing:
		return RecoveryRetry
	case KindValidation:
		return RecoveryAcknowledge
	default:
		return RecoveryRestart
	}
}

// FriendlyMessage returns the text shown to the user for raw.
func FriendlyMessage(raw any) string {
	e := Normalize(raw)
	switch {
	case e.Kind == KindNetwork && !e.Flags.Timeout:
		return "Please check your internet connection."
	case e.Kind == KindSessionExpired:
		return "Your session has expired. Please start over."
	case e.Kind == KindServer:
		return "The server ran into a problem. Please try again in a moment."
	case e.Kind == KindValidation:
		return "Please check what you entered."
	}
	return e.Message
}

var verbose atomic.Bool

// SetVerbose switches Log between development (full detail) and production
// (one terse line) output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Log records err under the calling context. It never alters err.
func Log(err error, context string) {
	if err == nil {
		return
	}
	e := Normalize(err)
	if !verbose.Load() {
		slog.Error("["+context+"] "+e.Message, "kind", e.Kind)
		return
	}
	attrs := []any{
		"context", context,
		"kind", e.Kind,
		"status", e.StatusCode,
		"timeout", e.Flags.Timeout,
		"rate_limit", e.Flags.RateLimit,
		"parsing", e.Flags.Parsing,
		"error", err,
	}
	if e.Body != nil {
		attrs = append(attrs, "body", e.Body)
	}
	slog.Error("request failed", attrs...)
}
