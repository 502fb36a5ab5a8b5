package config

import "time"

const (
	// Request timeouts
	RequestTimeout = 30 * time.Second
	SummaryTimeout = 60 * time.Second
	StreamTimeout  = 120 * time.Second

	// Retry policy for non-streaming requests
	RetryMaxAttempts   = 3
	RetryBaseDelay     = 1 * time.Second
	RetryBackoffFactor = 2

	// Durable session expiry (sliding)
	SessionExpiry = 30 * time.Minute

	// Expiry refresh while a session is open
	SessionRefreshInterval = 5 * time.Minute

	// Message log pagination
	MessagesPerPage = 10

	// A summary shorter than this is treated as a degraded backend result
	MinSummaryLength = 30

	// Article preview
	PreviewTimeout  = 30 * time.Second
	PreviewCacheTTL = 1 * time.Hour

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Rate limits (messages per minute per chat)
	RateLimitPerMinute = 20

	// Summary progress milestones
	SummaryProgressStarted   = 10
	SummaryProgressRequested = 30
	SummaryProgressReceived  = 90
	SummaryProgressDone      = 100
)

// SummaryFailurePhrases mark a summary the backend produced from a failed run.
var SummaryFailurePhrases = []string{
	"오류가 발생했습니다",
	"실패했습니다",
	"an error occurred",
	"failed to generate",
}
