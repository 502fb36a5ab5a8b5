package domain

import "errors"

var (
	ErrNoSession         = errors.New("no active session")
	ErrNoTopic           = errors.New("no discussion topic selected")
	ErrNoDiscussion      = errors.New("discussion has not started")
	ErrReadOnly          = errors.New("discussion is read-only")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrInvalidURL        = errors.New("invalid article url")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrSendInFlight      = errors.New("a message is already being sent")
	ErrSummaryNotStarted = errors.New("summary has not been requested")
)
