package domain

import "strings"

type Position string

const (
	PositionFor     Position = "찬성"
	PositionAgainst Position = "반대"
)

// Opposite returns the stance the AI takes against p.
func (p Position) Opposite() Position {
	if p == PositionFor {
		return PositionAgainst
	}
	return PositionFor
}

func (p Position) Valid() bool {
	return p == PositionFor || p == PositionAgainst
}

func (p Position) Label() string {
	switch p {
	case PositionFor:
		return "FOR"
	case PositionAgainst:
		return "AGAINST"
	default:
		return "-"
	}
}

// ParsePosition accepts the wire value or an English alias (for/against, pro/con).
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "찬성", "for", "pro", "yes":
		return PositionFor, nil
	case "반대", "against", "con", "no":
		return PositionAgainst, nil
	}
	return "", ErrInvalidPosition
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", ErrInvalidDifficulty
}

type SummaryStatus string

const (
	SummaryPending     SummaryStatus = "pending"
	SummarySummarizing SummaryStatus = "summarizing"
	SummaryCompleted   SummaryStatus = "completed"
	SummaryFailed      SummaryStatus = "failed"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

type Message struct {
	ID          string `json:"id"`
	Sender      Sender `json:"sender"`
	Text        string `json:"text"`
	Time        string `json:"time"`
	IsStreaming bool   `json:"isStreaming,omitempty"`
}

// Session is the in-memory state of one debate engagement. An empty
// SessionID means there is no active session.
type Session struct {
	SessionID        string
	Keywords         []string
	ArticleSummary   string
	Topic            string
	TopicDescription string
	UserPosition     *Position
	AIPosition       *Position
	Difficulty       Difficulty
	Messages         []Message
	HasMoreMessages  bool
	SummaryStatus    SummaryStatus
	SummaryProgress  int
	CachedSummary    string
	Feedback         *FeedbackReport
}

// NewSession returns the initial (reset) state.
func NewSession() Session {
	return Session{
		Keywords:      []string{},
		Difficulty:    DifficultyMedium,
		Messages:      []Message{},
		SummaryStatus: SummaryPending,
	}
}

func (s Session) Active() bool {
	return s.SessionID != ""
}

func (s Session) Started() bool {
	return s.UserPosition != nil && s.AIPosition != nil
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s Session) Clone() Session {
	c := s
	c.Keywords = append([]string(nil), s.Keywords...)
	c.Messages = append([]Message(nil), s.Messages...)
	if s.UserPosition != nil {
		p := *s.UserPosition
		c.UserPosition = &p
	}
	if s.AIPosition != nil {
		p := *s.AIPosition
		c.AIPosition = &p
	}
	if s.Feedback != nil {
		f := *s.Feedback
		c.Feedback = &f
	}
	return c
}

// PersistedSession is the durable projection of Session. Messages holds the
// full log, not just the in-memory window.
type PersistedSession struct {
	SessionID        string          `json:"sessionId,omitempty"`
	Keywords         []string        `json:"keywords,omitempty"`
	ArticleSummary   string          `json:"summary,omitempty"`
	Topic            string          `json:"topic,omitempty"`
	TopicDescription string          `json:"topicDescription,omitempty"`
	UserPosition     *Position       `json:"userPosition,omitempty"`
	AIPosition       *Position       `json:"aiPosition,omitempty"`
	Difficulty       Difficulty      `json:"difficulty,omitempty"`
	Messages         []Message       `json:"messages,omitempty"`
	SummaryStatus    SummaryStatus   `json:"summaryStatus,omitempty"`
	CachedSummary    string          `json:"cachedSummary,omitempty"`
	Feedback         *FeedbackReport `json:"feedbackData,omitempty"`
	ExpiresAt        int64           `json:"expiresAt"`
}
