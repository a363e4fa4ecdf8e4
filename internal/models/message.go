package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DisplayName returns the label shown above a turn
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// TurnStatus is the lifecycle state of a single turn
type TurnStatus string

const (
	StatusPending   TurnStatus = "pending"
	StatusStreaming TurnStatus = "streaming"
	StatusComplete  TurnStatus = "complete"
	StatusErrored   TurnStatus = "errored"
)

// IsTerminal reports whether the status can no longer change
func (s TurnStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusErrored
}

// Turn is one message in a conversation.
// Content is kept as the ordered fragments it arrived in so the transcript
// can be reproduced exactly; Content() joins them for display.
type Turn struct {
	ID         string
	Role       Role
	Fragments  []string
	Status     TurnStatus
	Err        string // error summary, only set when Status is errored
	CreatedAt  time.Time
	FinishedAt time.Time
}

// NewTurnID returns a fresh unique turn identifier
func NewTurnID() string {
	return uuid.NewString()
}

// NewUserTurn creates a completed user turn
func NewUserTurn(text string) Turn {
	now := time.Now()
	return Turn{
		ID:         NewTurnID(),
		Role:       RoleUser,
		Fragments:  []string{text},
		Status:     StatusComplete,
		CreatedAt:  now,
		FinishedAt: now,
	}
}

// NewAssistantTurn creates an empty assistant turn in streaming state
func NewAssistantTurn() Turn {
	return Turn{
		ID:        NewTurnID(),
		Role:      RoleAssistant,
		Status:    StatusStreaming,
		CreatedAt: time.Now(),
	}
}

// Content returns the concatenated text of the turn
func (t Turn) Content() string {
	switch len(t.Fragments) {
	case 0:
		return ""
	case 1:
		return t.Fragments[0]
	}
	return strings.Join(t.Fragments, "")
}

// IsStreaming reports whether the turn is still receiving deltas
func (t Turn) IsStreaming() bool {
	return t.Status == StatusStreaming
}

// Clone returns a deep copy of the turn
func (t Turn) Clone() Turn {
	c := t
	if t.Fragments != nil {
		c.Fragments = make([]string, len(t.Fragments))
		copy(c.Fragments, t.Fragments)
	}
	return c
}

// HistoryMessage is the wire shape of one prior turn sent to the endpoint
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
