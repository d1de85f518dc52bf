package models

import "time"

// Turn is one utterance in the rolling conversation memory.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// EmailSummary is the bounded view of one email the assistant keeps for
// referent resolution ("the first one", "the one from Alice").
type EmailSummary struct {
	From     string    `json:"from"`
	FromName string    `json:"from_name"`
	Subject  string    `json:"subject"`
	Date     time.Time `json:"date"`
	Excerpt  string    `json:"excerpt"`
	Urgent   bool      `json:"urgent"`
}

// DisplayName prefers the sender's display name and falls back to the
// local part of the address.
func (e EmailSummary) DisplayName() string {
	if e.FromName != "" {
		return e.FromName
	}
	addr := e.From
	for i := 0; i < len(addr); i++ {
		if addr[i] == '@' {
			return addr[:i]
		}
	}
	return addr
}

// Draft is an outbound message held until the user confirms or cancels.
type Draft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ScheduledTask is a deferred action executed out-of-band by the worker.
type ScheduledTask struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Task          string    `json:"task"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
}
