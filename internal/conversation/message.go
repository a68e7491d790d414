// Package conversation reduces an append-only, multi-author event log into a
// bounded, chronologically faithful context for the downstream responder.
package conversation

import "fmt"

// Role distinguishes who produced a consolidated message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one deduplicated, chronological entry derived from the event
// log. Produced fresh per turn; never persisted. Text is always non-empty.
type Message struct {
	Role   Role
	Author string // agent name for RoleAgent, empty for RoleUser
	Text   string
}

// Render formats a message for inclusion in history text handed to the
// summarizer or forwarded verbatim as context.
func (m Message) Render() string {
	if m.Role == RoleUser {
		return fmt.Sprintf("User previously asked: %s", m.Text)
	}
	return fmt.Sprintf("[%s] replied: %s", m.Author, m.Text)
}
