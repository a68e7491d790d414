// Package event defines the immutable conversation-log record shared by the
// consolidation, summarization, and streaming layers. Events are produced by
// an external append-only log; this package only reads them.
package event

import (
	"strings"
	"time"
)

// UserAuthor is the reserved author name for end-user turns.
const UserAuthor = "user"

// Metadata keys carried over from the remote-agent transport.
const (
	MetaContextID = "a2a:context_id"
	MetaTaskID    = "a2a:task_id"
	MetaResponse  = "a2a:response"
	MetaError     = "a2a:error"
)

// Part is one piece of event content. Exactly two variants exist: plain text
// and thought (model reasoning) text.
type Part interface {
	// PartText returns the raw text of the part.
	PartText() string
	// Thought reports whether the part is model reasoning rather than content.
	Thought() bool
}

// TextPart is plain, user-visible text.
type TextPart struct {
	Text string
}

func (p TextPart) PartText() string { return p.Text }
func (p TextPart) Thought() bool    { return false }

// ThoughtPart is model reasoning text, excluded from rendered history.
type ThoughtPart struct {
	Text string
}

func (p ThoughtPart) PartText() string { return p.Text }
func (p ThoughtPart) Thought() bool    { return true }

// Event is one record in the conversation log. Immutable once appended.
type Event struct {
	Author    string
	Timestamp time.Time
	Parts     []Part
	Metadata  map[string]any
}

// TaskID returns the sub-task identifier from metadata, if present.
func (e Event) TaskID() (string, bool) {
	return metaString(e.Metadata, MetaTaskID)
}

// ContextID returns the remote context identifier from metadata, if present.
func (e Event) ContextID() (string, bool) {
	return metaString(e.Metadata, MetaContextID)
}

func metaString(meta map[string]any, key string) (string, bool) {
	if meta == nil {
		return "", false
	}
	value, ok := meta[key].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// TextParts returns the text of every non-thought part that has text.
func TextParts(parts []Part) []string {
	var out []string
	for _, part := range parts {
		if part == nil || part.Thought() {
			continue
		}
		if text := part.PartText(); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// JoinedText concatenates every non-thought text part without a separator,
// matching how streaming fragments are buffered.
func JoinedText(parts []Part) string {
	return strings.Join(TextParts(parts), "")
}

// ThoughtText concatenates every thought part's text.
func ThoughtText(parts []Part) string {
	var b strings.Builder
	for _, part := range parts {
		if part == nil || !part.Thought() {
			continue
		}
		b.WriteString(part.PartText())
	}
	return b.String()
}

// LatestUserText returns the text of the last user-authored event with
// content, or "" when none exists.
func LatestUserText(events []Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Author != UserAuthor || len(ev.Parts) == 0 {
			continue
		}
		if text := JoinedText(ev.Parts); text != "" {
			return text
		}
	}
	return ""
}
