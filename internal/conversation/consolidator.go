package conversation

import (
	"strings"

	"warden/internal/event"
	"warden/internal/logging"
)

// Consolidator converts the event log into an ordered message list for one
// turn. It walks the log backward from the most recent entry to the boundary
// of the previous turn, filters noise, merges streaming fragments, and
// reverses the result to chronological order.
type Consolidator struct {
	agentName string
	logger    logging.Logger
}

// NewConsolidator builds a consolidator for the named agent. The agent's own
// events mark the boundary of the previous turn.
func NewConsolidator(agentName string, logger logging.Logger) *Consolidator {
	return &Consolidator{
		agentName: agentName,
		logger:    logging.OrNop(logger),
	}
}

// accumulation buffers streaming reply fragments from a single author while
// walking backward. Parts are collected in reverse arrival order and flipped
// on flush.
type accumulation struct {
	author string
	parts  []string
}

func (a *accumulation) active() bool {
	return a.author != "" && len(a.parts) > 0
}

// Consolidate reduces events into chronological messages. It returns the
// message list plus the remote context identifier found on the boundary
// event, if any, for reuse with the downstream collaborator.
func (c *Consolidator) Consolidate(events []event.Event) ([]Message, string) {
	var (
		collected []Message // reverse chronological while walking
		acc       accumulation
		contextID string
	)

	flush := func() {
		if !acc.active() {
			acc = accumulation{}
			return
		}
		// Parts were gathered newest-first; restore original order.
		parts := make([]string, len(acc.parts))
		for i, p := range acc.parts {
			parts[len(parts)-1-i] = p
		}
		collected = append(collected, Message{
			Role:   RoleAgent,
			Author: acc.author,
			Text:   strings.Join(parts, ""),
		})
		acc = accumulation{}
	}

	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]

		if ev.Author == c.agentName {
			if id, ok := ev.ContextID(); ok {
				contextID = id
			}
			break
		}

		if len(ev.Parts) == 0 {
			continue
		}

		if event.IsEmptySubmittedTask(ev) {
			// Bookkeeping noise for a freshly submitted sub-task.
			continue
		}

		if ev.Author == event.UserAuthor {
			flush()
			text := strings.Join(event.TextParts(ev.Parts), " ")
			if text != "" {
				collected = append(collected, Message{Role: RoleUser, Text: text})
			}
			continue
		}

		// A reply from some other agent or sub-task.
		parts := event.TextParts(ev.Parts)
		if len(parts) == 0 {
			continue
		}
		if acc.author == ev.Author {
			acc.parts = append(acc.parts, parts...)
		} else {
			flush()
			acc = accumulation{author: ev.Author, parts: parts}
		}
	}

	flush()

	// Reverse to chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	c.logger.Debug("consolidated %d events into %d messages (context_id=%q)",
		len(events), len(collected), contextID)
	return collected, contextID
}
