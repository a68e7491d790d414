package gateway

import (
	"strings"

	"warden/internal/event"
)

// contextPrefix marks forwarded background context inside responder events;
// such parts are not part of the answer and are skipped during extraction.
const contextPrefix = "For context:"

// CurrentTurnResponse extracts only the current turn's answer from the event
// log: everything the named responder agents emitted after the last user
// event, concatenated in order. Forwarded context blocks are skipped.
func CurrentTurnResponse(events []event.Event, agents []string) string {
	lastUser := -1
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Author == event.UserAuthor {
			lastUser = i
			break
		}
	}
	if lastUser < 0 {
		return ""
	}

	collect := make(map[string]bool, len(agents))
	for _, name := range agents {
		collect[name] = true
	}

	var parts []string
	for _, ev := range events[lastUser+1:] {
		if !collect[ev.Author] {
			continue
		}
		text := event.ResponseText(ev)
		if text == "" || strings.HasPrefix(strings.TrimSpace(text), contextPrefix) {
			continue
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "")
}
