package event

import "strings"

// Envelope is the decoded remote-agent response carried in event metadata
// under MetaResponse. The wire format is decoded upstream; the core treats it
// as an opaque message-part container.
type Envelope struct {
	Kind      string // "task" or "message"
	Artifacts []Artifact
	Status    TaskStatus
	Parts     []Part // populated when Kind == "message"
}

// Artifact is one output bundle attached to a completed remote task.
type Artifact struct {
	Parts []Part
}

// TaskStatus describes the remote task's lifecycle state.
type TaskStatus struct {
	State   string // e.g. "submitted", "working", "completed"
	Message *StatusMessage
}

// StatusMessage is an optional progress message attached to a task status.
type StatusMessage struct {
	Parts []Part
}

// EnvelopeFrom extracts the remote response envelope from an event, if any.
func EnvelopeFrom(e Event) (*Envelope, bool) {
	if e.Metadata == nil {
		return nil, false
	}
	env, ok := e.Metadata[MetaResponse].(*Envelope)
	if !ok || env == nil {
		return nil, false
	}
	return env, true
}

// ResponseText extracts the response text from an event. The remote error is
// checked first, then the remote response envelope (task artifacts, then the
// task status message, then message parts), then the event's own content.
func ResponseText(e Event) string {
	if errText, ok := metaString(e.Metadata, MetaError); ok {
		return errText
	}

	if env, ok := EnvelopeFrom(e); ok {
		switch env.Kind {
		case "task":
			if len(env.Artifacts) > 0 {
				return JoinedText(env.Artifacts[0].Parts)
			}
			if env.Status.Message != nil {
				return JoinedText(env.Status.Message.Parts)
			}
			return ""
		case "message":
			return JoinedText(env.Parts)
		}
	}

	return JoinedText(e.Parts)
}

// ThinkingText extracts reasoning text from an event. Remote response
// envelopes never carry thinking, so envelope events yield "".
func ThinkingText(e Event) string {
	if _, ok := EnvelopeFrom(e); ok {
		return ""
	}
	return ThoughtText(e.Parts)
}

// IsEmptySubmittedTask reports whether the event is a bookkeeping placeholder
// for a freshly submitted remote task: submitted state, no artifacts, and no
// status message. Such events carry no content and would duplicate context.
func IsEmptySubmittedTask(e Event) bool {
	env, ok := EnvelopeFrom(e)
	if !ok {
		return false
	}
	if env.Status.State != "submitted" {
		return false
	}
	if len(env.Artifacts) > 0 {
		return false
	}
	if env.Status.Message != nil {
		return false
	}
	return true
}

// MergeTaskEvents folds consecutive events from the same sub-task into a
// single event whose content is the concatenation of every text part in
// chronological order. The first event supplies author and metadata.
func MergeTaskEvents(events []Event) Event {
	if len(events) == 0 {
		return Event{}
	}

	merged := events[0]

	var texts []string
	for _, ev := range events {
		for _, part := range ev.Parts {
			if part == nil {
				continue
			}
			if text := part.PartText(); text != "" {
				texts = append(texts, text)
			}
		}
	}

	if len(texts) > 0 {
		merged.Parts = []Part{TextPart{Text: strings.Join(texts, "")}}
	}

	return merged
}
