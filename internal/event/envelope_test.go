package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func taskEvent(state string, artifacts []Artifact, status *StatusMessage) Event {
	return Event{
		Author: "researcher",
		Metadata: map[string]any{
			MetaResponse: &Envelope{
				Kind:      "task",
				Artifacts: artifacts,
				Status:    TaskStatus{State: state, Message: status},
			},
		},
	}
}

func TestResponseTextPrefersRemoteError(t *testing.T) {
	ev := taskEvent("failed", []Artifact{{Parts: []Part{TextPart{Text: "partial"}}}}, nil)
	ev.Metadata[MetaError] = "remote agent crashed"

	assert.Equal(t, "remote agent crashed", ResponseText(ev))
}

func TestResponseTextTaskArtifacts(t *testing.T) {
	ev := taskEvent("completed", []Artifact{
		{Parts: []Part{TextPart{Text: "answer "}, TextPart{Text: "body"}}},
		{Parts: []Part{TextPart{Text: "ignored second artifact"}}},
	}, nil)

	assert.Equal(t, "answer body", ResponseText(ev))
}

func TestResponseTextTaskStatusMessage(t *testing.T) {
	ev := taskEvent("working", nil, &StatusMessage{Parts: []Part{TextPart{Text: "still digging"}}})
	assert.Equal(t, "still digging", ResponseText(ev))
}

func TestResponseTextMessageEnvelope(t *testing.T) {
	ev := Event{
		Author: "researcher",
		Parts:  []Part{TextPart{Text: "local fallback"}},
		Metadata: map[string]any{
			MetaResponse: &Envelope{
				Kind:  "message",
				Parts: []Part{TextPart{Text: "remote reply"}},
			},
		},
	}

	assert.Equal(t, "remote reply", ResponseText(ev))
}

func TestResponseTextFallsBackToOwnParts(t *testing.T) {
	ev := Event{
		Author: "researcher",
		Parts:  []Part{TextPart{Text: "plain "}, ThoughtPart{Text: "hidden"}, TextPart{Text: "text"}},
	}

	assert.Equal(t, "plain text", ResponseText(ev))
}

// Envelopes never carry reasoning, so thinking extraction ignores them even
// when the event's own parts contain thoughts.
func TestThinkingTextSkipsEnvelopeEvents(t *testing.T) {
	withEnvelope := taskEvent("completed", nil, nil)
	withEnvelope.Parts = []Part{ThoughtPart{Text: "should not leak"}}
	assert.Empty(t, ThinkingText(withEnvelope))

	plain := Event{Parts: []Part{ThoughtPart{Text: "step one. "}, TextPart{Text: "answer"}, ThoughtPart{Text: "step two."}}}
	assert.Equal(t, "step one. step two.", ThinkingText(plain))
}

func TestIsEmptySubmittedTask(t *testing.T) {
	assert.True(t, IsEmptySubmittedTask(taskEvent("submitted", nil, nil)))

	// Any payload disqualifies the placeholder.
	assert.False(t, IsEmptySubmittedTask(
		taskEvent("submitted", []Artifact{{Parts: []Part{TextPart{Text: "x"}}}}, nil)))
	assert.False(t, IsEmptySubmittedTask(
		taskEvent("submitted", nil, &StatusMessage{Parts: []Part{TextPart{Text: "queued"}}})))
	assert.False(t, IsEmptySubmittedTask(taskEvent("working", nil, nil)))
	assert.False(t, IsEmptySubmittedTask(Event{Author: "user", Parts: []Part{TextPart{Text: "hi"}}}))
}

func TestMergeTaskEventsConcatenatesChronologically(t *testing.T) {
	events := []Event{
		{Author: "researcher", Parts: []Part{TextPart{Text: "The answer"}}, Metadata: map[string]any{MetaTaskID: "t1"}},
		{Author: "researcher", Parts: []Part{TextPart{Text: " is"}}},
		{Author: "researcher", Parts: []Part{ThoughtPart{Text: " (thinking)"}, TextPart{Text: " 42."}}},
	}

	merged := MergeTaskEvents(events)

	assert.Equal(t, "researcher", merged.Author)
	taskID, ok := merged.TaskID()
	assert.True(t, ok)
	assert.Equal(t, "t1", taskID)
	assert.Equal(t, "The answer is (thinking) 42.", JoinedText(merged.Parts))
}

func TestMergeTaskEventsEmpty(t *testing.T) {
	merged := MergeTaskEvents(nil)
	assert.Empty(t, merged.Author)
	assert.Empty(t, merged.Parts)
}

func TestLatestUserText(t *testing.T) {
	events := []Event{
		{Author: UserAuthor, Parts: []Part{TextPart{Text: "first question"}}},
		{Author: "assistant", Parts: []Part{TextPart{Text: "reply"}}},
		{Author: UserAuthor, Parts: []Part{TextPart{Text: "second question"}}},
		{Author: UserAuthor}, // empty placeholder
	}

	assert.Equal(t, "second question", LatestUserText(events))
	assert.Empty(t, LatestUserText(nil))
}
