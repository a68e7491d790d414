// Package stream folds a live sequence of partial response events into a
// single buffered answer for non-streaming callers.
package stream

import (
	"context"
	"strings"

	"warden/internal/event"
)

// BufferedResponse is the fully accumulated answer for one turn. Content and
// Thinking grow incrementally as chunks arrive and are finalized when the
// stream ends.
type BufferedResponse struct {
	Content  string
	Thinking string
}

// Chunk is one element of a turn's response stream. Done marks the terminal
// record; its event carries no content.
type Chunk struct {
	Event event.Event
	Done  bool
}

// Aggregator accumulates response and reasoning text in arrival order.
// Content is never reordered, truncated, or deduplicated here; history
// rendering handles its own deduplication.
type Aggregator struct {
	content  strings.Builder
	thinking strings.Builder
}

// Add folds one event into the buffers. Response text prefers the embedded
// remote envelope when present; thinking text is never taken from an
// envelope.
func (a *Aggregator) Add(ev event.Event) {
	if text := event.ResponseText(ev); text != "" {
		a.content.WriteString(text)
	}
	if thinking := event.ThinkingText(ev); thinking != "" {
		a.thinking.WriteString(thinking)
	}
}

// Response finalizes the accumulated buffers.
func (a *Aggregator) Response() BufferedResponse {
	return BufferedResponse{
		Content:  a.content.String(),
		Thinking: a.thinking.String(),
	}
}

// Collect drains a chunk stream into a buffered response. It stops at the
// terminal done chunk or when the channel closes. Cancelling ctx abandons the
// stream and returns the context error; partial results are not reused.
func Collect(ctx context.Context, chunks <-chan Chunk) (BufferedResponse, error) {
	var agg Aggregator

	for {
		select {
		case <-ctx.Done():
			return BufferedResponse{}, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return agg.Response(), nil
			}
			if chunk.Done {
				return agg.Response(), nil
			}
			agg.Add(chunk.Event)
		}
	}
}
