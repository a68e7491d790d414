// Package gateway runs the per-turn pipeline: gate the raw user input with
// guardrails, reduce the event log into a bounded context, hand it to the
// downstream responder, and fold the responder's stream into a buffered
// answer. All state is request-scoped; nothing is shared between turns.
package gateway

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"warden/internal/conversation"
	"warden/internal/event"
	"warden/internal/guardrails"
	"warden/internal/logging"
	"warden/internal/stream"
)

// BlockKind tags a message block handed to the responder so it can weight
// background context differently from the live request.
type BlockKind string

const (
	BlockKindUserMessage BlockKind = "user_message"
	BlockKindContext     BlockKind = "context"
)

// MessageBlock is one tagged unit of the downstream request.
type MessageBlock struct {
	Kind BlockKind
	Text string
}

// Responder is the downstream collaborator that answers the current turn.
// It receives tagged message blocks instead of raw history, plus the remote
// context identifier from the previous turn when one exists.
type Responder interface {
	Respond(ctx context.Context, blocks []MessageBlock, contextID string) (<-chan stream.Chunk, error)
}

// TurnResult is the outcome of one processed turn. When Blocked is true the
// response carries only the canned user-facing message.
type TurnResult struct {
	Decision guardrails.Decision
	Blocked  bool
	Response stream.BufferedResponse
}

// Gateway wires the guardrail orchestrator, event consolidation, context
// summarization, and the downstream responder into one turn pipeline.
type Gateway struct {
	agentName    string
	guard        *guardrails.Orchestrator
	consolidator *conversation.Consolidator
	summarizer   *conversation.Summarizer
	responder    Responder
	logger       logging.Logger
	tracer       trace.Tracer
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithLogger injects a logger.
func WithLogger(logger logging.Logger) Option {
	return func(g *Gateway) {
		g.logger = logging.OrNop(logger)
	}
}

// WithTracer injects a tracer for per-turn spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// New constructs a gateway. All collaborators are injected at construction;
// there are no lazily built globals.
func New(
	agentName string,
	guard *guardrails.Orchestrator,
	summarizer *conversation.Summarizer,
	responder Responder,
	opts ...Option,
) *Gateway {
	g := &Gateway{
		agentName:    agentName,
		guard:        guard,
		consolidator: conversation.NewConsolidator(agentName, nil),
		summarizer:   summarizer,
		responder:    responder,
		logger:       logging.NewComponentLogger("gateway"),
		tracer:       noop.NewTracerProvider().Tracer("warden"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.consolidator = conversation.NewConsolidator(agentName, g.logger)
	return g
}

// ProcessTurn runs the full pipeline and buffers the responder's stream.
func (g *Gateway) ProcessTurn(ctx context.Context, events []event.Event) (*TurnResult, error) {
	chunks, result, err := g.startTurn(ctx, events)
	if err != nil {
		return nil, err
	}
	if result.Blocked {
		return result, nil
	}

	response, err := stream.Collect(ctx, chunks)
	if err != nil {
		return nil, err
	}
	result.Response = response
	return result, nil
}

// ProcessTurnStream runs the pipeline but hands the raw chunk stream back to
// the caller. A blocked turn yields a nil stream and a result carrying the
// canned message.
func (g *Gateway) ProcessTurnStream(ctx context.Context, events []event.Event) (<-chan stream.Chunk, *TurnResult, error) {
	return g.startTurn(ctx, events)
}

// startTurn gates the input and dispatches the reduced context. It returns a
// live chunk stream unless the turn was blocked.
func (g *Gateway) startTurn(ctx context.Context, events []event.Event) (<-chan stream.Chunk, *TurnResult, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.turn")
	defer span.End()

	prompt := event.LatestUserText(events)
	if prompt == "" {
		g.logger.Warn("no user query found in event log")
	}

	decision := g.guard.Check(ctx, prompt)
	if message, blocked := guardrails.UserMessage(decision); blocked {
		return nil, &TurnResult{
			Decision: decision,
			Blocked:  true,
			Response: stream.BufferedResponse{Content: message},
		}, nil
	}

	merged := conversation.MergeTaskEvents(events)
	messages, contextID := g.consolidator.Consolidate(merged)
	block := g.summarizer.Summarize(ctx, messages)

	blocks := buildBlocks(prompt, block)

	chunks, err := g.responder.Respond(ctx, blocks, contextID)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch to responder: %w", err)
	}
	return chunks, &TurnResult{Decision: decision}, nil
}

// buildBlocks converts a context block into tagged responder input. The
// current turn comes first, background context after it.
func buildBlocks(prompt string, block conversation.ContextBlock) []MessageBlock {
	currentTurn := block.CurrentTurn
	if currentTurn == "" {
		currentTurn = prompt
	}

	var blocks []MessageBlock
	if currentTurn != "" {
		blocks = append(blocks, MessageBlock{Kind: BlockKindUserMessage, Text: currentTurn})
	}
	if block.Summary != "" {
		blocks = append(blocks, MessageBlock{
			Kind: BlockKindContext,
			Text: "For context:\n" + block.Summary,
		})
	}
	return blocks
}
