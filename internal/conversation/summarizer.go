package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warden/internal/llm"
	"warden/internal/logging"
	"warden/internal/observability"
)

// DefaultMinSummarizeChars is the history size below which summarization is
// skipped and the context is forwarded verbatim.
const DefaultMinSummarizeChars = 2000

// OutputDelimiter separates the history summary from the rewritten final
// user input in the collaborator's response.
const OutputDelimiter = "###USER INPUT###"

const historySeparator = "\n---\n"

// summarizationPrompt instructs the collaborator to compress the history while
// preserving every concrete identifier, and to rewrite the final input only
// when it contains an unresolved reference.
const summarizationPrompt = `You are compressing a multi-agent conversation for a downstream assistant.

CONVERSATION HISTORY:
%s

LAST USER INPUT:
%s

Your tasks:
1. Write a concise summary of the conversation history. Preserve every concrete identifier exactly as written: names, IDs, version numbers, error codes, file paths, commands.
2. If the last user input contains an unresolved reference (a pronoun, a demonstrative like "this"/"that", or words like "also", "again", "still"), rewrite it as a standalone request using the history. Otherwise return it unchanged.

OUTPUT FORMAT (important!):
<history summary>
` + OutputDelimiter + `
<final user input>`

// SummarizerCallError reports a failed or malformed summarization call. It is
// always recovered locally via the verbatim fallback, never surfaced to the
// end user.
type SummarizerCallError struct {
	Err error
}

func (e *SummarizerCallError) Error() string {
	return fmt.Sprintf("summarizer call: %v", e.Err)
}

func (e *SummarizerCallError) Unwrap() error {
	return e.Err
}

// ContextBlock is the bounded context handed to the downstream responder.
// Summary may be empty; CurrentTurn is always the last chronological user
// intent and is never summarized away. The two are tagged separately so the
// responder can weight them differently.
type ContextBlock struct {
	Summary     string
	CurrentTurn string
}

// Summarizer collapses long histories into a summary plus current turn. Short
// histories are forwarded verbatim without a collaborator call.
type Summarizer struct {
	client      llm.Client
	minChars    int
	callTimeout time.Duration
	logger      logging.Logger
	metrics     *observability.MetricsCollector
}

// SummarizerOption customizes a Summarizer.
type SummarizerOption func(*Summarizer)

// WithMinChars overrides the summarization threshold.
func WithMinChars(minChars int) SummarizerOption {
	return func(s *Summarizer) {
		if minChars > 0 {
			s.minChars = minChars
		}
	}
}

// WithSummarizerTimeout bounds the collaborator call.
func WithSummarizerTimeout(timeout time.Duration) SummarizerOption {
	return func(s *Summarizer) {
		if timeout > 0 {
			s.callTimeout = timeout
		}
	}
}

// WithSummarizerLogger injects a logger.
func WithSummarizerLogger(logger logging.Logger) SummarizerOption {
	return func(s *Summarizer) {
		s.logger = logging.OrNop(logger)
	}
}

// WithSummarizerMetrics injects a metrics collector.
func WithSummarizerMetrics(metrics *observability.MetricsCollector) SummarizerOption {
	return func(s *Summarizer) {
		s.metrics = metrics
	}
}

// NewSummarizer constructs a summarizer. A nil client forces the verbatim
// fallback path on every turn.
func NewSummarizer(client llm.Client, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		client:      client,
		minChars:    DefaultMinSummarizeChars,
		callTimeout: 30 * time.Second,
		logger:      logging.NewComponentLogger("summarizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize reduces the consolidated messages for one turn into a context
// block. Any collaborator failure degrades to the verbatim path; the turn
// never fails here.
func (s *Summarizer) Summarize(ctx context.Context, messages []Message) ContextBlock {
	if len(messages) == 0 {
		return ContextBlock{}
	}

	if !s.shouldSummarize(messages) {
		return verbatimBlock(messages)
	}

	if s.client == nil {
		s.logger.Debug("no summarization collaborator configured, using verbatim context")
		return verbatimBlock(messages)
	}

	last := messages[len(messages)-1]
	history := renderHistory(messages[:len(messages)-1])

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := s.client.Complete(callCtx, llm.CompletionRequest{
		Messages: []llm.Message{{
			Role:    "user",
			Content: fmt.Sprintf(summarizationPrompt, history, last.Text),
		}},
		Temperature: 0,
	})
	if err != nil {
		callErr := &SummarizerCallError{Err: err}
		s.logger.Error("%v, falling back to verbatim context", callErr)
		s.metrics.RecordSummarization(ctx, true)
		return verbatimBlock(messages)
	}

	block, ok := parseSummaryResponse(resp.Content)
	if !ok {
		s.logger.Warn("summarizer response missing %q delimiter, using raw response as current turn", OutputDelimiter)
	}
	if block.CurrentTurn == "" {
		s.metrics.RecordSummarization(ctx, true)
		return verbatimBlock(messages)
	}

	s.metrics.RecordSummarization(ctx, false)
	return block
}

// shouldSummarize applies the size gate: at least two messages and a history
// large enough that compression pays for the extra call.
func (s *Summarizer) shouldSummarize(messages []Message) bool {
	if len(messages) < 2 {
		return false
	}
	total := 0
	for _, msg := range messages {
		total += len(msg.Text)
	}
	return total >= s.minChars
}

// verbatimBlock marks the last message as the current turn and every prior
// message, rendered, as context.
func verbatimBlock(messages []Message) ContextBlock {
	last := messages[len(messages)-1]
	return ContextBlock{
		Summary:     renderHistory(messages[:len(messages)-1]),
		CurrentTurn: last.Text,
	}
}

func renderHistory(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	rendered := make([]string, len(messages))
	for i, msg := range messages {
		rendered[i] = msg.Render()
	}
	return strings.Join(rendered, historySeparator)
}

// parseSummaryResponse splits on the first delimiter occurrence. A missing
// delimiter degrades gracefully: the whole response becomes the current turn
// with no summary.
func parseSummaryResponse(content string) (ContextBlock, bool) {
	idx := strings.Index(content, OutputDelimiter)
	if idx < 0 {
		return ContextBlock{CurrentTurn: strings.TrimSpace(content)}, false
	}

	summary := strings.TrimSpace(content[:idx])
	currentTurn := strings.TrimSpace(content[idx+len(OutputDelimiter):])
	if currentTurn == "" {
		return ContextBlock{CurrentTurn: strings.TrimSpace(content)}, false
	}

	return ContextBlock{Summary: summary, CurrentTurn: currentTurn}, true
}
