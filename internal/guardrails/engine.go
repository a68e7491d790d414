package guardrails

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"warden/internal/llm"
	"warden/internal/logging"
	"warden/internal/observability"
)

// defaultTopLogProbs covers the plausible casings and sub-token splits of the
// yes/no label tokens.
const defaultTopLogProbs = 5

const defaultCallTimeout = 30 * time.Second

// ClassifierCallError reports a failed classifier call for one category.
type ClassifierCallError struct {
	Category string
	Err      error
}

func (e *ClassifierCallError) Error() string {
	return fmt.Sprintf("classifier call for %q: %v", e.Category, e.Err)
}

func (e *ClassifierCallError) Unwrap() error {
	return e.Err
}

// CategoryResult pairs a risk category with its verdict or its failure.
// Exactly one of Verdict and Err is set.
type CategoryResult struct {
	Category RiskCategory
	Verdict  *RiskVerdict
	Err      error
}

// Engine issues one classifier call per configured risk category. Calls run
// concurrently so guardrail latency is bounded by the slowest single call.
type Engine struct {
	client      llm.Client
	categories  []RiskCategory
	topLogProbs int
	structured  bool
	callTimeout time.Duration
	logger      logging.Logger
	metrics     *observability.MetricsCollector
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithCallTimeout bounds each classifier call.
func WithCallTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.callTimeout = timeout
		}
	}
}

// WithTopLogProbs sets the number of alternative tokens requested per step.
func WithTopLogProbs(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topLogProbs = k
		}
	}
}

// WithStructuredOutput switches the engine to JSON verdicts from a
// general-purpose guardrail model instead of logprob-scored labels.
func WithStructuredOutput(enabled bool) EngineOption {
	return func(e *Engine) {
		e.structured = enabled
	}
}

// WithEngineLogger injects a logger.
func WithEngineLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logging.OrNop(logger)
	}
}

// WithEngineMetrics injects a metrics collector.
func WithEngineMetrics(metrics *observability.MetricsCollector) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// NewEngine constructs a scoring engine over a fixed category list.
func NewEngine(client llm.Client, categories []RiskCategory, opts ...EngineOption) *Engine {
	engine := &Engine{
		client:      client,
		categories:  categories,
		topLogProbs: defaultTopLogProbs,
		callTimeout: defaultCallTimeout,
		logger:      logging.NewComponentLogger("guardrails"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Categories returns the configured category list in order.
func (e *Engine) Categories() []RiskCategory {
	return e.categories
}

// Score runs one classifier call per category, concurrently, and returns one
// result per category in configuration order. A failed call is captured in
// its own slot and never cancels or blocks the sibling calls; no call is
// retried. Cancelling ctx cancels the in-flight calls.
func (e *Engine) Score(ctx context.Context, prompt string) []CategoryResult {
	results := make([]CategoryResult, len(e.categories))

	var g errgroup.Group
	for i, category := range e.categories {
		results[i].Category = category

		g.Go(func() error {
			verdict, err := e.scoreCategory(ctx, category, prompt)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Verdict = verdict
			return nil
		})
	}
	// Worker closures never return an error; Wait is a pure fan-in barrier.
	_ = g.Wait()

	return results
}

func (e *Engine) scoreCategory(ctx context.Context, category RiskCategory, prompt string) (*RiskVerdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	req := llm.CompletionRequest{Temperature: 0}
	if e.structured {
		req.Messages = structuredMessages(category, prompt)
		req.JSONOutput = true
	} else {
		req.Messages = classifierMessages(category, prompt)
		req.TopLogProbs = e.topLogProbs
	}

	start := time.Now()
	resp, err := e.client.Complete(callCtx, req)
	e.metrics.RecordClassifierCall(ctx, category.Name, time.Since(start), err)

	if err != nil {
		e.logger.Warn("classifier call failed for %q: %v", category.Name, err)
		return nil, &ClassifierCallError{Category: category.Name, Err: err}
	}

	verdict, err := e.parseResponse(resp)
	if err != nil {
		e.logger.Warn("classifier response unparsable for %q: %v", category.Name, err)
		return nil, err
	}

	e.logger.Debug("category %q: risky=%v safe=%.4f risky=%.4f",
		category.Name, verdict.IsRisky, verdict.SafeConfidence, verdict.RiskyConfidence)
	return &verdict, nil
}

func (e *Engine) parseResponse(resp *llm.CompletionResponse) (RiskVerdict, error) {
	if !e.structured {
		return ParseVerdict(resp)
	}
	if resp == nil {
		return RiskVerdict{}, &ParseError{Reason: "nil response"}
	}
	structured, err := ParseStructuredVerdict(resp.Content)
	if err != nil {
		return RiskVerdict{}, err
	}
	return structured.Verdict(), nil
}
