package guardrails

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"warden/internal/logging"
	"warden/internal/observability"
)

// Outcome is the final gate decision for a turn.
type Outcome string

const (
	// OutcomeSafe allows the turn to proceed.
	OutcomeSafe Outcome = "SAFE"
	// OutcomeUnsafe blocks the turn on a risk violation.
	OutcomeUnsafe Outcome = "UNSAFE"
	// OutcomeUnavailable blocks the turn because no classifier produced a
	// verdict (fail-closed on total outage).
	OutcomeUnavailable Outcome = "UNAVAILABLE"
)

// Decision is the orchestrator's verdict for one turn. Callers branch on the
// Outcome tag; the decision is data, never an error. Created once per turn
// and not mutated afterwards.
type Decision struct {
	Outcome    Outcome
	Dominant   *RiskCategory
	Confidence float64
	Reasoning  string
}

// Blocked reports whether the turn must not proceed.
func (d Decision) Blocked() bool {
	return d.Outcome != OutcomeSafe
}

// Orchestrator applies thresholds to scoring results and produces the
// per-turn allow/block decision. When disabled it short-circuits to SAFE
// without issuing any classifier calls.
type Orchestrator struct {
	engine  *Engine
	enabled bool
	cache   *lru.Cache[string, Decision]
	logger  logging.Logger
	metrics *observability.MetricsCollector
	tracer  trace.Tracer
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithEnabled toggles the guardrail check globally.
func WithEnabled(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.enabled = enabled
	}
}

// WithDecisionCache bounds a cache of decisions keyed by exact prompt.
// Size <= 0 disables caching.
func WithDecisionCache(size int) OrchestratorOption {
	return func(o *Orchestrator) {
		if size <= 0 {
			o.cache = nil
			return
		}
		cache, err := lru.New[string, Decision](size)
		if err != nil {
			return
		}
		o.cache = cache
	}
}

// WithLogger injects a logger.
func WithLogger(logger logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logging.OrNop(logger)
	}
}

// WithMetrics injects a metrics collector.
func WithMetrics(metrics *observability.MetricsCollector) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = metrics
	}
}

// WithTracer injects a tracer for per-check spans.
func WithTracer(tracer trace.Tracer) OrchestratorOption {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// NewOrchestrator constructs a guardrail orchestrator. Enabled by default.
func NewOrchestrator(engine *Engine, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		engine:  engine,
		enabled: true,
		logger:  logging.NewComponentLogger("guardrails"),
		tracer:  noop.NewTracerProvider().Tracer("warden"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enabled reports whether checks are active.
func (o *Orchestrator) Enabled() bool {
	return o.enabled
}

// Check scores the prompt against every configured risk category and decides
// whether the turn may proceed. It waits for every dispatched call before
// deciding so a later, more severe violation is never missed.
func (o *Orchestrator) Check(ctx context.Context, prompt string) Decision {
	if !o.enabled {
		o.logger.Info("guardrails disabled via config - skipping safety checks")
		return Decision{Outcome: OutcomeSafe, Reasoning: "guardrails disabled"}
	}

	if prompt == "" {
		return Decision{Outcome: OutcomeSafe, Reasoning: "empty prompt"}
	}

	if o.cache != nil {
		if cached, ok := o.cache.Get(prompt); ok {
			o.logger.Debug("guardrail decision cache hit")
			return cached
		}
	}

	ctx, span := o.tracer.Start(ctx, "guardrails.check")
	defer span.End()

	results := o.engine.Score(ctx, prompt)
	decision := decide(results)

	span.SetAttributes(
		attribute.String("guardrails.outcome", string(decision.Outcome)),
		attribute.Float64("guardrails.confidence", decision.Confidence),
	)
	o.metrics.RecordGuardrailCheck(ctx, string(decision.Outcome))

	switch decision.Outcome {
	case OutcomeSafe:
		o.logger.Info("guardrails passed")
	case OutcomeUnsafe:
		o.logger.Warn("query blocked by guardrails: %s", decision.Reasoning)
	case OutcomeUnavailable:
		o.logger.Error("guardrails unavailable: %s", decision.Reasoning)
	}

	// An outage verdict reflects classifier availability, not the prompt;
	// caching it would keep blocking after the service recovers.
	if o.cache != nil && decision.Outcome != OutcomeUnavailable {
		o.cache.Add(prompt, decision)
	}
	return decision
}

// decide partitions results into successes and failures, filters violations
// by threshold, and picks the dominant violation by highest risky confidence
// (ties broken by earliest configured category).
func decide(results []CategoryResult) Decision {
	successes := 0
	failures := 0
	var dominant *CategoryResult

	for i := range results {
		result := &results[i]
		if result.Err != nil {
			failures++
			continue
		}
		successes++

		verdict := result.Verdict
		if !verdict.IsRisky || verdict.RiskyConfidence < result.Category.Threshold {
			continue
		}
		// Strict comparison keeps the earliest category on ties.
		if dominant == nil || verdict.RiskyConfidence > dominant.Verdict.RiskyConfidence {
			dominant = result
		}
	}

	if successes == 0 && failures > 0 {
		return Decision{
			Outcome:   OutcomeUnavailable,
			Reasoning: fmt.Sprintf("no classifier verdicts obtained (%d calls failed)", failures),
		}
	}

	if dominant != nil {
		category := dominant.Category
		return Decision{
			Outcome:    OutcomeUnsafe,
			Dominant:   &category,
			Confidence: dominant.Verdict.RiskyConfidence,
			Reasoning: fmt.Sprintf("category %q flagged with confidence %.4f (threshold %.2f)",
				category.Name, dominant.Verdict.RiskyConfidence, category.Threshold),
		}
	}

	return Decision{Outcome: OutcomeSafe, Reasoning: "no category exceeded its threshold"}
}
