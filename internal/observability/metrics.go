package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port" mapstructure:"prometheus_port"`
}

// MetricsCollector manages the gateway metrics.
type MetricsCollector struct {
	meter metric.Meter

	// Guardrail metrics
	guardrailChecks    metric.Int64Counter
	guardrailBlocked   metric.Int64Counter
	classifierCalls    metric.Int64Counter
	classifierFailures metric.Int64Counter
	classifierLatency  metric.Float64Histogram

	// Context metrics
	summarizerCalls     metric.Int64Counter
	summarizerFallbacks metric.Int64Counter

	prometheusServer *http.Server
}

// NewMetricsCollector creates a metrics collector. When disabled it returns a
// collector whose instruments are nil and whose record methods are no-ops.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("warden")

	guardrailChecks, err := meter.Int64Counter(
		"warden.guardrail.checks.total",
		metric.WithDescription("Total number of guardrail checks"),
	)
	if err != nil {
		return nil, err
	}

	guardrailBlocked, err := meter.Int64Counter(
		"warden.guardrail.blocked.total",
		metric.WithDescription("Turns blocked by guardrails, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	classifierCalls, err := meter.Int64Counter(
		"warden.classifier.calls.total",
		metric.WithDescription("Safety classifier calls, by risk category"),
	)
	if err != nil {
		return nil, err
	}

	classifierFailures, err := meter.Int64Counter(
		"warden.classifier.failures.total",
		metric.WithDescription("Safety classifier failures, by risk category"),
	)
	if err != nil {
		return nil, err
	}

	classifierLatency, err := meter.Float64Histogram(
		"warden.classifier.latency.seconds",
		metric.WithDescription("Safety classifier call latency"),
	)
	if err != nil {
		return nil, err
	}

	summarizerCalls, err := meter.Int64Counter(
		"warden.summarizer.calls.total",
		metric.WithDescription("Context summarization calls"),
	)
	if err != nil {
		return nil, err
	}

	summarizerFallbacks, err := meter.Int64Counter(
		"warden.summarizer.fallbacks.total",
		metric.WithDescription("Summarizations that fell back to verbatim context"),
	)
	if err != nil {
		return nil, err
	}

	collector := &MetricsCollector{
		meter:               meter,
		guardrailChecks:     guardrailChecks,
		guardrailBlocked:    guardrailBlocked,
		classifierCalls:     classifierCalls,
		classifierFailures:  classifierFailures,
		classifierLatency:   classifierLatency,
		summarizerCalls:     summarizerCalls,
		summarizerFallbacks: summarizerFallbacks,
	}

	if config.PrometheusPort > 0 {
		collector.startPrometheusServer(config.PrometheusPort)
	}

	return collector, nil
}

func (m *MetricsCollector) startPrometheusServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = m.prometheusServer.ListenAndServe()
	}()
}

// RecordGuardrailCheck records one completed guardrail decision.
func (m *MetricsCollector) RecordGuardrailCheck(ctx context.Context, outcome string) {
	if m == nil || m.guardrailChecks == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.guardrailChecks.Add(ctx, 1, attrs)
	if outcome != "SAFE" {
		m.guardrailBlocked.Add(ctx, 1, attrs)
	}
}

// RecordClassifierCall records one classifier call with its latency and result.
func (m *MetricsCollector) RecordClassifierCall(ctx context.Context, category string, duration time.Duration, err error) {
	if m == nil || m.classifierCalls == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("category", category))
	m.classifierCalls.Add(ctx, 1, attrs)
	m.classifierLatency.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.classifierFailures.Add(ctx, 1, attrs)
	}
}

// RecordSummarization records one summarizer invocation.
func (m *MetricsCollector) RecordSummarization(ctx context.Context, fellBack bool) {
	if m == nil || m.summarizerCalls == nil {
		return
	}
	m.summarizerCalls.Add(ctx, 1)
	if fellBack {
		m.summarizerFallbacks.Add(ctx, 1)
	}
}

// Shutdown stops the Prometheus scrape server if one is running.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.prometheusServer == nil {
		return nil
	}
	return m.prometheusServer.Shutdown(ctx)
}
