package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector holds the briefing pipeline instruments.
type MetricsCollector struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry

	sourceFetches  metric.Int64Counter
	sourceLatency  metric.Float64Histogram
	stageRuns      metric.Int64Counter
	stageLatency   metric.Float64Histogram
	promptTokens   metric.Int64Counter
	briefingRuns   metric.Int64Counter
	deliveryCounts metric.Int64Counter

	testHooks MetricsTestHooks
}

// MetricsTestHooks exposes callbacks that tests can use to assert
// instrumentation without scraping the exporter.
type MetricsTestHooks struct {
	SourceFetch  func(source, status string, duration time.Duration)
	StageRun     func(stage, status string, duration time.Duration)
	PromptTokens func(stage string, tokens int)
}

// SetTestHooks registers callbacks invoked whenever the matching metric is
// recorded. Hooks fire even when the collector is disabled.
func (m *MetricsCollector) SetTestHooks(hooks MetricsTestHooks) {
	if m == nil {
		return
	}
	m.testHooks = hooks
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// NewMetricsCollector creates a collector exporting to a private Prometheus
// registry. A disabled config yields a collector whose record methods are
// no-ops.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("morningbrief")

	m := &MetricsCollector{provider: provider, registry: registry}

	if m.sourceFetches, err = meter.Int64Counter(
		"morningbrief.source.fetches",
		metric.WithDescription("Data source fetches by outcome"),
		metric.WithUnit("{fetch}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create source_fetches counter: %w", err)
	}

	if m.sourceLatency, err = meter.Float64Histogram(
		"morningbrief.source.latency",
		metric.WithDescription("Data source fetch latency in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create source_latency histogram: %w", err)
	}

	if m.stageRuns, err = meter.Int64Counter(
		"morningbrief.stage.runs",
		metric.WithDescription("Briefing stage executions by outcome"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stage_runs counter: %w", err)
	}

	if m.stageLatency, err = meter.Float64Histogram(
		"morningbrief.stage.latency",
		metric.WithDescription("Briefing stage latency in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stage_latency histogram: %w", err)
	}

	if m.promptTokens, err = meter.Int64Counter(
		"morningbrief.llm.prompt_tokens",
		metric.WithDescription("Prompt tokens sent to the language model"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create prompt_tokens counter: %w", err)
	}

	if m.briefingRuns, err = meter.Int64Counter(
		"morningbrief.briefing.runs",
		metric.WithDescription("Complete briefing runs by outcome"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create briefing_runs counter: %w", err)
	}

	if m.deliveryCounts, err = meter.Int64Counter(
		"morningbrief.delivery.sends",
		metric.WithDescription("Briefing deliveries by outcome"),
		metric.WithUnit("{send}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create delivery_sends counter: %w", err)
	}

	return m, nil
}

// Handler serves the Prometheus scrape endpoint. A disabled collector
// answers 404.
func (m *MetricsCollector) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// RecordSourceFetch records one data source fetch.
func (m *MetricsCollector) RecordSourceFetch(ctx context.Context, source, status string, duration time.Duration) {
	if m == nil {
		return
	}
	if m.testHooks.SourceFetch != nil {
		m.testHooks.SourceFetch(source, status, duration)
	}
	if m.sourceFetches == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.String("status", status),
	}
	m.sourceFetches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sourceLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("source", source)))
}

// RecordStageRun records one orchestrator stage.
func (m *MetricsCollector) RecordStageRun(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	if m.testHooks.StageRun != nil {
		m.testHooks.StageRun(stage, status, duration)
	}
	if m.stageRuns == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("stage", stage),
		attribute.String("status", status),
	}
	m.stageRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stageLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordPromptTokens records the size of a composed prompt.
func (m *MetricsCollector) RecordPromptTokens(ctx context.Context, stage string, tokens int) {
	if m == nil {
		return
	}
	if m.testHooks.PromptTokens != nil {
		m.testHooks.PromptTokens(stage, tokens)
	}
	if m.promptTokens == nil {
		return
	}
	m.promptTokens.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordBriefingRun records a finished pipeline run.
func (m *MetricsCollector) RecordBriefingRun(ctx context.Context, status string) {
	if m == nil || m.briefingRuns == nil {
		return
	}
	m.briefingRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordDelivery records an email delivery attempt.
func (m *MetricsCollector) RecordDelivery(ctx context.Context, status string) {
	if m == nil || m.deliveryCounts == nil {
		return
	}
	m.deliveryCounts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
