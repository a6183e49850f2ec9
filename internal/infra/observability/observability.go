package observability

import (
	"context"
	"fmt"
)

// Observability bundles the process logger, metrics and tracer.
type Observability struct {
	Logger  *Logger
	Metrics *MetricsCollector
	Tracer  *TracerProvider
	config  Config
}

// New builds every component from config. Metrics and tracing failures are
// logged and replaced by no-op components so a broken exporter never stops
// a briefing.
func New(config Config) (*Observability, error) {
	logger := NewLogger(LogConfig{
		Level:  config.Logging.Level,
		Format: config.Logging.Format,
	})

	metrics, err := NewMetricsCollector(config.Metrics)
	if err != nil {
		logger.Error("Failed to initialize metrics", "error", err)
		metrics = &MetricsCollector{}
	}

	tracer, err := NewTracerProvider(config.Tracing)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		tracer = NoopTracer()
	}

	logger.Debug("Observability initialized",
		"log_level", config.Logging.Level,
		"metrics_enabled", config.Metrics.Enabled,
		"tracing_enabled", config.Tracing.Enabled,
	)

	return &Observability{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
		config:  config,
	}, nil
}

// Shutdown flushes metrics and traces. Both are attempted; the first error
// is returned.
func (o *Observability) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := o.Metrics.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown metrics: %w", err)
	}
	if err := o.Tracer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shutdown tracing: %w", err)
	}
	return firstErr
}

// Config returns the configuration the bundle was built from.
func (o *Observability) Config() Config {
	return o.config
}
