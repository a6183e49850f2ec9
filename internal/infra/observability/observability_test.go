package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledMetricsAreNoops(t *testing.T) {
	m, err := NewMetricsCollector(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordSourceFetch(context.Background(), "weather", "ok", time.Second)
		m.RecordStageRun(context.Background(), "weather", "ok", time.Second)
		m.RecordPromptTokens(context.Background(), "weather", 10)
		m.RecordBriefingRun(context.Background(), "ok")
		m.RecordDelivery(context.Background(), "ok")
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var m *MetricsCollector
	assert.NotPanics(t, func() {
		m.RecordSourceFetch(context.Background(), "planner", "error", 0)
		_ = m.Shutdown(context.Background())
	})
}

func TestMetricsExposedThroughHandler(t *testing.T) {
	m, err := NewMetricsCollector(MetricsConfig{Enabled: true})
	require.NoError(t, err)
	defer func() { _ = m.Shutdown(context.Background()) }()

	m.RecordSourceFetch(context.Background(), "weather", "ok", 150*time.Millisecond)
	m.RecordStageRun(context.Background(), "fitness", "error", time.Second)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "morningbrief_source_fetches")
	assert.Contains(t, text, `source="weather"`)
	assert.Contains(t, text, "morningbrief_stage_runs")
	assert.Contains(t, text, `stage="fitness"`)
}

func TestTestHooksFireWithoutExporter(t *testing.T) {
	m := &MetricsCollector{}
	var stages []string
	m.SetTestHooks(MetricsTestHooks{
		StageRun: func(stage, status string, _ time.Duration) {
			stages = append(stages, stage+":"+status)
		},
	})

	m.RecordStageRun(context.Background(), "schedule", "ok", time.Millisecond)
	assert.Equal(t, []string{"schedule:ok"}, stages)
}

func TestNewTracerProviderDisabledIsNoop(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{Enabled: false})
	require.NoError(t, err)

	ctx, span := tp.StartSpan(context.Background(), SpanStageRun)
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	EndSpan(span, errors.New("boom"))
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracerProvider(TracingConfig{Enabled: true, Exporter: "jaeger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter")
}

func TestLoggerLevelsAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})

	logger.Info("hidden")
	logger.With("component", "planner").Warn("shown", "page", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"component":"planner"`)
	assert.Contains(t, out, `"page":2`)
}
