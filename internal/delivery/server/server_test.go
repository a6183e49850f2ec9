package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morningbrief/internal/app/aggregate"
	"morningbrief/internal/app/pipeline"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/observability"
	brieferrors "morningbrief/internal/shared/errors"
)

type fakeRunner struct {
	runErr    error
	delivered []bool
}

func (f *fakeRunner) Window() (briefing.TimeWindow, error) {
	return briefing.NewWindow(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), time.UTC, 1)
}

func (f *fakeRunner) Snapshot(context.Context) (briefing.Snapshot, aggregate.Report, error) {
	snapshot := briefing.EmptySnapshot()
	snapshot.Schedule.Tasks = []briefing.Item{{Name: "Plan sprint"}}
	report := aggregate.Report{Degraded: []*brieferrors.DegradedError{{Category: "fitness", Err: errors.New("401")}}}
	return snapshot, report, nil
}

func (f *fakeRunner) Run(_ context.Context, deliver bool) (pipeline.Result, error) {
	f.delivered = append(f.delivered, deliver)
	if f.runErr != nil {
		return pipeline.Result{}, f.runErr
	}
	window, _ := f.Window()
	return pipeline.Result{
		Window:    window,
		Delivered: deliver,
		Briefing: briefing.Briefing{Groups: []briefing.SectionGroup{{
			Stage: briefing.StageSchedule,
			Title: "Schedule Section",
			Response: briefing.SectionedResponse{Sections: []briefing.Section{
				{ID: "daily_schedule", Content: `<div id="daily_schedule">09:00 standup</div>`, Present: true},
				{ID: "suggestions"},
			}},
		}}},
	}, nil
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := New(Config{}, &fakeRunner{}, nil, nil, nil)
	rec := do(t, srv, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSnapshotEndpoint(t *testing.T) {
	srv := New(Config{}, &fakeRunner{}, nil, nil, nil)
	rec := do(t, srv, http.MethodGet, "/v1/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Window   windowView        `json:"window"`
		Snapshot briefing.Snapshot `json:"snapshot"`
		Degraded []string          `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UTC", body.Window.Timezone)
	assert.Equal(t, "2024-05-01T00:00:00Z", body.Window.Start)
	assert.Equal(t, []string{"fitness"}, body.Degraded)
	require.Len(t, body.Snapshot.Schedule.Tasks, 1)
	assert.Equal(t, "Plan sprint", body.Snapshot.Schedule.Tasks[0].Name)
}

func TestBriefingEndpoint(t *testing.T) {
	runner := &fakeRunner{}
	srv := New(Config{RecipientName: "Sam"}, runner, nil, nil, nil)

	rec := do(t, srv, http.MethodPost, "/v1/briefings?deliver=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []bool{true}, runner.delivered)

	var body struct {
		Groups    []briefing.SectionGroup `json:"groups"`
		Delivered bool                    `json:"delivered"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Delivered)
	require.Len(t, body.Groups, 1)
	content, present := body.Groups[0].Response.Get("daily_schedule")
	assert.True(t, present)
	assert.Contains(t, content, "09:00 standup")
	_, present = body.Groups[0].Response.Get("suggestions")
	assert.False(t, present)

	rec = do(t, srv, http.MethodPost, "/v1/briefings?format=html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Morning Briefing for Sam")
	assert.Equal(t, []bool{true, false}, runner.delivered)
}

func TestBriefingEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
		status int
	}{
		{"bad flag", nil, "/v1/briefings?deliver=maybe", http.StatusBadRequest},
		{"busy", pipeline.ErrRunInProgress, "/v1/briefings", http.StatusConflict},
		{"stage failure", &brieferrors.StageError{Stage: "weather", Err: errors.New("503")}, "/v1/briefings", http.StatusBadGateway},
		{"other", errors.New("window: location is required"), "/v1/briefings", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Config{}, &fakeRunner{runErr: tt.err}, nil, nil, nil)
			rec := do(t, srv, http.MethodPost, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics, err := observability.NewMetricsCollector(observability.MetricsConfig{Enabled: true})
	require.NoError(t, err)
	metrics.RecordBriefingRun(context.Background(), "ok")

	srv := New(Config{}, &fakeRunner{}, metrics, nil, nil)
	rec := do(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "morningbrief_briefing_runs")
}
