package fitness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/shared/logging"
)

func weekWindow(t *testing.T) briefing.TimeWindow {
	t.Helper()
	window, err := briefing.NewWindow(time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC), time.UTC, 1)
	require.NoError(t, err)
	return window
}

type summaryServer struct {
	mu     sync.Mutex
	calls  map[string]int
	fail   map[string]bool
	bodies map[string]string
}

func (s *summaryServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/usersummary-service/usersummary/daily/"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		day := r.URL.Query().Get("calendarDate")

		s.mu.Lock()
		s.calls[day]++
		fail := s.fail[day]
		body, ok := s.bodies[day]
		s.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !ok {
			body = `{"totalSteps": 8000, "totalDistanceMeters": 5000, "sleepingSeconds": 27000}`
		}
		_, _ = w.Write([]byte(body))
	}
}

func newServerClient(t *testing.T, s *summaryServer, cacheSize int) *Client {
	t.Helper()
	server := httptest.NewServer(s.handler(t))
	t.Cleanup(server.Close)
	return New(Config{BaseURL: server.URL, Token: "tok", DisplayName: "runner", CacheSize: cacheSize}, server.Client(), logging.Nop())
}

func TestFetchFitnessCoversSevenDaysBackward(t *testing.T) {
	srv := &summaryServer{calls: map[string]int{}, fail: map[string]bool{}}
	client := newServerClient(t, srv, 0)

	result, err := client.FetchFitness(context.Background(), weekWindow(t))
	require.NoError(t, err)

	require.Len(t, result, 7)
	for _, day := range []string{"2024-03-10", "2024-03-09", "2024-03-04"} {
		snapshot, ok := result[day]
		require.True(t, ok, day)
		assert.Equal(t, day, snapshot.Date)
		require.NotNil(t, snapshot.TotalDistanceKilometers)
		assert.Equal(t, 5.0, *snapshot.TotalDistanceKilometers)
		require.NotNil(t, snapshot.SleepDurationHours)
		assert.Equal(t, 7.5, *snapshot.SleepDurationHours)
	}
	_, ok := result["2024-03-03"]
	assert.False(t, ok)
}

func TestFetchFitnessIsolatesFailedDay(t *testing.T) {
	srv := &summaryServer{calls: map[string]int{}, fail: map[string]bool{"2024-03-08": true}}
	client := newServerClient(t, srv, 0)

	result, err := client.FetchFitness(context.Background(), weekWindow(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-03-08")

	require.Len(t, result, 7)
	assert.Equal(t, briefing.FitnessSnapshot{Date: "2024-03-08"}, result["2024-03-08"])

	populated := 0
	for day, snapshot := range result {
		if day == "2024-03-08" {
			continue
		}
		require.NotNil(t, snapshot.TotalSteps, day)
		assert.Equal(t, 8000.0, *snapshot.TotalSteps)
		populated++
	}
	assert.Equal(t, 6, populated)
}

func TestFetchFitnessCachesSettledDaysOnly(t *testing.T) {
	srv := &summaryServer{calls: map[string]int{}, fail: map[string]bool{}}
	client := newServerClient(t, srv, 16)
	window := weekWindow(t)

	_, err := client.FetchFitness(context.Background(), window)
	require.NoError(t, err)
	_, err = client.FetchFitness(context.Background(), window)
	require.NoError(t, err)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, 2, srv.calls["2024-03-10"], "today must be refetched")
	assert.Equal(t, 2, srv.calls["2024-03-09"], "yesterday must be refetched")
	assert.Equal(t, 1, srv.calls["2024-03-08"])
	assert.Equal(t, 1, srv.calls["2024-03-04"])
	assert.Equal(t, 5, client.cache.len())
}

func TestFetchFitnessSeesLateSyncedDays(t *testing.T) {
	srv := &summaryServer{
		calls:  map[string]int{},
		fail:   map[string]bool{},
		bodies: map[string]string{"2024-03-09": `{}`, "2024-03-06": `{}`},
	}
	client := newServerClient(t, srv, 16)
	window := weekWindow(t)

	first, err := client.FetchFitness(context.Background(), window)
	require.NoError(t, err)
	assert.Nil(t, first["2024-03-09"].TotalSteps)
	assert.Nil(t, first["2024-03-06"].TotalSteps)

	srv.mu.Lock()
	srv.bodies = map[string]string{"2024-03-09": `{"totalSteps": 9100}`, "2024-03-06": `{"totalSteps": 4200}`}
	srv.mu.Unlock()

	second, err := client.FetchFitness(context.Background(), window)
	require.NoError(t, err)
	require.NotNil(t, second["2024-03-09"].TotalSteps)
	assert.Equal(t, 9100.0, *second["2024-03-09"].TotalSteps)
	require.NotNil(t, second["2024-03-06"].TotalSteps, "a day without metrics must not be cached")
	assert.Equal(t, 4200.0, *second["2024-03-06"].TotalSteps)
}

func TestFetchFitnessWithoutCacheAlwaysRefetches(t *testing.T) {
	srv := &summaryServer{calls: map[string]int{}, fail: map[string]bool{}}
	client := newServerClient(t, srv, 0)
	window := weekWindow(t)

	for i := 0; i < 2; i++ {
		_, err := client.FetchFitness(context.Background(), window)
		require.NoError(t, err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, 2, srv.calls["2024-03-04"])
	assert.Equal(t, 0, client.cache.len())
}

func TestFetchFitnessDoesNotCacheFailures(t *testing.T) {
	srv := &summaryServer{calls: map[string]int{}, fail: map[string]bool{"2024-03-05": true}}
	client := newServerClient(t, srv, 16)
	window := weekWindow(t)

	_, err := client.FetchFitness(context.Background(), window)
	require.Error(t, err)

	srv.mu.Lock()
	srv.fail = map[string]bool{}
	srv.mu.Unlock()

	result, err := client.FetchFitness(context.Background(), window)
	require.NoError(t, err)
	assert.NotNil(t, result["2024-03-05"].TotalSteps)
}

func TestNormalizeDistance(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *float64
	}{
		{"five kilometers", `{"totalDistanceMeters": 5000}`, floatPtr(5.0)},
		{"rounded", `{"totalDistanceMeters": 1234.5}`, floatPtr(1.23)},
		{"zero is kept", `{"totalDistanceMeters": 0}`, floatPtr(0)},
		{"absent", `{}`, nil},
		{"null", `{"totalDistanceMeters": null}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var summary dailySummary
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &summary))
			assert.Equal(t, tt.want, summary.normalize("2024-01-01").TotalDistanceKilometers)
		})
	}
}

func TestNormalizeNestedGroups(t *testing.T) {
	var summary dailySummary
	require.NoError(t, json.Unmarshal([]byte(`{
		"sedentarySeconds": 3630,
		"avgWakingRespirationValue": 14,
		"stressQualifier": "BALANCED",
		"highStressPercentage": 3.5
	}`), &summary))

	snapshot := summary.normalize("2024-01-01")
	require.NotNil(t, snapshot.SedentaryMinutes)
	assert.Equal(t, 60.5, *snapshot.SedentaryMinutes)

	require.NotNil(t, snapshot.RespirationRate)
	assert.Equal(t, 14.0, *snapshot.RespirationRate.Average)
	assert.Nil(t, snapshot.RespirationRate.Highest)

	require.NotNil(t, snapshot.StressData)
	assert.Equal(t, "BALANCED", *snapshot.StressData.Qualifier)
	require.NotNil(t, snapshot.StressData.ProportionOfTotal)
	assert.Equal(t, 3.5, *snapshot.StressData.ProportionOfTotal.High)

	data, err := json.Marshal(briefing.FitnessSnapshot{Date: "2024-01-01"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-01"}`, string(data))
}

func floatPtr(v float64) *float64 { return &v }
