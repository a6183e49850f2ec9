package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morningbrief/internal/app/prompts"
	"morningbrief/internal/app/sections"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/llm"
	"morningbrief/internal/infra/observability"
	brieferrors "morningbrief/internal/shared/errors"
)

const (
	weatherHTML  = `<div id="weather_overview"><p>Mild and dry.</p></div><div id="weather_recommendations"><p>Bring an umbrella after 5pm.</p></div>`
	fitnessHTML  = "```html\n<div id=\"fitness_overview\"><p>Sleep trended up all week.</p></div>\n```"
	scheduleHTML = `<div id="daily_schedule"><ul><li>09:00 standup</li></ul></div><div id="suggestions"><p>Walk at lunch.</p></div>`
)

func newComposer(t *testing.T) *prompts.Composer {
	t.Helper()
	composer, err := prompts.NewComposer("", nil)
	require.NoError(t, err)
	return composer
}

func sampleSnapshot() briefing.Snapshot {
	snapshot := briefing.EmptySnapshot()
	snapshot.Weather = briefing.WeatherSnapshot{
		Current: &briefing.CurrentWeather{Temperature: "18.2°C", Description: "few clouds"},
		Today:   &briefing.DailyForecast{MaxTemp: "21.0°C", MinTemp: "12.4°C", Conditions: "light rain"},
	}
	steps := 8421.0
	snapshot.Fitness = map[string]briefing.FitnessSnapshot{"2024-05-01": {Date: "2024-05-01", TotalSteps: &steps}}
	snapshot.Schedule = briefing.Schedule{
		Tasks:  []briefing.Item{{Name: "Write report"}},
		Events: []briefing.Item{{Name: "Standup"}},
	}
	return snapshot
}

func TestGenerateRunsStagesInOrder(t *testing.T) {
	generator := llm.NewMockGenerator(map[string]string{
		briefing.StageWeather:  weatherHTML,
		briefing.StageFitness:  fitnessHTML,
		briefing.StageSchedule: scheduleHTML,
	})

	var (
		mu     sync.Mutex
		stages []string
		tokens = map[string]int{}
	)
	metrics := &observability.MetricsCollector{}
	metrics.SetTestHooks(observability.MetricsTestHooks{
		StageRun: func(stage, status string, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, stage+":"+status)
		},
		PromptTokens: func(stage string, n int) {
			mu.Lock()
			defer mu.Unlock()
			tokens[stage] = n
		},
	})

	orch := NewOrchestrator(newComposer(t), generator, sections.NewExtractor(nil), StageOptions{
		Context: "Training for a half marathon.",
		System:  "You write morning briefings.",
	}, nil, metrics, nil)

	result, err := orch.Generate(context.Background(), sampleSnapshot())
	require.NoError(t, err)

	require.Len(t, result.Groups, 3)
	assert.Equal(t, "Weather Section", result.Groups[0].Title)
	assert.Equal(t, "Fitness Section", result.Groups[1].Title)
	assert.Equal(t, "Schedule Section", result.Groups[2].Title)

	overview, ok := result.Groups[1].Response.Get(briefing.SectionFitnessOverview)
	require.True(t, ok)
	assert.Contains(t, overview, "Sleep trended up")

	requests := generator.Requests()
	require.Len(t, requests, 3)
	for i, stage := range []string{briefing.StageWeather, briefing.StageFitness, briefing.StageSchedule} {
		assert.Equal(t, stage, requests[i].Stage)
		assert.Equal(t, "You write morning briefings.", requests[i].System)
		assert.Contains(t, requests[i].Prompt, "Training for a half marathon.")
	}
	assert.Contains(t, requests[0].Prompt, "light rain")
	assert.Contains(t, requests[1].Prompt, "8421")

	schedulePrompt := requests[2].Prompt
	assert.Contains(t, schedulePrompt, "Bring an umbrella after 5pm.")
	assert.Contains(t, schedulePrompt, "Sleep trended up all week.")
	assert.Contains(t, schedulePrompt, "Write report")
	assert.NotContains(t, schedulePrompt, "Mild and dry.", "raw weather overview must not leak into the schedule stage")

	assert.Equal(t, []string{"weather:ok", "fitness:ok", "schedule:ok"}, stages)
	for _, stage := range []string{briefing.StageWeather, briefing.StageFitness, briefing.StageSchedule} {
		assert.Positive(t, tokens[stage], stage)
	}
}

func TestGenerateSubstitutesMissingUpstreamSections(t *testing.T) {
	generator := llm.NewMockGenerator(map[string]string{
		briefing.StageWeather: `<div id="weather_overview">Sunny.</div>`,
		briefing.StageFitness: `<p>I could not find any data.</p>`,
	})
	orch := NewOrchestrator(newComposer(t), generator, nil, StageOptions{}, nil, nil, nil)

	result, err := orch.Generate(context.Background(), sampleSnapshot())
	require.NoError(t, err)

	_, present := result.Groups[1].Response.Get(briefing.SectionFitnessOverview)
	assert.False(t, present)

	schedulePrompt := generator.Requests()[2].Prompt
	assert.Equal(t, 2, strings.Count(schedulePrompt, prompts.NotAvailable))
}

func TestGenerateStageFailureAbortsRun(t *testing.T) {
	boom := errors.New("model overloaded")
	generator := llm.NewMockGenerator(nil).FailStage(briefing.StageFitness, boom)

	var statuses []string
	metrics := &observability.MetricsCollector{}
	metrics.SetTestHooks(observability.MetricsTestHooks{
		StageRun: func(stage, status string, _ time.Duration) { statuses = append(statuses, stage+":"+status) },
	})
	orch := NewOrchestrator(newComposer(t), generator, nil, StageOptions{}, nil, metrics, nil)

	result, err := orch.Generate(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Empty(t, result.Groups)

	var stageErr *brieferrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, briefing.StageFitness, stageErr.Stage)
	assert.ErrorIs(t, err, boom)

	assert.Len(t, generator.Requests(), 2, "schedule stage must not run")
	assert.Equal(t, []string{"weather:ok", "fitness:error"}, statuses)
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ briefing.GenerationRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerateBoundsEachStage(t *testing.T) {
	orch := NewOrchestrator(newComposer(t), blockingGenerator{}, nil, StageOptions{StageTimeout: 20 * time.Millisecond}, nil, nil, nil)

	started := time.Now()
	_, err := orch.Generate(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)

	var stageErr *brieferrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, briefing.StageWeather, stageErr.Stage)
}

func TestGenerateCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	generator := llm.NewMockGenerator(nil)
	orch := NewOrchestrator(newComposer(t), generator, nil, StageOptions{}, nil, nil, nil)

	_, err := orch.Generate(ctx, sampleSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, generator.Requests())
}
