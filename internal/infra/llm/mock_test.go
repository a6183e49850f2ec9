package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morningbrief/internal/domain/briefing"
)

func TestMockGeneratorScriptedAndCanned(t *testing.T) {
	mock := NewMockGenerator(map[string]string{briefing.StageWeather: "<div id=\"weather_overview\">sun</div>"})

	out, err := mock.Generate(context.Background(), briefing.GenerationRequest{Stage: briefing.StageWeather, Prompt: "w"})
	require.NoError(t, err)
	assert.Equal(t, "<div id=\"weather_overview\">sun</div>", out)

	out, err = mock.Generate(context.Background(), briefing.GenerationRequest{Stage: briefing.StageSchedule, Prompt: "s"})
	require.NoError(t, err)
	assert.Contains(t, out, `id="daily_schedule"`)
	assert.Contains(t, out, `id="suggestions"`)

	requests := mock.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "w", requests[0].Prompt)
	assert.Equal(t, briefing.StageSchedule, requests[1].Stage)
}

func TestMockGeneratorFailStage(t *testing.T) {
	boom := errors.New("model overloaded")
	mock := NewMockGenerator(nil).FailStage(briefing.StageFitness, boom)

	_, err := mock.Generate(context.Background(), briefing.GenerationRequest{Stage: briefing.StageFitness})
	assert.ErrorIs(t, err, boom)
}

func TestNewGeneratorSelectsProvider(t *testing.T) {
	gen, err := NewGenerator(context.Background(), Config{Provider: "MOCK"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockGenerator{}, gen)

	gen, err = NewGenerator(context.Background(), Config{APIKey: "sk"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, gen)

	_, err = NewGenerator(context.Background(), Config{Provider: "openai"}, nil)
	assert.Error(t, err)

	_, err = NewGenerator(context.Background(), Config{Provider: "gemini"}, nil)
	assert.Error(t, err)

	_, err = NewGenerator(context.Background(), Config{Provider: "llama"}, nil)
	assert.ErrorContains(t, err, "unsupported llm provider")
}
