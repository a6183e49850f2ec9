package briefing

import "context"

// GenerationRequest is one call to the text-generation capability.
type GenerationRequest struct {
	Stage  string
	System string
	Prompt string
}

// Generator turns a prompt into free-form text. Implementations must honour
// ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// WeatherSource fetches the weather snapshot for the configured location.
type WeatherSource interface {
	FetchWeather(ctx context.Context, window TimeWindow) (WeatherSnapshot, error)
}

// FitnessSource fetches per-day fitness snapshots keyed by ISO date. It
// returns every day it could fetch together with a joined error for the
// days it could not.
type FitnessSource interface {
	FetchFitness(ctx context.Context, window TimeWindow) (map[string]FitnessSnapshot, error)
}

// TaskSource fetches planner tasks scheduled inside the window.
type TaskSource interface {
	FetchTasks(ctx context.Context, window TimeWindow) ([]Item, error)
}

// EventSource fetches calendar events up to the window end.
type EventSource interface {
	FetchEvents(ctx context.Context, window TimeWindow) ([]Item, error)
}
