// Package llm implements the text-generation capability used by the
// briefing stages.
package llm

import "time"

// Provider names accepted by the factory.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Config selects and tunes a generator.
type Config struct {
	Provider     string
	Model        string
	BaseURL      string
	APIKey       string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-2.0-flash"
	case ProviderMock:
		return "mock"
	default:
		return "gpt-3.5-turbo"
	}
}
