package llm

import (
	"context"
	"fmt"
	"strings"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/httpclient"
	"morningbrief/internal/shared/logging"
)

// NewGenerator builds the generator named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg Config, logger logging.Logger) (briefing.Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	switch provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIClient(cfg, httpclient.New(cfg.Timeout, logger), logger), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg, httpclient.New(cfg.Timeout, logger), logger)
	case ProviderMock:
		return NewMockGenerator(nil), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
