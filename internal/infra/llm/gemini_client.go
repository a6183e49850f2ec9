package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/httpclient"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

// GeminiClient generates text with the Gemini API.
type GeminiClient struct {
	cfg    Config
	client *genai.Client
	logger logging.Logger
}

// NewGeminiClient constructs a Gemini generator.
func NewGeminiClient(ctx context.Context, cfg Config, httpClient *http.Client, logger logging.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(ProviderGemini)
	}
	logger = logging.OrNop(logger)
	if httpClient == nil {
		httpClient = httpclient.New(cfg.Timeout, logger)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{cfg: cfg, client: client, logger: logger}, nil
}

// Generate sends the prompt as a single user turn.
func (c *GeminiClient) Generate(ctx context.Context, req briefing.GenerationRequest) (string, error) {
	genCfg := &genai.GenerateContentConfig{}
	system := req.System
	if system == "" {
		system = c.cfg.SystemPrompt
	}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if c.cfg.Temperature > 0 {
		temperature := float32(c.cfg.Temperature)
		genCfg.Temperature = &temperature
	}
	if c.cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}

	c.logger.Debug("Gemini: generate stage=%s model=%s", req.Stage, c.cfg.Model)
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return "", brieferrors.NewUpstreamError(ProviderGemini, 0, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", brieferrors.NewDecodeError(ProviderGemini, errors.New("empty completion"))
	}
	return text, nil
}
