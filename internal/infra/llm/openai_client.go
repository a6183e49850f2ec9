package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/httpclient"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient speaks the OpenAI-compatible chat completions API.
type OpenAIClient struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewOpenAIClient constructs a generator for the chat completions API.
func NewOpenAIClient(cfg Config, httpClient *http.Client, logger logging.Logger) *OpenAIClient {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(ProviderOpenAI)
	}
	logger = logging.OrNop(logger)
	if httpClient == nil {
		httpClient = httpclient.New(cfg.Timeout, logger)
	}
	return &OpenAIClient{cfg: cfg, httpClient: httpClient, logger: logger}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one user message, preceded by a system message when one is
// configured or supplied with the request.
func (c *OpenAIClient) Generate(ctx context.Context, req briefing.GenerationRequest) (string, error) {
	system := req.System
	if system == "" {
		system = c.cfg.SystemPrompt
	}
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{Model: c.cfg.Model, Messages: messages, MaxTokens: c.cfg.MaxTokens}
	if c.cfg.Temperature > 0 {
		temperature := c.cfg.Temperature
		payload.Temperature = &temperature
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.logger.Debug("OpenAI: POST %s stage=%s model=%s", endpoint, req.Stage, c.cfg.Model)

	var resp chatResponse
	if err := httpclient.DoJSON(c.httpClient, httpReq, ProviderOpenAI, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", brieferrors.NewUpstreamError(ProviderOpenAI, 0, fmt.Errorf("%s: %s", resp.Error.Type, resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", brieferrors.NewDecodeError(ProviderOpenAI, errors.New("no choices in response"))
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", brieferrors.NewDecodeError(ProviderOpenAI, errors.New("empty completion"))
	}
	c.logger.Debug("OpenAI: stage=%s finish=%s prompt_tokens=%d completion_tokens=%d",
		req.Stage, resp.Choices[0].FinishReason, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return content, nil
}
