package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"morningbrief/internal/domain/briefing"
	brieferrors "morningbrief/internal/shared/errors"
	"morningbrief/internal/shared/logging"
)

func TestOpenAIClientGenerateSendsChatRequest(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<div id=\"fitness_overview\">ok</div>"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":5}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(Config{BaseURL: server.URL, APIKey: "sk-test", Temperature: 0.4, MaxTokens: 800, SystemPrompt: "be brief"}, server.Client(), logging.Nop())
	out, err := client.Generate(context.Background(), briefing.GenerationRequest{Stage: "fitness", Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != `<div id="fitness_overview">ok</div>` {
		t.Fatalf("unexpected content %q", out)
	}

	if captured.Model != "gpt-3.5-turbo" {
		t.Fatalf("expected default model, got %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "hello" {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
	if captured.Temperature == nil || *captured.Temperature != 0.4 || captured.MaxTokens != 800 {
		t.Fatalf("unexpected sampling settings %+v", captured)
	}
}

func TestOpenAIClientUserMessageOnlyWithoutSystemPrompt(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(Config{BaseURL: server.URL, Model: "gpt-4o-mini"}, server.Client(), nil)
	if _, err := client.Generate(context.Background(), briefing.GenerationRequest{Prompt: "p"}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", captured.Messages)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", captured.Model)
	}
	if captured.Temperature != nil {
		t.Fatalf("temperature should be omitted")
	}
}

func TestOpenAIClientMapsFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, true},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"invalid key"}}`, false},
		{"no choices", http.StatusOK, `{"choices":[]}`, false},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, false},
		{"error object", http.StatusOK, `{"error":{"type":"server_error","message":"overloaded"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewOpenAIClient(Config{BaseURL: server.URL}, server.Client(), nil)
			_, err := client.Generate(context.Background(), briefing.GenerationRequest{Prompt: "p"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := brieferrors.IsTransient(err); got != tt.transient {
				t.Fatalf("IsTransient = %v, want %v (err=%v)", got, tt.transient, err)
			}
			if brieferrors.SourceOf(err) != ProviderOpenAI {
				t.Fatalf("expected openai source, got %q", brieferrors.SourceOf(err))
			}
		})
	}
}

func TestOpenAIClientHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewOpenAIClient(Config{BaseURL: server.URL}, server.Client(), nil)
	_, err := client.Generate(ctx, briefing.GenerationRequest{Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
