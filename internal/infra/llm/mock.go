package llm

import (
	"context"
	"fmt"
	"sync"

	"morningbrief/internal/domain/briefing"
)

// MockGenerator replays scripted responses per stage and records every
// request it receives.
type MockGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	requests  []briefing.GenerationRequest
}

// NewMockGenerator returns a mock answering each stage with responses[stage].
// Stages without a scripted response get a canned document containing every
// anchor that stage expects.
func NewMockGenerator(responses map[string]string) *MockGenerator {
	scripted := make(map[string]string, len(responses))
	for stage, text := range responses {
		scripted[stage] = text
	}
	return &MockGenerator{responses: scripted, errs: map[string]error{}}
}

// FailStage makes the given stage return err.
func (m *MockGenerator) FailStage(stage string, err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[stage] = err
	return m
}

// Generate implements briefing.Generator.
func (m *MockGenerator) Generate(ctx context.Context, req briefing.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if err, ok := m.errs[req.Stage]; ok {
		return "", err
	}
	if text, ok := m.responses[req.Stage]; ok {
		return text, nil
	}
	return cannedResponse(req.Stage), nil
}

// Requests returns a copy of the recorded requests.
func (m *MockGenerator) Requests() []briefing.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]briefing.GenerationRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func cannedResponse(stage string) string {
	var out string
	for _, id := range briefing.StageSections[stage] {
		out += fmt.Sprintf("<div id=%q><p>Sample %s for the %s stage.</p></div>\n", id, id, stage)
	}
	if out == "" {
		return "<p>No sections expected.</p>"
	}
	return out
}
