package errors

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit 429",
			err:      NewUpstreamError("planner", 429, nil),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      NewUpstreamError("weather", 503, errors.New("unavailable")),
			expected: true,
		},
		{
			name:     "unauthorized 401",
			err:      NewUpstreamError("weather", 401, errors.New("bad key")),
			expected: false,
		},
		{
			name:     "deadline exceeded without status",
			err:      NewUpstreamError("calendar", 0, context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "connection refused",
			err:      NewUpstreamError("fitness", 0, syscall.ECONNREFUSED),
			expected: true,
		},
		{
			name:     "decode error wrapping a timeout",
			err:      NewDecodeError("weather", context.DeadlineExceeded),
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.expected {
				t.Errorf("IsTransient() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	degraded := &DegradedError{Category: "weather", Err: NewUpstreamError("weather", 500, nil)}
	if got := GetErrorType(degraded); got != ErrorTypeDegraded {
		t.Fatalf("expected degraded, got %v", got)
	}
	if got := GetErrorType(NewUpstreamError("planner", 502, nil)); got != ErrorTypeTransient {
		t.Fatalf("expected transient, got %v", got)
	}
	if got := GetErrorType(NewDecodeError("planner", errors.New("eof"))); got != ErrorTypePermanent {
		t.Fatalf("expected permanent, got %v", got)
	}
}

func TestSourceOfUnwrapsChains(t *testing.T) {
	err := fmt.Errorf("fetch page 2: %w", NewUpstreamError("planner", 500, nil))
	if got := SourceOf(err); got != "planner" {
		t.Fatalf("expected planner, got %q", got)
	}
	if got := SourceOf(NewDecodeError("weather", errors.New("x"))); got != "weather" {
		t.Fatalf("expected weather, got %q", got)
	}
	if got := SourceOf(errors.New("x")); got != "" {
		t.Fatalf("expected empty source, got %q", got)
	}
}

func TestStageErrorUnwraps(t *testing.T) {
	root := errors.New("model overloaded")
	err := &StageError{Stage: "fitness", Err: root}
	if !errors.Is(err, root) {
		t.Fatal("expected StageError to unwrap to root cause")
	}
	if err.Error() != "stage fitness failed: model overloaded" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
