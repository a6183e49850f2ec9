// Package sources holds helpers shared by the upstream data source adapters.
package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Source names used in errors, logs and metrics.
const (
	Weather  = "weather"
	Fitness  = "fitness"
	Calendar = "calendar"
	Planner  = "planner"
)

// ParseMinutes reads a duration field that may be a number, a numeric
// string, or a sentinel such as "NONE". Anything non-numeric yields nil.
func ParseMinutes(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		minutes := int(math.Round(number))
		return &minutes
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil
	}
	minutes := int(math.Round(number))
	return &minutes
}

// ParseInstant parses an RFC 3339 timestamp and converts it to loc.
func ParseInstant(value string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// OptionalString returns nil for an empty string.
func OptionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Round2 rounds to two decimals.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
