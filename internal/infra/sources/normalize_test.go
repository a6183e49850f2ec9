package sources

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{`30`, intPtr(30)},
		{`29.6`, intPtr(30)},
		{`"45"`, intPtr(45)},
		{`"NONE"`, nil},
		{`"REMINDER"`, nil},
		{`null`, nil},
		{``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMinutes(json.RawMessage(tt.raw)))
		})
	}
}

func TestParseInstantConvertsZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	got, err := ParseInstant("2024-05-01T22:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Day())
	assert.Equal(t, 7, got.Hour())
	assert.Equal(t, loc, got.Location())

	_, err = ParseInstant("tomorrow", loc)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 5.0, Round2(5000.0/1000))
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 7.5, Round2(27000.0/3600))
}

func intPtr(v int) *int { return &v }
