package briefing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNewWindowAnchorsOnLocalMidnight(t *testing.T) {
	loc := mustLoad(t, "America/Los_Angeles")
	// 03:30 UTC on the 16th is still the 15th in Los Angeles.
	now := time.Date(2024, 3, 16, 3, 30, 0, 0, time.UTC)

	w, err := NewWindow(now, loc, 1)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, loc), w.End)
	assert.Equal(t, "2024-03-15", w.Today())
	require.NoError(t, w.Validate())
}

func TestNewWindowRejectsBadInput(t *testing.T) {
	_, err := NewWindow(time.Now(), nil, 1)
	assert.Error(t, err)

	_, err = NewWindow(time.Now(), time.UTC, -1)
	assert.Error(t, err)
}

func TestContainsDate(t *testing.T) {
	loc := mustLoad(t, "Europe/London")
	w, err := NewWindow(time.Date(2024, 6, 10, 9, 0, 0, 0, loc), loc, 2)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start of today", time.Date(2024, 6, 10, 0, 0, 0, 0, loc), true},
		{"late on last day", time.Date(2024, 6, 12, 23, 59, 0, 0, loc), true},
		{"day after window", time.Date(2024, 6, 13, 0, 0, 0, 0, loc), false},
		{"yesterday", time.Date(2024, 6, 9, 23, 0, 0, 0, loc), false},
		// 23:30 UTC on the 12th is 00:30 on the 13th in London (BST).
		{"converted into window zone", time.Date(2024, 6, 12, 23, 30, 0, 0, time.UTC), false},
		// 23:30 UTC on the 9th is 00:30 on the 10th in London.
		{"converted into today", time.Date(2024, 6, 9, 23, 30, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.ContainsDate(tt.at))
		})
	}
}

func TestZeroDaysAheadCoversOnlyToday(t *testing.T) {
	w, err := NewWindow(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), time.UTC, 0)
	require.NoError(t, err)

	assert.True(t, w.ContainsDate(time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC)))
	assert.False(t, w.ContainsDate(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))
}

func TestPastDays(t *testing.T) {
	w, err := NewWindow(time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), time.UTC, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-03-02", "2024-03-01", "2024-02-29"}, w.PastDays(3))
	assert.Nil(t, w.PastDays(0))
}

func TestValidateRejectsInvertedWindow(t *testing.T) {
	w := TimeWindow{
		Start:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	}
	assert.Error(t, w.Validate())
}
