package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekIDFromDate(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"mid year", time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC), "2024-W11"},
		{"monday starts week", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), "2024-W01"},
		{"sunday ends week", time.Date(2024, time.January, 7, 23, 59, 59, 0, time.UTC), "2024-W01"},
		{"early january belongs to previous iso year", time.Date(2021, time.January, 3, 12, 0, 0, 0, time.UTC), "2020-W53"},
		{"late december belongs to next iso year", time.Date(2024, time.December, 30, 12, 0, 0, 0, time.UTC), "2025-W01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekIDFromDate(tt.date).String())
		})
	}
}

func TestWeekIDFromDate_Deterministic(t *testing.T) {
	d := time.Date(2024, time.June, 5, 8, 30, 0, 0, time.UTC)
	first := WeekIDFromDate(d)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, WeekIDFromDate(d))
	}
	// 同一天的不同时刻映射到同一周
	assert.Equal(t, first, WeekIDFromDate(d.Add(15*time.Hour)))
}

func TestWeekIDFromDate_UsesLocalCalendarDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 本地周一，UTC 仍是周日
	local := time.Date(2024, time.January, 8, 5, 0, 0, 0, loc)
	assert.Equal(t, "2024-W02", WeekIDFromDate(local).String())
	assert.Equal(t, "2024-W01", WeekIDFromDate(local.UTC()).String())
}

func TestParseWeekID(t *testing.T) {
	w, err := ParseWeekID("2024-W09")
	require.NoError(t, err)
	assert.Equal(t, 2024, w.Year())
	assert.Equal(t, 9, w.Week())

	for _, bad := range []string{"", "2024-9", "2024-W9", "2024-W00", "2024-W54", "2023-W53", "W01-2024"} {
		_, err := ParseWeekID(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}

	_, err = ParseWeekID("2020-W53")
	assert.NoError(t, err)
}

func TestWeekID_StartAndNext(t *testing.T) {
	w, err := ParseWeekID("2025-W01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC), w.Start())
	assert.Equal(t, w, WeekIDFromDate(w.Start()))
	assert.Equal(t, "2025-W02", w.Next().String())

	last, err := ParseWeekID("2020-W53")
	require.NoError(t, err)
	assert.Equal(t, "2021-W01", last.Next().String())
}

func TestWeekID_TextRoundTrip(t *testing.T) {
	w := WeekIDFromDate(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	text, err := w.MarshalText()
	require.NoError(t, err)

	var parsed WeekID
	require.NoError(t, parsed.UnmarshalText(text))
	assert.True(t, w.Equals(parsed))
}
