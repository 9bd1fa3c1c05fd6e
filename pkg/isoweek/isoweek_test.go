package isoweek

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC), "2026-W10"},
		// Dec 29 2025 is a Monday and already belongs to 2026-W01.
		{time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC), "2026-W01"},
		// Jan 1 2027 is a Friday, still in 2026's last week.
		{time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), "2026-W53"},
		{time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC), "2024-W01"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(tc.date))
	}
}

func TestMonday(t *testing.T) {
	monday, err := Monday("2026-W10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), monday)
	assert.Equal(t, time.Monday, monday.Weekday())

	monday, err = Monday("2026-W01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC), monday)
}

func TestMondayRejectsInvalidLabels(t *testing.T) {
	for _, label := range []string{"", "2026", "2026-W00", "2026-W54", "garbage"} {
		_, err := Monday(label)
		assert.Error(t, err, label)
	}
	// 2026 has 53 ISO weeks, 2025 does not.
	_, err := Monday("2025-W53")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	// Every day across several year boundaries must map week -> Monday -> same week.
	start := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 800; day++ {
		date := start.AddDate(0, 0, day)
		label := Format(date)
		monday, err := Monday(label)
		require.NoError(t, err, label)
		assert.Equal(t, label, Format(monday), "round trip for %s", date)
		assert.True(t, !monday.After(date), "monday must not be after the source date")
	}
}

func TestPrevious(t *testing.T) {
	prev, err := Previous("2026-W10")
	require.NoError(t, err)
	assert.Equal(t, "2026-W09", prev)

	prev, err = Previous("2026-W01")
	require.NoError(t, err)
	assert.Equal(t, "2025-W52", prev)
}
