package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:00")
	require.NoError(t, err)
	assert.Equal(t, 540, m)

	m, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 1439, m)

	for _, bad := range []string{"", "9", "24:00", "09:60", "ab:cd", "-1:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestShiftIsNight(t *testing.T) {
	cases := []struct {
		start, end string
		night      bool
	}{
		{"09:00", "17:00", false},
		{"06:00", "14:00", false},
		{"22:00", "06:00", true},
		{"20:00", "04:00", true},
		{"23:00", "07:30", true},
		{"00:00", "08:00", true},
		{"18:00", "02:00", true},
	}
	for _, tc := range cases {
		shift := Shift{StartTime: tc.start, EndTime: tc.end}
		assert.Equal(t, tc.night, shift.IsNight(), "%s-%s", tc.start, tc.end)
	}
}

func TestShiftIsNightUnparseable(t *testing.T) {
	assert.False(t, Shift{StartTime: "bad", EndTime: "17:00"}.IsNight())
}

func TestExpectedEndRollsPastMidnight(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	resolved := ResolvedSchedule{Shift: Shift{StartTime: "22:00", EndTime: "06:00"}}

	assert.Equal(t, day.Add(22*time.Hour), resolved.ExpectedStart(day))
	assert.Equal(t, day.AddDate(0, 0, 1).Add(6*time.Hour), resolved.ExpectedEnd(day))
}

func TestExpectedStartCustomOverride(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	custom := "10:30"
	resolved := ResolvedSchedule{
		Shift:           Shift{StartTime: "09:00", EndTime: "17:00"},
		CustomStartTime: &custom,
	}

	assert.Equal(t, day.Add(10*time.Hour+30*time.Minute), resolved.ExpectedStart(day))
}

func TestPlannedMinutes(t *testing.T) {
	dayWindow := ResolvedSchedule{Shift: Shift{StartTime: "09:00", EndTime: "17:00"}}
	assert.Equal(t, 420, dayWindow.PlannedMinutes(60))

	nightWindow := ResolvedSchedule{Shift: Shift{StartTime: "22:00", EndTime: "06:00"}}
	assert.Equal(t, 450, nightWindow.PlannedMinutes(30))

	assert.Equal(t, 0, dayWindow.PlannedMinutes(600))
}

func TestDateOnly(t *testing.T) {
	zone := time.FixedZone("CET", 3600)
	ts := time.Date(2025, 3, 10, 0, 30, 0, 0, zone)

	// 00:30 CET is still March 9 in UTC.
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), DateOnly(ts))
}
