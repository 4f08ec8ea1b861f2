package scheduling_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/newcast-health/intakeflow/pkg/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdinalSuffix(t *testing.T) {
	want := map[int]string{
		1: "st", 2: "nd", 3: "rd", 4: "th", 11: "th", 12: "th", 13: "th",
		20: "th", 21: "st", 22: "nd", 23: "rd", 24: "th", 30: "th", 31: "st",
	}
	for day, suffix := range want {
		t.Run(fmt.Sprint(day), func(t *testing.T) {
			assert.Equal(t, suffix, scheduling.OrdinalSuffix(day))
		})
	}
}

func TestFormatUserFriendly(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-07-18", "Friday July 18th, 2025"},
		{"2025-07-01", "Tuesday July 1st, 2025"},
		{"2025-07-02", "Wednesday July 2nd, 2025"},
		{"2025-07-03", "Thursday July 3rd, 2025"},
		{"2025-07-04", "Friday July 4th, 2025"},
		{"2025-07-11", "Friday July 11th, 2025"},
		{"2025-07-21", "Monday July 21st, 2025"},
		{"2025-07-22", "Tuesday July 22nd, 2025"},
		{"2025-07-23", "Wednesday July 23rd, 2025"},
		{"next friday", "next friday"},
		{"2025-13-01", "2025-13-01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, scheduling.FormatUserFriendly(tt.in))
		})
	}
}

func TestParseUserFriendly_RoundTrip(t *testing.T) {
	for _, iso := range []string{"2025-07-01", "2025-07-02", "2025-07-03", "2025-07-11", "2025-07-21", "2025-12-31", "2024-02-29"} {
		got, err := scheduling.ParseUserFriendly(scheduling.FormatUserFriendly(iso))
		require.NoError(t, err)
		assert.Equal(t, iso, got)
	}

	got, err := scheduling.ParseUserFriendly("Friday, July 18th, 2025")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-18", got)

	_, err = scheduling.ParseUserFriendly("sometime soon")
	assert.Error(t, err)
}

func TestParseDate_Strict(t *testing.T) {
	_, err := scheduling.ParseDate("2025-07-18")
	assert.NoError(t, err)

	for _, bad := range []string{"2025-7-18", "07/18/2025", "2025-07-18T10:00", ""} {
		_, err := scheduling.ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestCurrentDateInfo(t *testing.T) {
	now := time.Date(2025, time.June, 2, 14, 30, 0, 0, time.UTC)
	info := scheduling.CurrentDateInfo(now)
	assert.Equal(t, "2025-06-02", info.ISO)
	assert.Equal(t, "Monday", info.DayName)
	assert.Equal(t, "Monday June 02, 2025", info.Formatted)

	late := time.Date(2031, time.March, 3, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "Monday March 03, 2031", scheduling.CurrentDateInfo(late).Formatted)
}

func TestDateTimeContext(t *testing.T) {
	now := time.Date(2025, time.June, 2, 14, 30, 0, 0, time.UTC)
	assert.Equal(t,
		"Today is Monday, June 2nd, 2025. The current time is 02:30 PM UTC. Use this information when interpreting relative date requests like 'tomorrow', 'next week', etc.",
		scheduling.DateTimeContext(now))
}
