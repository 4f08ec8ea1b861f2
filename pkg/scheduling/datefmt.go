package scheduling

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

const friendlyLayout = "Monday January 2, 2006"

// currentDateLayout zero-pads the day and has no ordinal: "Monday March 03, 2031".
const currentDateLayout = "Monday January 02, 2006"

var ordinalDay = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)

// OrdinalSuffix returns the English ordinal suffix of a day of month.
func OrdinalSuffix(day int) string {
	if (day >= 4 && day <= 20) || (day >= 24 && day <= 30) {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// FormatUserFriendly renders an ISO date as "Friday July 18th, 2025".
// Unparseable input is returned unchanged.
func FormatUserFriendly(isoDate string) string {
	t, err := ParseDate(isoDate)
	if err != nil {
		return isoDate
	}
	return formatFriendly(t)
}

func formatFriendly(t time.Time) string {
	return fmt.Sprintf("%s %s %d%s, %d", t.Weekday(), t.Month(), t.Day(), OrdinalSuffix(t.Day()), t.Year())
}

// ParseUserFriendly is the inverse of FormatUserFriendly and returns the ISO date.
// A comma after the weekday is tolerated.
func ParseUserFriendly(s string) (string, error) {
	plain := ordinalDay.ReplaceAllString(s, "$1")
	for _, layout := range []string{friendlyLayout, "Monday, January 2, 2006"} {
		if t, err := time.Parse(layout, plain); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// ParseDate parses a strict YYYY-MM-DD date at midnight UTC.
func ParseDate(isoDate string) (time.Time, error) {
	return time.Parse(DateLayout, isoDate)
}

// DateInfo describes today's date for the caller.
type DateInfo struct {
	Formatted string `json:"current_date_formatted"`
	ISO       string `json:"current_date_iso"`
	DayName   string `json:"day_name"`
}

// CurrentDateInfo describes the calendar day of now.
func CurrentDateInfo(now time.Time) DateInfo {
	return DateInfo{
		Formatted: now.Format(currentDateLayout),
		ISO:       now.Format(DateLayout),
		DayName:   now.Weekday().String(),
	}
}

// DateTimeContext renders the current UTC date and time as a prompt sentence.
func DateTimeContext(now time.Time) string {
	now = now.UTC()
	return "Today is " + now.Weekday().String() + ", " + now.Month().String() + " " +
		strconv.Itoa(now.Day()) + OrdinalSuffix(now.Day()) + ", " + strconv.Itoa(now.Year()) +
		". The current time is " + now.Format("03:04 PM") + " UTC." +
		" Use this information when interpreting relative date requests like 'tomorrow', 'next week', etc."
}
