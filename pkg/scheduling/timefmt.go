package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the canonical 24-hour slot format.
const TimeLayout = "15:04"

// Bare hours inside this range are read as on-the-hour times.
const (
	bareHourMin = 9
	bareHourMax = 17
)

// NormalizeTime converts a time expression to zero-padded 24-hour HH:MM.
//
// Accepted: 12-hour forms with a meridiem ("2pm", "2:30 pm", "11:15AM", "9 a.m."),
// 24-hour forms ("14:30", "9:05"), and bare business hours ("10" becomes "10:00").
// Anything else is returned unchanged; callers treat an unchanged value as unparsed.
func NormalizeTime(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	if strings.Contains(s, "am") || strings.Contains(s, "pm") ||
		strings.Contains(s, "a.m.") || strings.Contains(s, "p.m.") {
		compact := strings.NewReplacer(" ", "", ".", "").Replace(s)
		if !strings.Contains(compact, ":") {
			compact = strings.NewReplacer("am", ":00am", "pm", ":00pm").Replace(compact)
		}
		if t, err := time.Parse("3:04pm", compact); err == nil {
			return t.Format(TimeLayout)
		}
	}

	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t.Format(TimeLayout)
	}

	if hour, err := strconv.Atoi(s); err == nil && hour >= bareHourMin && hour <= bareHourMax {
		return fmt.Sprintf("%02d:00", hour)
	}

	return raw
}

// IsCanonicalTime reports whether s is already a valid HH:MM value.
func IsCanonicalTime(s string) bool {
	t, err := time.Parse(TimeLayout, s)
	return err == nil && t.Format(TimeLayout) == s
}

// ParseClock parses HH:MM into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(TimeLayout, NormalizeTime(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
