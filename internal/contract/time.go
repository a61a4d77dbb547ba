package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the calendar date layout accepted on the command line and sent to the store.
const DateFormat = "2006-01-02"

// Define the regular expression to capture "N [units] ago"
// e.g., "2 years ago", "3 months ago", "1 week ago".
var relativeTimeRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day)s?\s+ago$`)

// ParseRelativeTime converts strings like "2 years ago" into a time.Time in the past.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := relativeTimeRe.FindStringSubmatch(s)

	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid relative time format: %s", s)
	}

	// 1: Value (e.g., "2")
	// 2: Unit (e.g., "year" or "month")
	value, _ := strconv.Atoi(matches[1])
	switch matches[2] {
	case "year":
		return now.AddDate(-value, 0, 0), nil
	case "month":
		return now.AddDate(0, -value, 0), nil
	case "week":
		return now.AddDate(0, 0, -7*value), nil
	default: // day
		return now.AddDate(0, 0, -value), nil
	}
}

// ParseDate accepts a calendar date (2006-01-02), an RFC3339 timestamp or a
// relative "N units ago" expression. Results are truncated to the UTC day.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateFormat, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return truncateDay(t), nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q. Expected YYYY-MM-DD, RFC3339 or 'N [units] ago'", s)
	}
	return truncateDay(t), nil
}

// FormatDate renders a time as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
