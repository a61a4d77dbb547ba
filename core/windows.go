package core

import (
	"time"

	"github.com/huangsam/prosoul/schema"
)

// quarterMonths is the length of one assessment window step.
const quarterMonths = 3

// Quarters splits [start, end] into 3-month windows stepping from start.
// Every step is emitted, including the one whose end first passes end, and
// the stepping stops right after it. A window ending exactly on end does not
// stop the loop. Each step starts from the previous window's end, so a day
// clamped to a shorter month stays clamped (01-31, 04-30, 07-30).
func Quarters(start, end time.Time) []schema.Window {
	if end.Before(start) {
		return nil
	}
	var windows []schema.Window
	from := start
	for {
		to := addMonths(from, quarterMonths)
		windows = append(windows, schema.Window{Start: from, End: to})
		if to.After(end) {
			return windows
		}
		from = to
	}
}

// addMonths moves t forward n months, clamping the day to the last day of
// the target month instead of overflowing into the next one.
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	hour, minute, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
