package format

import (
	"fmt"
	"time"
)

// Clock renders an instant as a 24-hour wall clock, e.g. "09:05".
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// ClockRange renders "09:00 – 10:30" for a block's visible extent.
func ClockRange(start, end time.Time) string {
	return Clock(start) + " – " + Clock(end)
}

// Duration renders whole minutes as "45m", "2h" or "1h 30m".
func Duration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// DayTitle labels a day relative to now: "Today · Wednesday, March 4",
// "Tomorrow · …", "Yesterday · …", otherwise the plain long form.
func DayTitle(day, now time.Time) string {
	long := day.Format("Monday, January 2")
	switch dateOf(day).Sub(dateOf(now)) {
	case 0:
		return "Today · " + long
	case 24 * time.Hour:
		return "Tomorrow · " + long
	case -24 * time.Hour:
		return "Yesterday · " + long
	}
	return long
}

// WeekTitle labels a Monday-first week, e.g. "Mar 2 – Mar 8, 2026".
func WeekTitle(monday time.Time) string {
	sunday := monday.AddDate(0, 0, 6)
	if monday.Year() != sunday.Year() {
		return monday.Format("Jan 2, 2006") + " – " + sunday.Format("Jan 2, 2006")
	}
	return monday.Format("Jan 2") + " – " + sunday.Format("Jan 2, 2006")
}

func MonthTitle(day time.Time) string {
	return day.Format("January 2006")
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
