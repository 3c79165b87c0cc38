package model

import (
	"regexp"
	"sort"
	"time"
)

const (
	MinutesPerDay = 1440

	// Every timed block keeps a minimum visual height of 30 minutes.
	MinDurationMinutes = 30

	// Synthetic ends for open-ended records.
	eventDefaultMinutes = 60
	runningEntryMinutes = 30
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// DayBounds returns the visible day's clipping bounds in loc:
// [00:00:00.000, 23:59:59.999].
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

// ParseDay parses a YYYY-MM-DD path segment in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, loc)
}

// StartOfWeek returns midnight of the first day of t's week. weekStart
// is the config value, "monday" or "sunday"; anything else means Monday.
func StartOfWeek(t time.Time, weekStart string) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	if weekStart == "sunday" {
		offset = int(day.Weekday())
	}
	return day.AddDate(0, 0, -offset)
}

// BuildDayItems converts fetched records into the timed blocks of a single
// visible day. Records without a parseable start are dropped here, before
// layout ever sees them. All-day records are kept (for the header strip)
// but never enter the timed grid; callers split on AllDay.
//
// For each timed record: a synthetic end is derived when the source has
// none (event +60m, running time entry +30m, task due date as a point),
// the range is clipped to the day bounds, and the duration is clamped to
// max(30, min(1440-topOffset, actual)) so blocks stay readable and never
// overflow past midnight. The clamped extent is what the layout engine
// keys on, so a 30-minute floor block occupies a 30-minute lane.
func BuildDayItems(records []Record, day time.Time, loc *time.Location) []*CalendarItem {
	dayStart, dayEnd := DayBounds(day, loc)

	items := make([]*CalendarItem, 0, len(records))
	for _, r := range records {
		start, err := parseInstant(r.Start, loc)
		if err != nil {
			continue
		}

		it := &CalendarItem{
			Kind:  r.Kind,
			ID:    r.ID,
			Title: r.Title,
			Notes: r.Notes,
			Color: r.Color,
		}
		if !hexColorRe.MatchString(it.Color) {
			it.Color = r.Kind.DefaultColor()
		}

		end := start
		if r.End != nil {
			if e, err := parseInstant(*r.End, loc); err == nil && e.After(start) {
				end = e
			}
		} else {
			switch r.Kind {
			case KindEvent:
				end = start.Add(eventDefaultMinutes * time.Minute)
			case KindTimeEntry:
				end = start.Add(runningEntryMinutes * time.Minute)
				it.Running = true
			}
			// Tasks stay a point in time; the duration clamp widens them.
		}

		if r.AllDay {
			if !start.After(dayEnd) && !end.Before(dayStart) {
				it.AllDay = true
				it.Start, it.End = dayStart, dayEnd
				items = append(items, it)
			}
			continue
		}

		// Skip records that never touch this day.
		if start.After(dayEnd) || end.Before(dayStart) {
			continue
		}

		// Clip to the day, then derive the visual extent.
		if start.Before(dayStart) {
			start = dayStart
		}
		if end.After(dayEnd) {
			end = dayEnd
		}

		top := start.In(loc).Hour()*60 + start.In(loc).Minute()
		actual := int(end.Sub(start) / time.Minute)
		dur := clampDuration(top, actual)

		it.Start = start
		it.End = start.Add(time.Duration(dur) * time.Minute)
		if it.End.After(dayEnd) {
			it.End = dayEnd
		}
		it.StartMs = it.Start.UnixMilli()
		it.EndMs = it.End.UnixMilli()
		it.TopOffsetMinutes = top
		it.DurationMinutes = dur
		items = append(items, it)
	}
	return items
}

// clampDuration enforces the 30-minute floor and the past-midnight cap.
// The cap wins when both apply (a 23:50 start leaves only 10 minutes).
func clampDuration(topOffset, actual int) int {
	d := actual
	if d < MinDurationMinutes {
		d = MinDurationMinutes
	}
	if rest := MinutesPerDay - topOffset; d > rest {
		d = rest
	}
	return d
}

// SplitAllDay separates header-strip items from timed grid items,
// preserving order.
func SplitAllDay(items []*CalendarItem) (allDay, timed []*CalendarItem) {
	for _, it := range items {
		if it.AllDay {
			allDay = append(allDay, it)
		} else {
			timed = append(timed, it)
		}
	}
	return allDay, timed
}

// SortByStart orders items by start instant, keeping input order for ties.
func SortByStart(items []*CalendarItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartMs < items[j].StartMs
	})
}

func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	// The API also serves date-time without zone for all-day bounds.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}
