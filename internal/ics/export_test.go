package ics

import (
	"strings"
	"testing"
	"time"

	"timetracker-web/internal/model"
)

func TestExportFields(t *testing.T) {
	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	items := []*model.CalendarItem{
		{
			Kind:  model.KindEvent,
			ID:    "ev1",
			Title: "Planning",
			Notes: "Quarterly planning",
			Start: start,
			End:   start.Add(time.Hour),
		},
		{
			Kind:    model.KindTimeEntry,
			ID:      "te1",
			Title:   "Focus",
			Running: true,
			Start:   start.Add(2 * time.Hour),
			End:     start.Add(3 * time.Hour),
		},
	}

	out := Export(items, start)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"UID:event-ev1@timetracker",
		"UID:time_entry-te1@timetracker",
		"SUMMARY:Planning",
		"SUMMARY:Focus (running)",
		"DESCRIPTION:Quarterly planning",
		"DTSTART:20260304T090000Z",
		"DTEND:20260304T100000Z",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in export:\n%s", want, out)
		}
	}

	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestExportAllDay(t *testing.T) {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	items := []*model.CalendarItem{{
		Kind:   model.KindEvent,
		ID:     "conf",
		Title:  "Conference",
		AllDay: true,
		Start:  day,
		End:    day.Add(24*time.Hour - time.Millisecond),
	}}

	out := Export(items, day)
	if !strings.Contains(out, "VALUE=DATE:20260304") {
		t.Fatalf("expected an all-day DTSTART, got:\n%s", out)
	}
}

func TestExportEmpty(t *testing.T) {
	out := Export(nil, time.Unix(0, 0))
	if !strings.Contains(out, "BEGIN:VCALENDAR") || strings.Contains(out, "BEGIN:VEVENT") {
		t.Fatalf("expected an empty calendar, got:\n%s", out)
	}
}
