package tui

import (
	"strings"
	"testing"
	"time"

	"timetracker-web/internal/model"
)

func dayItems(t *testing.T, records []model.Record) ([]*model.CalendarItem, []*model.CalendarItem) {
	t.Helper()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	items := model.BuildDayItems(records, day, time.UTC)
	return model.SplitAllDay(items)
}

func strPtr(s string) *string { return &s }

func TestRenderTimeline(t *testing.T) {
	t.Run("empty day", func(t *testing.T) {
		got := renderTimeline(nil, 80, 0)
		if !strings.Contains(got, "Nothing scheduled") {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("titles land on their start hour", func(t *testing.T) {
		_, timed := dayItems(t, []model.Record{
			{ID: "a", Kind: model.KindTimeEntry, Title: "Deep work", Start: "2026-03-10T09:00:00Z", End: strPtr("2026-03-10T11:00:00Z")},
		})
		got := renderTimeline(timed, 80, -1)

		lines := strings.Split(got, "\n")
		var nineRow string
		for _, l := range lines {
			if strings.Contains(l, "09:00") {
				nineRow = l
			}
		}
		if !strings.Contains(nineRow, "Deep work") {
			t.Fatalf("title missing from 09:00 row: %q", nineRow)
		}
		// The 10:00 row carries the continuation bar, not the title.
		for _, l := range lines {
			if strings.Contains(l, "10:00") && strings.Contains(l, "Deep work") {
				t.Fatalf("title repeated on continuation row: %q", l)
			}
		}
	})

	t.Run("hour rows span the items with padding", func(t *testing.T) {
		_, timed := dayItems(t, []model.Record{
			{ID: "a", Kind: model.KindTimeEntry, Title: "Standup", Start: "2026-03-10T09:00:00Z", End: strPtr("2026-03-10T09:15:00Z")},
		})
		got := renderTimeline(timed, 80, -1)
		if !strings.Contains(got, "08:00") || !strings.Contains(got, "10:00") {
			t.Fatalf("padding hours missing:\n%s", got)
		}
		if strings.Contains(got, "06:00") {
			t.Fatalf("far-away hour rendered:\n%s", got)
		}
	})

	t.Run("overlapping items occupy separate lanes", func(t *testing.T) {
		_, timed := dayItems(t, []model.Record{
			{ID: "a", Kind: model.KindTimeEntry, Title: "Alpha", Start: "2026-03-10T09:00:00Z", End: strPtr("2026-03-10T10:00:00Z")},
			{ID: "b", Kind: model.KindTimeEntry, Title: "Beta", Start: "2026-03-10T09:30:00Z", End: strPtr("2026-03-10T10:30:00Z")},
		})
		got := renderTimeline(timed, 80, -1)

		for _, l := range strings.Split(got, "\n") {
			if strings.Contains(l, "Alpha") && strings.Contains(l, "Beta") {
				return // both titles share a row side by side
			}
		}
		t.Fatalf("overlapping titles never share a row:\n%s", got)
	})

	t.Run("narrow terminal falls back to a list", func(t *testing.T) {
		_, timed := dayItems(t, []model.Record{
			{ID: "a", Kind: model.KindTimeEntry, Title: "Alpha", Start: "2026-03-10T09:00:00Z", End: strPtr("2026-03-10T10:00:00Z")},
			{ID: "b", Kind: model.KindTimeEntry, Title: "Beta", Start: "2026-03-10T09:30:00Z", End: strPtr("2026-03-10T10:30:00Z")},
		})
		got := renderTimeline(timed, 20, -1)
		if strings.Contains(got, "08:00") {
			t.Fatalf("narrow render kept the hour grid:\n%s", got)
		}
		if !strings.Contains(got, "Alpha") || !strings.Contains(got, "Beta") {
			t.Fatalf("list fallback lost items:\n%s", got)
		}
	})
}

func TestRenderAllDay(t *testing.T) {
	allDay, _ := dayItems(t, []model.Record{
		{ID: "h", Kind: model.KindEvent, Title: "Holiday", Start: "2026-03-10", AllDay: true},
	})
	got := renderAllDay(allDay, 80)
	if !strings.Contains(got, "Holiday") {
		t.Fatalf("got %q", got)
	}
	if renderAllDay(nil, 80) != "" {
		t.Fatal("empty strip rendered something")
	}
}

func TestRenderDetail(t *testing.T) {
	_, timed := dayItems(t, []model.Record{
		{ID: "a", Kind: model.KindTimeEntry, Title: "Deep work", Start: "2026-03-10T09:00:00Z", End: strPtr("2026-03-10T10:30:00Z"), Notes: "focus block"},
	})
	got := renderDetail(timed[0], 60)
	if !strings.Contains(got, "Deep work") || !strings.Contains(got, "focus block") {
		t.Fatalf("detail pane incomplete:\n%s", got)
	}
	if !strings.Contains(got, "1h 30m") {
		t.Fatalf("duration missing:\n%s", got)
	}
	if renderDetail(nil, 60) != "" {
		t.Fatal("nil item rendered something")
	}
}

func TestHourSpan(t *testing.T) {
	_, timed := dayItems(t, []model.Record{
		{ID: "a", Kind: model.KindTimeEntry, Title: "a", Start: "2026-03-10T09:00:00Z", End: strPtr("2026-03-10T10:00:00Z")},
		{ID: "b", Kind: model.KindTimeEntry, Title: "b", Start: "2026-03-10T14:00:00Z", End: strPtr("2026-03-10T15:00:00Z")},
	})
	first, last := hourSpan(timed)
	if first != 8 || last != 15 {
		t.Fatalf("span = %d..%d, want 8..15", first, last)
	}
}
