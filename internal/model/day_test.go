package model

import (
	"testing"
	"time"
)

var day = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestBuildDayItems_SyntheticEnds(t *testing.T) {
	records := []Record{
		{ID: "ev", Kind: KindEvent, Title: "Standup", Start: "2026-03-04T09:00:00Z"},
		{ID: "te", Kind: KindTimeEntry, Title: "Focus", Start: "2026-03-04T10:00:00Z"},
		{ID: "tk", Kind: KindTask, Title: "Ship report", Start: "2026-03-04T11:00:00Z"},
	}
	items := BuildDayItems(records, day, time.UTC)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	if got := items[0].DurationMinutes; got != 60 {
		t.Fatalf("open-ended event should span 60 minutes, got %d", got)
	}
	if got := items[1].DurationMinutes; got != 30 {
		t.Fatalf("running entry should span 30 minutes, got %d", got)
	}
	if !items[1].Running {
		t.Fatalf("entry without stop should be marked running")
	}
	if got := items[2].DurationMinutes; got != 30 {
		t.Fatalf("point-in-time task should widen to the 30-minute floor, got %d", got)
	}
	if items[2].Running {
		t.Fatalf("task must not be marked running")
	}
}

func TestBuildDayItems_ZeroDurationClampsToFloor(t *testing.T) {
	records := []Record{{
		ID:    "pt",
		Kind:  KindTask,
		Start: "2026-03-04T13:00:00Z",
		End:   strPtr("2026-03-04T13:00:00Z"),
	}}
	items := BuildDayItems(records, day, time.UTC)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.DurationMinutes != MinDurationMinutes {
		t.Fatalf("expected the 30-minute floor, got %d", it.DurationMinutes)
	}
	if got := it.End.Sub(it.Start); got != 30*time.Minute {
		t.Fatalf("layout extent should match the floor, got %v", got)
	}
}

func TestBuildDayItems_LateStartCappedAtMidnight(t *testing.T) {
	records := []Record{{
		ID:    "late",
		Kind:  KindEvent,
		Start: "2026-03-04T23:50:00Z",
		End:   strPtr("2026-03-05T00:50:00Z"),
	}}
	items := BuildDayItems(records, day, time.UTC)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.TopOffsetMinutes != 1430 {
		t.Fatalf("expected top offset 1430, got %d", it.TopOffsetMinutes)
	}
	// 1440 - 1430 leaves 10 minutes; the midnight cap beats the floor.
	if it.DurationMinutes != 10 {
		t.Fatalf("expected duration capped to 10, got %d", it.DurationMinutes)
	}
	if dayEnd := day.Add(24*time.Hour - time.Millisecond); it.End.After(dayEnd) {
		t.Fatalf("extent overflows the day: %v", it.End)
	}
}

func TestBuildDayItems_ClipsToDayBounds(t *testing.T) {
	records := []Record{{
		ID:    "overnight",
		Kind:  KindTimeEntry,
		Start: "2026-03-03T22:00:00Z",
		End:   strPtr("2026-03-04T02:30:00Z"),
	}}
	items := BuildDayItems(records, day, time.UTC)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.TopOffsetMinutes != 0 {
		t.Fatalf("clipped start should sit at midnight, got offset %d", it.TopOffsetMinutes)
	}
	if it.DurationMinutes != 150 {
		t.Fatalf("expected 150 visible minutes, got %d", it.DurationMinutes)
	}
	if it.Running {
		t.Fatalf("entry with a stop must not be running")
	}
}

func TestBuildDayItems_DropsAndSkips(t *testing.T) {
	t.Run("unparseable_start", func(t *testing.T) {
		records := []Record{{ID: "bad", Kind: KindEvent, Start: "not-a-time"}}
		if items := BuildDayItems(records, day, time.UTC); len(items) != 0 {
			t.Fatalf("expected malformed record to be dropped, got %d items", len(items))
		}
	})

	t.Run("other_day", func(t *testing.T) {
		records := []Record{{ID: "tomorrow", Kind: KindEvent, Start: "2026-03-05T09:00:00Z"}}
		if items := BuildDayItems(records, day, time.UTC); len(items) != 0 {
			t.Fatalf("expected off-day record to be skipped, got %d items", len(items))
		}
	})

	t.Run("malformed_end_tolerated", func(t *testing.T) {
		records := []Record{{ID: "e", Kind: KindTask, Start: "2026-03-04T09:00:00Z", End: strPtr("junk")}}
		items := BuildDayItems(records, day, time.UTC)
		if len(items) != 1 || items[0].DurationMinutes != MinDurationMinutes {
			t.Fatalf("expected the floor fallback, got %+v", items)
		}
	})
}

func TestBuildDayItems_Colors(t *testing.T) {
	records := []Record{
		{ID: "own", Kind: KindEvent, Start: "2026-03-04T09:00:00Z", Color: "#aabbcc"},
		{ID: "junk", Kind: KindEvent, Start: "2026-03-04T10:00:00Z", Color: "blue"},
		{ID: "none", Kind: KindTimeEntry, Start: "2026-03-04T11:00:00Z"},
	}
	items := BuildDayItems(records, day, time.UTC)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Color != "#aabbcc" {
		t.Fatalf("valid hex color should be kept, got %q", items[0].Color)
	}
	if items[1].Color != KindEvent.DefaultColor() {
		t.Fatalf("invalid color should fall back to the kind default, got %q", items[1].Color)
	}
	if items[2].Color != KindTimeEntry.DefaultColor() {
		t.Fatalf("missing color should fall back to the kind default, got %q", items[2].Color)
	}
}

func TestBuildDayItems_AllDaySplit(t *testing.T) {
	records := []Record{
		{ID: "strip", Kind: KindEvent, Start: "2026-03-04", AllDay: true},
		{ID: "timed", Kind: KindEvent, Start: "2026-03-04T09:00:00Z"},
	}
	items := BuildDayItems(records, day, time.UTC)
	allDay, timed := SplitAllDay(items)
	if len(allDay) != 1 || allDay[0].ID != "strip" {
		t.Fatalf("expected one all-day item, got %+v", allDay)
	}
	if len(timed) != 1 || timed[0].ID != "timed" {
		t.Fatalf("expected one timed item, got %+v", timed)
	}
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(day.Add(13*time.Hour), time.UTC)
	if !start.Equal(day) {
		t.Fatalf("expected midnight start, got %v", start)
	}
	if want := day.Add(24*time.Hour - time.Millisecond); !end.Equal(want) {
		t.Fatalf("expected 23:59:59.999 end, got %v", end)
	}
}

func TestSortByStart_StableForTies(t *testing.T) {
	a := &CalendarItem{ID: "a", StartMs: 100}
	b := &CalendarItem{ID: "b", StartMs: 100}
	c := &CalendarItem{ID: "c", StartMs: 50}
	items := []*CalendarItem{a, b, c}
	SortByStart(items)
	if items[0].ID != "c" || items[1].ID != "a" || items[2].ID != "b" {
		t.Fatalf("unexpected order: %s %s %s", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestStartOfWeek(t *testing.T) {
	// 2026-03-10 is a Tuesday.
	tue := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name      string
		weekStart string
		in        time.Time
		want      string
	}{
		{"monday_default", "monday", tue, "2026-03-09"},
		{"unknown_falls_back_to_monday", "", tue, "2026-03-09"},
		{"sunday", "sunday", tue, "2026-03-08"},
		{"sunday_on_sunday_is_itself", "sunday", time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), "2026-03-08"},
		{"monday_on_sunday_goes_back_six", "monday", time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), "2026-03-02"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := StartOfWeek(c.in, c.weekStart)
			if got.Format("2006-01-02") != c.want {
				t.Fatalf("StartOfWeek = %s, want %s", got.Format("2006-01-02"), c.want)
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Fatalf("expected midnight, got %v", got)
			}
		})
	}
}
