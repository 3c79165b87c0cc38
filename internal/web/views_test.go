package web

import (
	"strings"
	"testing"
	"time"

	"timetracker-web/internal/layout"
	"timetracker-web/internal/model"
	"timetracker-web/internal/toast"
	"timetracker-web/internal/tour"
)

func strPtr(s string) *string { return &s }

func timedRecord(id, start, end string) model.Record {
	return model.Record{ID: id, Kind: model.KindTimeEntry, Title: id, Start: start, End: strPtr(end)}
}

func TestBuildDayBlocks(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	t.Run("overlapping items get distinct lanes", func(t *testing.T) {
		records := []model.Record{
			timedRecord("a", "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z"),
			timedRecord("b", "2026-03-10T09:30:00Z", "2026-03-10T10:30:00Z"),
		}
		items := model.BuildDayItems(records, day, loc)
		_, timed := model.SplitAllDay(items)
		blocks := buildDayBlocks(timed)

		if len(blocks) != 2 {
			t.Fatalf("got %d blocks, want 2", len(blocks))
		}
		if blocks[0].LeftPct == blocks[1].LeftPct {
			t.Fatalf("overlapping blocks share LeftPct %v", blocks[0].LeftPct)
		}
		wantLeft, wantWidth := layout.Geometry(0, 2)
		if blocks[0].LeftPct != wantLeft || blocks[0].WidthPct != wantWidth {
			t.Fatalf("first block geometry = (%v, %v), want (%v, %v)",
				blocks[0].LeftPct, blocks[0].WidthPct, wantLeft, wantWidth)
		}
	})

	t.Run("pixel placement follows minutes", func(t *testing.T) {
		records := []model.Record{timedRecord("a", "2026-03-10T09:00:00Z", "2026-03-10T10:30:00Z")}
		items := model.BuildDayItems(records, day, loc)
		_, timed := model.SplitAllDay(items)
		blocks := buildDayBlocks(timed)

		if blocks[0].TopPx != 9*60 {
			t.Fatalf("TopPx = %d, want %d", blocks[0].TopPx, 9*60)
		}
		if blocks[0].HeightPx != 90 {
			t.Fatalf("HeightPx = %d, want 90", blocks[0].HeightPx)
		}
	})

	t.Run("lone item spans the full width", func(t *testing.T) {
		records := []model.Record{timedRecord("a", "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z")}
		items := model.BuildDayItems(records, day, loc)
		_, timed := model.SplitAllDay(items)
		blocks := buildDayBlocks(timed)

		wantLeft, wantWidth := layout.Geometry(0, 1)
		if blocks[0].LeftPct != wantLeft || blocks[0].WidthPct != wantWidth {
			t.Fatalf("geometry = (%v, %v), want (%v, %v)", blocks[0].LeftPct, blocks[0].WidthPct, wantLeft, wantWidth)
		}
	})
}

func TestBuildDayVM(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	now := day.Add(12 * time.Hour)

	vm := buildDayVM(nil, day, now, loc)
	if vm.Date != "2026-03-10" {
		t.Fatalf("Date = %q", vm.Date)
	}
	if vm.PrevURL != "/day/2026-03-09" || vm.NextURL != "/day/2026-03-11" {
		t.Fatalf("nav URLs = %q, %q", vm.PrevURL, vm.NextURL)
	}
	if len(vm.Hours) != 24 {
		t.Fatalf("got %d hour slots, want 24", len(vm.Hours))
	}
	if vm.Hours[9].Label != "09:00" || vm.Hours[9].TopPx != 540 {
		t.Fatalf("hour slot 9 = %+v", vm.Hours[9])
	}
}

func TestBuildWeekVM(t *testing.T) {
	loc := time.UTC
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	now := monday.Add(36 * time.Hour) // Tuesday

	records := []model.Record{
		// Two overlaps on Monday, one lone item on Wednesday.
		timedRecord("m1", "2026-03-09T09:00:00Z", "2026-03-09T10:00:00Z"),
		timedRecord("m2", "2026-03-09T09:30:00Z", "2026-03-09T10:30:00Z"),
		timedRecord("w1", "2026-03-11T09:00:00Z", "2026-03-11T10:00:00Z"),
	}
	vm := buildWeekVM(records, monday, now, loc)

	if len(vm.Days) != 7 {
		t.Fatalf("got %d day columns, want 7", len(vm.Days))
	}
	if !vm.Days[1].IsToday {
		t.Fatalf("Tuesday not marked today: %+v", vm.Days[1])
	}
	if got := len(vm.Days[0].Blocks); got != 2 {
		t.Fatalf("Monday has %d blocks, want 2", got)
	}

	// The layout runs per column: Wednesday's lone item keeps the full
	// width even though Monday has two lanes.
	wantLeft, wantWidth := layout.Geometry(0, 1)
	wed := vm.Days[2].Blocks
	if len(wed) != 1 || wed[0].LeftPct != wantLeft || wed[0].WidthPct != wantWidth {
		t.Fatalf("Wednesday blocks = %+v, want one full-width block", wed)
	}

	if vm.PrevURL != "/week/2026-03-02" || vm.NextURL != "/week/2026-03-16" {
		t.Fatalf("nav URLs = %q, %q", vm.PrevURL, vm.NextURL)
	}
}

func TestBuildMonthVM(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)

	t.Run("grid starts on the Monday at or before the 1st", func(t *testing.T) {
		// March 2026 starts on a Sunday.
		vm := buildMonthVM(nil, now, now, loc, "monday")
		first := vm.Weeks[0][0]
		if first.Date != "2026-02-23" {
			t.Fatalf("grid starts %s, want 2026-02-23", first.Date)
		}
		if first.InMonth {
			t.Fatalf("leading February cell marked in-month")
		}
	})

	t.Run("today flag and day links", func(t *testing.T) {
		vm := buildMonthVM(nil, now, now, loc, "monday")
		var today *monthCellVM
		for _, week := range vm.Weeks {
			for i := range week {
				if week[i].IsToday {
					today = &week[i]
				}
			}
		}
		if today == nil || today.Date != "2026-03-10" {
			t.Fatalf("today cell = %+v", today)
		}
		if today.DayURL != "/day/2026-03-10" {
			t.Fatalf("DayURL = %q", today.DayURL)
		}
	})

	t.Run("busy cell caps chips and counts the rest", func(t *testing.T) {
		records := []model.Record{
			timedRecord("a", "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z"),
			timedRecord("b", "2026-03-10T10:00:00Z", "2026-03-10T11:00:00Z"),
			timedRecord("c", "2026-03-10T11:00:00Z", "2026-03-10T12:00:00Z"),
			timedRecord("d", "2026-03-10T12:00:00Z", "2026-03-10T13:00:00Z"),
			timedRecord("e", "2026-03-10T13:00:00Z", "2026-03-10T14:00:00Z"),
		}
		vm := buildMonthVM(records, now, now, loc, "monday")
		var cell *monthCellVM
		for _, week := range vm.Weeks {
			for i := range week {
				if week[i].Date == "2026-03-10" {
					cell = &week[i]
				}
			}
		}
		if cell == nil {
			t.Fatal("cell for 2026-03-10 missing")
		}
		if len(cell.Chips) != monthCellMaxChips {
			t.Fatalf("got %d chips, want %d", len(cell.Chips), monthCellMaxChips)
		}
		if cell.MoreCount != 2 {
			t.Fatalf("MoreCount = %d, want 2", cell.MoreCount)
		}
	})

	t.Run("nav URLs step by month", func(t *testing.T) {
		vm := buildMonthVM(nil, now, now, loc, "monday")
		if vm.PrevURL != "/month/2026-02-01" || vm.NextURL != "/month/2026-04-01" {
			t.Fatalf("nav URLs = %q, %q", vm.PrevURL, vm.NextURL)
		}
	})

	t.Run("sunday week start moves the grid and the labels", func(t *testing.T) {
		// March 1st 2026 is a Sunday, so the grid starts on the 1st.
		vm := buildMonthVM(nil, now, now, loc, "sunday")
		if vm.Weeks[0][0].Date != "2026-03-01" {
			t.Fatalf("grid starts %s, want 2026-03-01", vm.Weeks[0][0].Date)
		}
		if vm.Weekdays[0] != "Sun" || vm.Weekdays[6] != "Sat" {
			t.Fatalf("weekday labels = %v", vm.Weekdays)
		}
	})
}

func TestBuildMonthCellChips(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	t.Run("short items keep the minimum height", func(t *testing.T) {
		records := []model.Record{timedRecord("a", "2026-03-10T09:00:00Z", "2026-03-10T09:30:00Z")}
		items := model.BuildDayItems(records, day, loc)
		_, timed := model.SplitAllDay(items)
		chips := buildMonthCellChips(timed)

		if chips[0].HeightPx < monthChipMinPx {
			t.Fatalf("chip height %v below minimum %v", chips[0].HeightPx, monthChipMinPx)
		}
	})

	t.Run("late items stay inside the cell", func(t *testing.T) {
		records := []model.Record{timedRecord("a", "2026-03-10T23:30:00Z", "2026-03-10T23:59:00Z")}
		items := model.BuildDayItems(records, day, loc)
		_, timed := model.SplitAllDay(items)
		chips := buildMonthCellChips(timed)

		if chips[0].TopPx+chips[0].HeightPx > monthCellPx {
			t.Fatalf("chip (%v + %v) overflows the %vpx cell", chips[0].TopPx, chips[0].HeightPx, monthCellPx)
		}
	})

	t.Run("stacked chips overlap by pixels and split lanes", func(t *testing.T) {
		// Ten minutes apart in time, but the minimum chip height makes
		// their pixel extents overlap, so the position pass gives them
		// separate lanes.
		records := []model.Record{
			timedRecord("a", "2026-03-10T09:00:00Z", "2026-03-10T09:10:00Z"),
			timedRecord("b", "2026-03-10T09:10:00Z", "2026-03-10T09:20:00Z"),
		}
		items := model.BuildDayItems(records, day, loc)
		_, timed := model.SplitAllDay(items)
		chips := buildMonthCellChips(timed)

		if len(chips) != 2 {
			t.Fatalf("got %d chips, want 2", len(chips))
		}
		if chips[0].LeftPct == chips[1].LeftPct {
			t.Fatalf("pixel-overlapping chips share LeftPct %v", chips[0].LeftPct)
		}
	})
}

func TestFindRecordItem(t *testing.T) {
	loc := time.UTC
	records := []model.Record{
		timedRecord("abc", "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z"),
		{ID: "holiday", Kind: model.KindEvent, Title: "Holiday", Start: "2026-03-12", AllDay: true},
	}

	t.Run("timed record", func(t *testing.T) {
		it, ok := findRecordItem(records, model.KindTimeEntry, "abc", loc)
		if !ok {
			t.Fatal("record not found")
		}
		if it.ID != "abc" || it.TopOffsetMinutes != 9*60 {
			t.Fatalf("item = %+v", it)
		}
	})

	t.Run("date-only record", func(t *testing.T) {
		it, ok := findRecordItem(records, model.KindEvent, "holiday", loc)
		if !ok {
			t.Fatal("record not found")
		}
		if !it.AllDay {
			t.Fatalf("item not all-day: %+v", it)
		}
	})

	t.Run("kind mismatch", func(t *testing.T) {
		if _, ok := findRecordItem(records, model.KindEvent, "abc", loc); ok {
			t.Fatal("found a time entry under the event kind")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, ok := findRecordItem(records, model.KindTimeEntry, "nope", loc); ok {
			t.Fatal("found a record that does not exist")
		}
	})
}

func TestBuildToastVMs(t *testing.T) {
	vms := buildToastVMs([]toast.Toast{
		{ID: "1", Level: toast.LevelError, Title: "Error loading calendar data", Body: "API unreachable"},
		{ID: "2", Level: toast.LevelWarning, Title: "Still tracking?", Action: "/entries/x/discard-idle?at=2026-03-10T09:00:00Z"},
	})
	if len(vms) != 2 {
		t.Fatalf("got %d toasts, want 2", len(vms))
	}
	if vms[0].Level != "error" || vms[0].Title != "Error loading calendar data" {
		t.Fatalf("first toast = %+v", vms[0])
	}
	if vms[1].Action == "" {
		t.Fatalf("action toast lost its action: %+v", vms[1])
	}
}

func TestBuildTourVM(t *testing.T) {
	t.Run("fresh progress shows the first step", func(t *testing.T) {
		vm := buildTourVM(tour.Progress{})
		if !vm.Active {
			t.Fatal("tour inactive on fresh progress")
		}
		if vm.StepIndex != 1 || vm.StepCount != len(tour.Steps()) {
			t.Fatalf("step counter = %d/%d", vm.StepIndex, vm.StepCount)
		}
		if vm.BodyHTML == "" {
			t.Fatal("step body not rendered")
		}
	})

	t.Run("dismissed tour renders nothing", func(t *testing.T) {
		vm := buildTourVM(tour.Progress{Dismissed: true})
		if vm.Active {
			t.Fatalf("dismissed tour still active: %+v", vm)
		}
	})
}

func TestRenderMarkdownHTML(t *testing.T) {
	t.Run("markdown becomes markup", func(t *testing.T) {
		got := string(renderMarkdownHTML("some **bold** text"))
		if !strings.Contains(got, "<strong>bold</strong>") {
			t.Fatalf("markdown not rendered: %q", got)
		}
	})

	t.Run("raw html is stripped", func(t *testing.T) {
		got := string(renderMarkdownHTML(`<script>alert(1)</script>`))
		if strings.Contains(got, "<script>") {
			t.Fatalf("raw html leaked through: %q", got)
		}
	})

	t.Run("bare urls autolink", func(t *testing.T) {
		got := string(renderMarkdownHTML("see https://example.com/review"))
		if !strings.Contains(got, `<a href="https://example.com/review"`) {
			t.Fatalf("url not linkified: %q", got)
		}
	})

	t.Run("strikethrough renders", func(t *testing.T) {
		got := string(renderMarkdownHTML("~~dropped~~ kept"))
		if !strings.Contains(got, "<del>dropped</del>") {
			t.Fatalf("strikethrough not rendered: %q", got)
		}
	})
}
