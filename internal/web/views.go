package web

import (
	"fmt"
	"html/template"
	"net/url"
	"time"

	"timetracker-web/internal/format"
	"timetracker-web/internal/layout"
	"timetracker-web/internal/model"
	"timetracker-web/internal/toast"
	"timetracker-web/internal/tour"
)

// One pixel per minute on the day grid; an hour row is 60px tall.
const minuteToPx = 1

// Month cells scale the whole day into a short strip; chips keep a
// minimum height so short items stay clickable.
const (
	monthCellPx   = 96.0
	monthChipMinPx = 14.0
)

type baseVM struct {
	Now        string
	View       string
	Title      string
	StreamURL  string
	Stale      bool
	StaleSince string
	AppVersion string
}

type blockVM struct {
	ID        string
	Kind      string
	Title     string
	Color     string
	TimeLabel string
	DetailURL string
	Running   bool

	LeftPct  float64
	WidthPct float64
	TopPx    int
	HeightPx int
}

type stripVM struct {
	ID        string
	Kind      string
	Title     string
	Color     string
	DetailURL string
}

type hourVM struct {
	Label string
	TopPx int
}

type dayVM struct {
	baseVM
	Date     string
	DayTitle string
	PrevURL  string
	NextURL  string
	AllDay   []stripVM
	Blocks   []blockVM
	Hours    []hourVM
}

type weekDayVM struct {
	Date     string
	Label    string
	IsToday  bool
	DayURL   string
	AllDay   []stripVM
	Blocks   []blockVM
}

type weekVM struct {
	baseVM
	WeekTitle string
	PrevURL   string
	NextURL   string
	Days      []weekDayVM
	Hours     []hourVM
}

type chipVM struct {
	ID        string
	Title     string
	Color     string
	DetailURL string

	LeftPct   float64
	WidthPct  float64
	TopPx     float64
	HeightPx  float64
}

type monthCellVM struct {
	Date      string
	Day       int
	InMonth   bool
	IsToday   bool
	DayURL    string
	Chips     []chipVM
	MoreCount int
}

type monthVM struct {
	baseVM
	MonthTitle string
	PrevURL    string
	NextURL    string
	Weekdays   []string
	Weeks      [][]monthCellVM
}

func detailURL(kind model.ItemKind, id string) string {
	return "/items/" + string(kind) + "/" + url.PathEscape(id)
}

// buildDayBlocks runs the overlap layout over one day's timed items and
// maps the lane assignments to inline percentages and pixel offsets.
func buildDayBlocks(timed []*model.CalendarItem) []blockVM {
	layout.AssignColumnsByTime(timed)

	out := make([]blockVM, 0, len(timed))
	for _, it := range timed {
		left, width := layout.Geometry(it.Column, it.TotalColumns)
		out = append(out, blockVM{
			ID:        it.ID,
			Kind:      string(it.Kind),
			Title:     it.Title,
			Color:     it.Color,
			TimeLabel: format.ClockRange(it.Start, it.End),
			DetailURL: detailURL(it.Kind, it.ID),
			Running:   it.Running,
			LeftPct:   left,
			WidthPct:  width,
			TopPx:     it.TopOffsetMinutes * minuteToPx,
			HeightPx:  it.DurationMinutes * minuteToPx,
		})
	}
	return out
}

func buildStrip(allDay []*model.CalendarItem) []stripVM {
	out := make([]stripVM, 0, len(allDay))
	for _, it := range allDay {
		out = append(out, stripVM{
			ID:        it.ID,
			Kind:      string(it.Kind),
			Title:     it.Title,
			Color:     it.Color,
			DetailURL: detailURL(it.Kind, it.ID),
		})
	}
	return out
}

func hourSlots() []hourVM {
	out := make([]hourVM, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, hourVM{
			Label: fmt.Sprintf("%02d:00", h),
			TopPx: h * 60 * minuteToPx,
		})
	}
	return out
}

func buildDayVM(records []model.Record, day time.Time, now time.Time, loc *time.Location) dayVM {
	items := model.BuildDayItems(records, day, loc)
	allDay, timed := model.SplitAllDay(items)

	return dayVM{
		Date:     day.Format("2006-01-02"),
		DayTitle: format.DayTitle(day, now),
		PrevURL:  "/day/" + day.AddDate(0, 0, -1).Format("2006-01-02"),
		NextURL:  "/day/" + day.AddDate(0, 0, 1).Format("2006-01-02"),
		AllDay:   buildStrip(allDay),
		Blocks:   buildDayBlocks(timed),
		Hours:    hourSlots(),
	}
}

// buildWeekVM lays out seven day columns starting at weekStart (the
// configured first day of the week); the overlap engine runs once per
// column, never across days.
func buildWeekVM(records []model.Record, weekStart time.Time, now time.Time, loc *time.Location) weekVM {
	vm := weekVM{
		WeekTitle: format.WeekTitle(weekStart),
		PrevURL:   "/week/" + weekStart.AddDate(0, 0, -7).Format("2006-01-02"),
		NextURL:   "/week/" + weekStart.AddDate(0, 0, 7).Format("2006-01-02"),
		Hours:     hourSlots(),
	}

	today := now.In(loc).Format("2006-01-02")
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		date := day.Format("2006-01-02")
		items := model.BuildDayItems(records, day, loc)
		allDay, timed := model.SplitAllDay(items)
		vm.Days = append(vm.Days, weekDayVM{
			Date:    date,
			Label:   day.Format("Mon 2"),
			IsToday: date == today,
			DayURL:  "/day/" + date,
			AllDay:  buildStrip(allDay),
			Blocks:  buildDayBlocks(timed),
		})
	}
	return vm
}

// buildMonthCellChips is the legacy position-keyed layout pass: the
// day's timed items are squeezed into a short pixel strip and the
// overlap engine runs on those pixel extents instead of times.
func buildMonthCellChips(timed []*model.CalendarItem) []chipVM {
	for _, it := range timed {
		it.Top = float64(it.TopOffsetMinutes) / model.MinutesPerDay * monthCellPx
		it.Height = float64(it.DurationMinutes) / model.MinutesPerDay * monthCellPx
		if it.Height < monthChipMinPx {
			it.Height = monthChipMinPx
		}
		if it.Top+it.Height > monthCellPx {
			it.Top = monthCellPx - it.Height
		}
	}
	layout.AssignColumnsByPosition(timed)

	out := make([]chipVM, 0, len(timed))
	for _, it := range timed {
		left, width := layout.Geometry(it.Column, it.TotalColumns)
		out = append(out, chipVM{
			ID:        it.ID,
			Title:     it.Title,
			Color:     it.Color,
			DetailURL: detailURL(it.Kind, it.ID),
			LeftPct:   left,
			WidthPct:  width,
			TopPx:     it.Top,
			HeightPx:  it.Height,
		})
	}
	return out
}

const monthCellMaxChips = 3

func buildMonthVM(records []model.Record, anchor time.Time, now time.Time, loc *time.Location, weekStart string) monthVM {
	y, m, _ := anchor.In(loc).Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	vm := monthVM{
		MonthTitle: format.MonthTitle(first),
		PrevURL:    "/month/" + first.AddDate(0, -1, 0).Format("2006-01-02"),
		NextURL:    "/month/" + first.AddDate(0, 1, 0).Format("2006-01-02"),
	}

	// Grid starts on the configured week start at or before the 1st.
	start := model.StartOfWeek(first, weekStart)
	for i := 0; i < 7; i++ {
		vm.Weekdays = append(vm.Weekdays, start.AddDate(0, 0, i).Format("Mon"))
	}
	today := now.In(loc).Format("2006-01-02")

	for week := 0; ; week++ {
		var row []monthCellVM
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, week*7+i)
			date := day.Format("2006-01-02")
			items := model.BuildDayItems(records, day, loc)
			_, timed := model.SplitAllDay(items)

			more := 0
			if len(timed) > monthCellMaxChips {
				more = len(timed) - monthCellMaxChips
				timed = timed[:monthCellMaxChips]
			}
			row = append(row, monthCellVM{
				Date:      date,
				Day:       day.Day(),
				InMonth:   day.Month() == m,
				IsToday:   date == today,
				DayURL:    "/day/" + date,
				Chips:     buildMonthCellChips(timed),
				MoreCount: more,
			})
		}
		vm.Weeks = append(vm.Weeks, row)
		if start.AddDate(0, 0, (week+1)*7).Month() != m && week >= 3 {
			break
		}
	}
	return vm
}

type detailVM struct {
	baseVM
	Item      *model.CalendarItem
	KindLabel string
	TimeLabel string
	Duration  string
	NotesHTML template.HTML
	BackURL   string
}

// findRecordItem locates one record by kind and id and builds its item
// for the day it starts on.
func findRecordItem(records []model.Record, kind model.ItemKind, id string, loc *time.Location) (*model.CalendarItem, bool) {
	for _, rec := range records {
		if rec.Kind != kind || rec.ID != id {
			continue
		}
		day, err := time.Parse(time.RFC3339, rec.Start)
		if err != nil {
			if day, err = time.ParseInLocation("2006-01-02", rec.Start, loc); err != nil {
				return nil, false
			}
		}
		items := model.BuildDayItems([]model.Record{rec}, day.In(loc), loc)
		if len(items) == 0 {
			return nil, false
		}
		return items[0], true
	}
	return nil, false
}

type toastVM struct {
	ID     string
	Level  string
	Title  string
	Body   string
	Action string
}

func buildToastVMs(toasts []toast.Toast) []toastVM {
	out := make([]toastVM, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, toastVM{
			ID:     t.ID,
			Level:  string(t.Level),
			Title:  t.Title,
			Body:   t.Body,
			Action: t.Action,
		})
	}
	return out
}

type tourVM struct {
	Active    bool
	Step      tour.Step
	BodyHTML  template.HTML
	StepIndex int
	StepCount int
}

func buildTourVM(p tour.Progress) tourVM {
	step, ok := tour.Current(p)
	if !ok {
		return tourVM{}
	}
	return tourVM{
		Active:    true,
		Step:      step,
		BodyHTML:  renderMarkdownHTML(step.Body),
		StepIndex: p.StepIndex + 1,
		StepCount: len(tour.Steps()),
	}
}
