package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"

	"timetracker-web/internal/format"
	"timetracker-web/internal/layout"
	"timetracker-web/internal/model"
)

const (
	railWidth   = 6  // "09:00 "
	minLaneCols = 10 // below this the timeline degrades to a list
)

var (
	railStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	staleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func blockStyle(color string, selected bool) lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	if selected {
		st = selectedStyle
	}
	return st
}

// renderTimeline draws one day as an hour rail plus side-by-side lanes.
// Lane assignment comes from the same overlap engine the web grid uses;
// each lane is a fixed character width and an item occupies its lane's
// cell on every hour row its span covers.
func renderTimeline(timed []*model.CalendarItem, width int, selected int) string {
	if len(timed) == 0 {
		return mutedStyle.Render("Nothing scheduled.")
	}
	layout.AssignColumnsByTime(timed)

	lanes := 1
	for _, it := range timed {
		if it.TotalColumns > lanes {
			lanes = it.TotalColumns
		}
	}
	laneW := (width - railWidth) / lanes
	if laneW < minLaneCols {
		return renderList(timed, width, selected)
	}

	firstHour, lastHour := hourSpan(timed)

	var b strings.Builder
	for h := firstHour; h <= lastHour; h++ {
		cells := make([]string, lanes)
		for i := range cells {
			cells[i] = strings.Repeat(" ", laneW)
		}
		for idx, it := range timed {
			startH := it.TopOffsetMinutes / 60
			endH := (it.TopOffsetMinutes + it.DurationMinutes - 1) / 60
			if h < startH || h > endH {
				continue
			}
			cell := "│" + strings.Repeat(" ", laneW-1)
			if h == startH {
				cell = ansi.Truncate("▌"+it.Title, laneW, "…")
				if n := laneW - ansi.StringWidth(cell); n > 0 {
					cell += strings.Repeat(" ", n)
				}
			}
			cells[it.Column] = blockStyle(it.Color, idx == selected).Render(cell)
		}
		b.WriteString(railStyle.Render(fmt.Sprintf("%02d:00 ", h)))
		b.WriteString(strings.Join(cells, ""))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderList is the narrow-terminal fallback: one line per item.
func renderList(timed []*model.CalendarItem, width int, selected int) string {
	var b strings.Builder
	for idx, it := range timed {
		line := format.ClockRange(it.Start, it.End) + "  " + it.Title
		if it.Running {
			line += " ●"
		}
		line = ansi.Truncate(line, width, "…")
		b.WriteString(blockStyle(it.Color, idx == selected).Render(line))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAllDay(allDay []*model.CalendarItem, width int) string {
	if len(allDay) == 0 {
		return ""
	}
	parts := make([]string, 0, len(allDay))
	for _, it := range allDay {
		parts = append(parts, blockStyle(it.Color, false).Render("■ "+it.Title))
	}
	return ansi.Truncate(strings.Join(parts, "  "), width, "…")
}

// renderDetail is the bottom pane for the selected item.
func renderDetail(it *model.CalendarItem, width int) string {
	if it == nil {
		return ""
	}
	head := it.Kind.Label() + " · " + format.ClockRange(it.Start, it.End) +
		" (" + format.Duration(it.DurationMinutes) + ")"
	if it.Running {
		head += " · running"
	}
	out := titleStyle.Render(it.Title) + "\n" + mutedStyle.Render(head)
	if notes := strings.TrimSpace(it.Notes); notes != "" {
		out += "\n" + wordwrap.String(notes, width)
	}
	return out
}

// hourSpan returns the first and last hour rows worth drawing, padded by
// one hour on each side and clamped to the day.
func hourSpan(timed []*model.CalendarItem) (first, last int) {
	first, last = 24, 0
	for _, it := range timed {
		start := it.TopOffsetMinutes / 60
		end := (it.TopOffsetMinutes + it.DurationMinutes - 1) / 60
		if start < first {
			first = start
		}
		if end > last {
			last = end
		}
	}
	if first > 0 {
		first--
	}
	if last < 23 {
		last++
	}
	return first, last
}
