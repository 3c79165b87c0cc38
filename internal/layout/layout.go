// Package layout assigns overlapping calendar blocks to side-by-side
// columns. It is the one genuinely algorithmic piece of the renderer: a
// greedy interval coloring (the minimum-meeting-rooms sweep) over a
// single day's items, plus the percent geometry the templates consume.
package layout

import (
	"sort"

	"timetracker-web/internal/model"
)

// MaxColumns caps how many side-by-side lanes a day can split into.
// Past the cap, extra blocks share the last lane and visibly overlap.
// That is the degradation policy, not a failure.
const MaxColumns = 8

// GapPercent is the fixed horizontal gap between adjacent lanes.
const GapPercent = 1.0

type interval struct {
	start, end float64
}

// AssignColumnsByTime annotates every item with Column and TotalColumns,
// keyed on the clipped time range. Items are mutated in place and
// returned for chaining. Empty input is a no-op.
func AssignColumnsByTime(items []*model.CalendarItem) []*model.CalendarItem {
	assignColumns(items, func(it *model.CalendarItem) interval {
		return interval{start: float64(it.StartMs), end: float64(it.EndMs)}
	})
	return items
}

// AssignColumnsByPosition is the month-style variant: the overlap key is
// the pre-computed vertical pixel extent instead of the time range. The
// column assignment logic is identical.
func AssignColumnsByPosition(items []*model.CalendarItem) []*model.CalendarItem {
	assignColumns(items, func(it *model.CalendarItem) interval {
		return interval{start: it.Top, end: it.Top + it.Height}
	})
	return items
}

// assignColumns sweeps items in start order and reuses the leftmost lane
// that has freed up; a new lane opens only while fewer than MaxColumns
// exist, after which blocks are forced into the last lane. The sort is
// stable, so equal starts keep their input order and assignments are
// reproducible.
//
// One TotalColumns value covers the whole call rather than one per
// overlap cluster, so a lone late-day block inherits the width of the
// busiest part of the day. Kept that way deliberately: the rendered
// output stays byte-identical across refreshes and matches what users
// of the original views expect.
func assignColumns(items []*model.CalendarItem, key func(*model.CalendarItem) interval) {
	if len(items) == 0 {
		return
	}

	sorted := make([]*model.CalendarItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]).start < key(sorted[j]).start
	})

	// columnsEnd[c] holds the end key currently occupying lane c.
	var columnsEnd []float64
	for _, it := range sorted {
		iv := key(it)

		col := -1
		for c, busyUntil := range columnsEnd {
			if busyUntil <= iv.start {
				col = c
				break
			}
		}
		if col < 0 {
			if len(columnsEnd) < MaxColumns {
				col = len(columnsEnd)
				columnsEnd = append(columnsEnd, 0)
			} else {
				col = MaxColumns - 1
			}
		}
		it.Column = col
		columnsEnd[col] = iv.end
	}

	total := len(columnsEnd)
	if total > MaxColumns {
		total = MaxColumns
	}
	if total < 1 {
		total = 1
	}
	for _, it := range sorted {
		it.TotalColumns = total
	}
}

// Geometry maps a lane assignment to inline left/width percentages with
// the fixed 1% gap between lanes. A single lane spans the full width.
func Geometry(column, totalColumns int) (left, width float64) {
	if totalColumns <= 1 {
		return 0, 100
	}
	width = (100 - float64(totalColumns-1)*GapPercent) / float64(totalColumns)
	left = float64(column) * (width + GapPercent)
	return left, width
}
