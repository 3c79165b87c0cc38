package model

import "time"

type ItemKind string

const (
	KindEvent     ItemKind = "event"
	KindTask      ItemKind = "task"
	KindTimeEntry ItemKind = "time_entry"
)

// DefaultColor returns the block color used when a record carries none.
func (k ItemKind) DefaultColor() string {
	switch k {
	case KindTask:
		return "#f59e0b"
	case KindTimeEntry:
		return "#10b981"
	default:
		return "#3b82f6"
	}
}

func (k ItemKind) Label() string {
	switch k {
	case KindTask:
		return "Task"
	case KindTimeEntry:
		return "Time entry"
	default:
		return "Event"
	}
}

// Record is one row as served by the calendar data API. Start and End are
// ISO 8601 strings; End may be absent (open-ended event, running entry,
// point-in-time task due date).
type Record struct {
	ID     string   `json:"id"`
	Kind   ItemKind `json:"kind"`
	Title  string   `json:"title"`
	Start  string   `json:"start"`
	End    *string  `json:"end,omitempty"`
	Color  string   `json:"color,omitempty"`
	Notes  string   `json:"notes,omitempty"`
	RRule  string   `json:"rrule,omitempty"`
	AllDay bool     `json:"allDay,omitempty"`
}

// CalendarItem is the transient per-render unit: one timed block on the
// day grid, rebuilt from fetched records on every render pass.
type CalendarItem struct {
	Kind    ItemKind
	ID      string
	Title   string
	Color   string
	Notes   string
	Running bool
	AllDay  bool

	// Instants clipped to the visible day. Start <= End always holds
	// after construction.
	Start   time.Time
	End     time.Time
	StartMs int64
	EndMs   int64

	// Vertical placement on the day grid.
	TopOffsetMinutes int
	DurationMinutes  int

	// Pixel placement for the month-style layout pass.
	Top    float64
	Height float64

	// Horizontal placement, assigned by the overlap layout engine.
	Column       int
	TotalColumns int
}

type ServerMeta struct {
	Version       string `json:"version"`
	MinAppVersion string `json:"minAppVersion,omitempty"`
}
