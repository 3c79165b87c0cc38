// Package datatable sorts, filters and paginates time-entry rows for
// the entries table (web) and the entries command (CLI).
package datatable

import (
	"sort"
	"strings"
	"time"

	"timetracker-web/internal/model"
)

type Row struct {
	ID              string
	Kind            model.ItemKind
	Title           string
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Running         bool
}

// Filter narrows rows before pagination. Zero times mean unbounded;
// empty Kinds means all kinds; Query is a case-insensitive substring
// match on the title.
type Filter struct {
	From  time.Time
	To    time.Time
	Kinds []model.ItemKind
	Query string
}

type SortKey string

const (
	SortStart    SortKey = "start"
	SortTitle    SortKey = "title"
	SortDuration SortKey = "duration"
	SortKind     SortKey = "kind"
)

type Sort struct {
	Key  SortKey
	Desc bool
}

// DefaultSort shows the most recent work first.
var DefaultSort = Sort{Key: SortStart, Desc: true}

// SortFromQuery maps ?sort=…&dir=… onto a Sort, falling back to the
// default for unknown keys.
func SortFromQuery(key, dir string) Sort {
	switch SortKey(key) {
	case SortStart, SortTitle, SortDuration, SortKind:
		return Sort{Key: SortKey(key), Desc: dir == "desc"}
	}
	return DefaultSort
}

const (
	minPageSize     = 5
	maxPageSize     = 100
	defaultPageSize = 25
)

type Page struct {
	Number int
	Size   int
}

type Result struct {
	Rows      []Row
	TotalRows int
	Page      int
	PageCount int
	Sort      Sort
}

// Apply runs filter, stable sort and pagination in that order. An
// out-of-range page number clamps to the last page.
func Apply(rows []Row, f Filter, s Sort, p Page) Result {
	filtered := make([]Row, 0, len(rows))
	for _, r := range rows {
		if matches(r, f) {
			filtered = append(filtered, r)
		}
	}

	sortRows(filtered, s)

	size := p.Size
	if size == 0 {
		size = defaultPageSize
	}
	if size < minPageSize {
		size = minPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	total := len(filtered)
	pageCount := (total + size - 1) / size
	page := p.Number
	if page < 1 {
		page = 1
	}
	// No rows still has one (empty) page, so the clamp below holds.
	last := pageCount
	if last < 1 {
		last = 1
	}
	if page > last {
		page = last
	}

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Result{
		Rows:      filtered[start:end],
		TotalRows: total,
		Page:      page,
		PageCount: pageCount,
		Sort:      s,
	}
}

func matches(r Row, f Filter) bool {
	if !f.From.IsZero() && r.Start.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.Start.Before(f.To) {
		return false
	}
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if r.Kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(r.Title), strings.ToLower(q)) {
			return false
		}
	}
	return true
}

func sortRows(rows []Row, s Sort) {
	less := func(a, b Row) bool { return a.Start.Before(b.Start) }
	switch s.Key {
	case SortTitle:
		less = func(a, b Row) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortDuration:
		less = func(a, b Row) bool { return a.DurationMinutes < b.DurationMinutes }
	case SortKind:
		less = func(a, b Row) bool { return a.Kind < b.Kind }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if s.Desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

// FromRecords builds table rows from fetched records. Running entries
// accrue duration up to now.
func FromRecords(records []model.Record, now time.Time, loc *time.Location) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		start, err := time.Parse(time.RFC3339, rec.Start)
		if err != nil {
			continue
		}
		start = start.In(loc)

		row := Row{ID: rec.ID, Kind: rec.Kind, Title: rec.Title, Start: start}
		switch {
		case rec.End != nil:
			if end, err := time.Parse(time.RFC3339, *rec.End); err == nil && end.After(start) {
				row.End = end.In(loc)
			} else {
				row.End = start
			}
		case rec.Kind == model.KindTimeEntry:
			row.Running = true
			row.End = now.In(loc)
		default:
			row.End = start
		}
		row.DurationMinutes = int(row.End.Sub(row.Start) / time.Minute)
		rows = append(rows, row)
	}
	return rows
}
