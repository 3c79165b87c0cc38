// Package forms validates the new-entry and event forms server-side.
// Validation returns a field-to-message map; the templates re-render the
// form with inline errors next to each field.
package forms

import (
	"regexp"
	"strings"
	"time"

	"timetracker-web/internal/model"
)

const (
	maxTitleLen = 200
	maxNotesLen = 4000
	maxDuration = 24 * time.Hour
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Errors maps a form field name to its validation message. An empty map
// means the form is valid.
type Errors map[string]string

func (e Errors) Valid() bool { return len(e) == 0 }

// Values carries the raw posted fields of the entry/event forms.
type Values struct {
	Title  string
	Start  string
	End    string
	Color  string
	Notes  string
	AllDay bool
}

// ValidateEntry checks a time-entry form. Entries are always timed, so
// the all-day flag is rejected here.
func ValidateEntry(v Values, loc *time.Location) Errors {
	errs := validateCommon(v, loc)
	if v.AllDay {
		errs["allDay"] = "Time entries cannot be all-day."
	}
	return errs
}

// ValidateEvent checks an event form; the all-day flag is allowed and a
// date-only start is accepted for it.
func ValidateEvent(v Values, loc *time.Location) Errors {
	if v.AllDay {
		errs := Errors{}
		checkTitle(v, errs)
		checkNotes(v, errs)
		checkColor(v, errs)
		if _, err := parseEventDay(v.Start, loc); err != nil {
			errs["start"] = "Enter a valid date."
		}
		return errs
	}
	return validateCommon(v, loc)
}

func validateCommon(v Values, loc *time.Location) Errors {
	errs := Errors{}
	checkTitle(v, errs)
	checkNotes(v, errs)
	checkColor(v, errs)

	start, err := ParseLocalTime(v.Start, loc)
	if err != nil {
		errs["start"] = "Enter a valid start time."
		return errs
	}

	if strings.TrimSpace(v.End) != "" {
		end, err := ParseLocalTime(v.End, loc)
		switch {
		case err != nil:
			errs["end"] = "Enter a valid end time."
		case !end.After(start):
			errs["end"] = "End must be after start."
		case end.Sub(start) > maxDuration:
			errs["end"] = "An entry cannot span more than 24 hours."
		}
	}
	return errs
}

func checkTitle(v Values, errs Errors) {
	title := strings.TrimSpace(v.Title)
	if title == "" {
		errs["title"] = "Title is required."
	} else if len(title) > maxTitleLen {
		errs["title"] = "Title is too long."
	}
}

func checkNotes(v Values, errs Errors) {
	if len(v.Notes) > maxNotesLen {
		errs["notes"] = "Notes are too long."
	}
}

func checkColor(v Values, errs Errors) {
	if v.Color != "" && !hexColorRe.MatchString(v.Color) {
		errs["color"] = "Use a #rrggbb color."
	}
}

// ToRecord converts validated form values into the record posted to the
// API. Call only after validation passed; unparseable fields become
// zero values here, never panics.
func ToRecord(v Values, loc *time.Location) model.Record {
	rec := model.Record{
		Kind:   model.KindTimeEntry,
		Title:  strings.TrimSpace(v.Title),
		Color:  strings.TrimSpace(v.Color),
		Notes:  v.Notes,
		AllDay: v.AllDay,
	}
	if v.AllDay {
		rec.Kind = model.KindEvent
		if d, err := parseEventDay(v.Start, loc); err == nil {
			rec.Start = d.Format("2006-01-02")
		}
		return rec
	}
	if start, err := ParseLocalTime(v.Start, loc); err == nil {
		rec.Start = start.Format(time.RFC3339)
	}
	if strings.TrimSpace(v.End) != "" {
		if end, err := ParseLocalTime(v.End, loc); err == nil {
			e := end.Format(time.RFC3339)
			rec.End = &e
		}
	}
	return rec
}

// ParseLocalTime accepts what the browser posts: the datetime-local
// format first, RFC 3339 as the API-side fallback.
func ParseLocalTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseEventDay accepts what an all-day submit carries: a bare date, or
// a timed start whose date part is taken (the form prefills the start
// field in datetime-local format before the checkbox is toggled).
func parseEventDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := ParseLocalTime(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}
