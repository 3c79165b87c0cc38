// Package recurrence expands repeating records into concrete
// occurrences before calendar construction. Only the subset the data
// API serves is handled: an RRULE on the record, no exception dates.
package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"

	"timetracker-web/internal/model"
)

// Cap on occurrences per record, against runaway rules.
const maxOccurrences = 1000

// Expand replaces every record carrying an RRULE with its occurrences
// inside [from, to]. Plain records pass through untouched, as does a
// record whose rule fails to parse (it renders at its own start rather
// than disappearing). Instance IDs get the occurrence date appended so
// detail links stay unique.
func Expand(records []model.Record, from, to time.Time) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if rec.RRule == "" {
			out = append(out, rec)
			continue
		}

		start, err := time.Parse(time.RFC3339, rec.Start)
		if err != nil {
			out = append(out, rec)
			continue
		}

		rule, err := rrule.StrToRRule(rec.RRule)
		if err != nil {
			base := rec
			base.RRule = ""
			out = append(out, base)
			continue
		}
		rule.DTStart(start)

		var dur time.Duration
		if rec.End != nil {
			if end, err := time.Parse(time.RFC3339, *rec.End); err == nil && end.After(start) {
				dur = end.Sub(start)
			}
		}

		// Between wants the window in the rule's own location.
		occs := rule.Between(from.In(start.Location()), to.In(start.Location()), true)
		if len(occs) > maxOccurrences {
			occs = occs[:maxOccurrences]
		}

		for _, occStart := range occs {
			inst := rec
			inst.RRule = ""
			inst.ID = rec.ID + ":" + occStart.Format("20060102")
			inst.Start = occStart.Format(time.RFC3339)
			if dur > 0 {
				end := occStart.Add(dur).Format(time.RFC3339)
				inst.End = &end
			} else {
				inst.End = nil
			}
			out = append(out, inst)
		}
	}
	return out
}
