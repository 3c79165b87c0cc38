// Package ics renders a date window of calendar items as an iCalendar
// feed, for the /calendar.ics route and the export command.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"timetracker-web/internal/model"
)

const productID = "-//TimeTracker//Calendar Export//EN"

// Export serializes one VEVENT per item. UIDs combine kind and ID so an
// event and a time entry sharing an upstream ID stay distinct.
func Export(items []*model.CalendarItem, generatedAt time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, it := range items {
		ev := cal.AddEvent(UID(it))
		ev.SetDtStampTime(generatedAt.UTC())
		ev.SetSummary(summary(it))
		if it.AllDay {
			ev.SetAllDayStartAt(it.Start)
			ev.SetAllDayEndAt(it.Start.AddDate(0, 0, 1))
		} else {
			ev.SetStartAt(it.Start.UTC())
			ev.SetEndAt(it.End.UTC())
		}
		if it.Notes != "" {
			ev.SetDescription(it.Notes)
		}
	}
	return cal.Serialize()
}

// UID builds the stable per-item identifier used in the feed.
func UID(it *model.CalendarItem) string {
	return fmt.Sprintf("%s-%s@timetracker", it.Kind, it.ID)
}

func summary(it *model.CalendarItem) string {
	if it.Kind == model.KindTimeEntry && it.Running {
		return it.Title + " (running)"
	}
	return it.Title
}
