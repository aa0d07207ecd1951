// Package ics renders events as iCalendar documents for download.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
)

const (
	ProductID   = "-//gestaoEventos//eventdesk//EN"
	ContentType = "text/calendar; charset=utf-8"

	// floatingLayout has no zone suffix, so calendar apps show the event at
	// the same wall-clock time it was entered.
	floatingLayout = "20060102T150405"
)

// Export returns a VCALENDAR with one VEVENT for e. domain qualifies the UID
// and stamp is the DTSTAMP.
func Export(e model.Event, domain string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	ev := cal.AddEvent(UID(e.ID, domain))
	ev.SetDtStampTime(stamp.UTC())
	ev.SetSummary(e.Title)
	if e.Description != "" {
		ev.SetDescription(e.Description)
	}
	if e.Location != "" {
		ev.SetLocation(e.Location)
	}
	if !e.OccursAt.IsZero() {
		ev.SetProperty(ical.ComponentPropertyDtStart, e.OccursAt.In(time.UTC).Format(floatingLayout))
	}
	return cal.Serialize()
}

// UID is the stable identifier of an event across exports.
func UID(id int64, domain string) string {
	if domain == "" {
		domain = "localhost"
	}
	return fmt.Sprintf("event-%d@%s", id, domain)
}

// Filename suggests a download name.
func Filename(id int64) string {
	return fmt.Sprintf("event-%d.ics", id)
}
