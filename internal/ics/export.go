package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calagent/internal/log"
	"calagent/internal/model"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	// Events carry no end time, so exported VEVENTs get a fixed duration.
	defaultDuration = time.Hour
)

// Export renders the given events as a single VCALENDAR payload. Events
// whose date cannot be parsed are logged and skipped; a malformed time
// degrades to an all-day VEVENT on the same date.
func Export(events []model.Event) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//calagent//calendar//EN")

	for _, ev := range events {
		// Resolve the start before creating the VEVENT; a malformed time
		// degrades to an all-day entry, a malformed date skips the event.
		start, timeErr := time.ParseInLocation(dateTimeLayout, ev.Date+" "+ev.Time, time.Local)
		day, dateErr := time.ParseInLocation(dateLayout, ev.Date, time.Local)
		if timeErr != nil && dateErr != nil {
			appLog.Warn("ics export: skipping event with unparseable date",
				"title", ev.Title, "date", ev.Date)
			continue
		}

		ve := cal.AddEvent(eventUID(ev))
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}

		if timeErr != nil {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		ve.SetStartAt(start)
		ve.SetEndAt(start.Add(defaultDuration))
	}

	return []byte(cal.Serialize()), nil
}

// eventUID derives a stable UID from the event's identity fields so that
// repeated exports of the same calendar produce identical payloads.
func eventUID(ev model.Event) string {
	sum := sha256.Sum256([]byte(ev.Title + "\x00" + ev.Date + "\x00" + ev.Time))
	return hex.EncodeToString(sum[:8]) + "@calagent"
}
