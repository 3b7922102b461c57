package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// Event is one calendar entry. Weekly events repeat every week.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	Weekly      bool
}

// CalendarExporter renders events as an iCalendar document.
type CalendarExporter struct {
	productID string
}

// NewCalendarExporter constructs an iCalendar exporter.
func NewCalendarExporter(productID string) *CalendarExporter {
	if productID == "" {
		productID = "-//timetable-api//EN"
	}
	return &CalendarExporter{productID: productID}
}

// Render serialises events into a PUBLISH calendar.
func (e *CalendarExporter) Render(name string, events []Event) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetName(name)
	}

	stamp := time.Now().UTC()
	for _, ev := range events {
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("event %s ends before it starts", ev.UID)
		}
		event := cal.AddEvent(ev.UID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(ev.Start)
		event.SetEndAt(ev.End)
		event.SetSummary(ev.Summary)
		if ev.Location != "" {
			event.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			event.SetDescription(ev.Description)
		}
		if ev.Weekly {
			event.AddProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY")
		}
	}
	return []byte(cal.Serialize()), nil
}
