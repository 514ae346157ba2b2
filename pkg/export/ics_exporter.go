package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// CalendarEntry is one item written to an iCalendar feed.
type CalendarEntry struct {
	UID      string
	Summary  string
	Category string
	Start    time.Time
	Created  time.Time
}

// ICSExporter renders entries as an RFC 5545 calendar.
type ICSExporter struct {
	ProductID string
	now       func() time.Time
}

// NewICSExporter constructs an exporter with the given PRODID.
func NewICSExporter(productID string) *ICSExporter {
	if productID == "" {
		productID = "-//dayboard//events//EN"
	}
	return &ICSExporter{ProductID: productID, now: time.Now}
}

// Render writes one VEVENT per entry. Entries without a UID are rejected.
func (e *ICSExporter) Render(entries []CalendarEntry, name string) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.ProductID)
	if name != "" {
		cal.SetName(name)
	}

	stamp := e.now().UTC()
	for _, entry := range entries {
		if strings.TrimSpace(entry.UID) == "" {
			return nil, fmt.Errorf("ics entry %q has no uid", entry.Summary)
		}
		event := cal.AddEvent(entry.UID)
		event.SetDtStampTime(stamp)
		if !entry.Created.IsZero() {
			event.SetCreatedTime(entry.Created)
		}
		event.SetStartAt(entry.Start)
		event.SetSummary(entry.Summary)
		if entry.Category != "" {
			event.AddProperty(ical.ComponentPropertyCategories, entry.Category)
		}
	}
	return []byte(cal.Serialize()), nil
}
