package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayboard/internal/models"
	"github.com/noah-isme/dayboard/internal/views"
	"github.com/noah-isme/dayboard/pkg/export"
)

type exportSourceStub struct {
	events []models.Event
	today  time.Time
}

func (s exportSourceStub) Events() []models.Event { return s.events }

func (s exportSourceStub) Month(ref time.Time) views.MonthGrid {
	return views.Month(s.events, ref, s.today)
}

func (s exportSourceStub) Location() *time.Location { return time.UTC }

func exportFixture() exportSourceStub {
	return exportSourceStub{
		today: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		events: []models.Event{
			{ID: "1", Title: "Gym", Type: models.EventTypeRoutine, StartDate: time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), CreatedAt: time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)},
			{ID: "2", Title: "Meeting", Type: models.EventTypeTask, StartDate: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
			{ID: "3", Title: "Beach", Type: models.EventTypeAway, StartDate: time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)},
			{ID: "4", Title: "Last May", Type: models.EventTypeTask, StartDate: time.Date(2024, 5, 31, 9, 0, 0, 0, time.UTC)},
		},
	}
}

func TestExportMonthCSV(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, nil, nil)

	file, err := svc.MonthCSV(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "dayboard-2024-06.csv", file.Filename)
	assert.Equal(t, ContentTypeCSV, file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"date", "time", "title", "type"}, records[0])
	assert.Equal(t, []string{"2024-06-01", "07:00", "Gym", "Routine"}, records[1])
	assert.Equal(t, []string{"2024-06-01", "10:00", "Meeting", "Task"}, records[2])
	assert.Equal(t, []string{"2024-06-15", "09:00", "Beach", "Away"}, records[3])
}

func TestExportMonthPDF(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, nil, nil)

	file, err := svc.MonthPDF(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "dayboard-2024-06.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

type failingPDF struct{}

func (failingPDF) RenderMonth(export.MonthSheet) ([]byte, error) {
	return nil, errors.New("font missing")
}

func TestExportMonthPDFRendererError(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, failingPDF{}, nil)

	_, err := svc.MonthPDF(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}

func TestExportEventsICS(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, nil, nil)

	file, err := svc.EventsICS()
	require.NoError(t, err)
	assert.Equal(t, "dayboard.ics", file.Filename)

	cal, err := ical.ParseCalendar(bytes.NewReader(file.Body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "1", events[0].GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Gym", events[0].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Routine", events[0].GetProperty(ical.ComponentPropertyCategories).Value)
	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)))
}
