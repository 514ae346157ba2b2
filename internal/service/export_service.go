package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dayboard/internal/models"
	"github.com/noah-isme/dayboard/internal/views"
	"github.com/noah-isme/dayboard/pkg/export"
)

type exportSource interface {
	Events() []models.Event
	Month(ref time.Time) views.MonthGrid
	Location() *time.Location
}

type csvRenderer interface {
	Render(rows []export.AgendaRow) ([]byte, error)
}

type pdfRenderer interface {
	RenderMonth(sheet export.MonthSheet) ([]byte, error)
}

type icsRenderer interface {
	Render(entries []export.CalendarEntry, name string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export content types.
const (
	ContentTypeCSV = "text/csv"
	ContentTypePDF = "application/pdf"
	ContentTypeICS = "text/calendar; charset=utf-8"
)

// ExportService renders the live collection for download.
type ExportService struct {
	source exportSource
	csv    csvRenderer
	pdf    pdfRenderer
	ics    icsRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(source exportSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, ics icsRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter("")
	}
	return &ExportService{source: source, csv: csv, pdf: pdf, ics: ics, logger: logger}
}

// MonthCSV lists the in-month events of ref's month, one row per event in day order.
func (s *ExportService) MonthCSV(ref time.Time) (*ExportFile, error) {
	grid := s.source.Month(ref)
	loc := s.source.Location()
	var rows []export.AgendaRow
	for _, cell := range grid.Cells {
		if !cell.InMonth {
			continue
		}
		for _, ev := range cell.Events {
			rows = append(rows, export.AgendaRow{Start: ev.StartDate.In(loc), Title: ev.Title, Category: ev.Type.Label()})
		}
	}
	body, err := s.csv.Render(rows)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("dayboard-%s.csv", grid.Month.Format("2006-01")),
		ContentType: ContentTypeCSV,
		Body:        body,
	}, nil
}

// MonthPDF prints ref's month grid.
func (s *ExportService) MonthPDF(ref time.Time) (*ExportFile, error) {
	grid := s.source.Month(ref)
	sheet := export.MonthSheet{Title: grid.Title, Weekdays: grid.Weekdays}
	for i := 0; i < len(grid.Cells); i += 7 {
		week := make([]export.SheetCell, 0, 7)
		for _, cell := range grid.Cells[i : i+7] {
			lines := make([]string, 0, len(cell.Events))
			for _, ev := range cell.Events {
				lines = append(lines, fmt.Sprintf("%s %s", ev.StartDate.In(s.source.Location()).Format("15:04"), ev.Title))
			}
			week = append(week, export.SheetCell{
				Day:   fmt.Sprintf("%d", cell.Day),
				Muted: !cell.InMonth,
				Lines: lines,
			})
		}
		sheet.Weeks = append(sheet.Weeks, week)
	}
	body, err := s.pdf.RenderMonth(sheet)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("dayboard-%s.pdf", grid.Month.Format("2006-01")),
		ContentType: ContentTypePDF,
		Body:        body,
	}, nil
}

// EventsICS writes the whole live collection as an iCalendar feed.
func (s *ExportService) EventsICS() (*ExportFile, error) {
	events := s.source.Events()
	entries := make([]export.CalendarEntry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, export.CalendarEntry{
			UID:      ev.ID,
			Summary:  ev.Title,
			Category: ev.Type.Label(),
			Start:    ev.StartDate,
			Created:  ev.CreatedAt,
		})
	}
	body, err := s.ics.Render(entries, "Dayboard")
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ics export rendered", zap.Int("events", len(entries)))
	return &ExportFile{Filename: "dayboard.ics", ContentType: ContentTypeICS, Body: body}, nil
}
