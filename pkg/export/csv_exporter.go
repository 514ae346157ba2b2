package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// AgendaRow is one calendar item in a tabular export. Start is written in its own location.
type AgendaRow struct {
	Start    time.Time
	Title    string
	Category string
}

// AgendaColumns is the header line of every agenda CSV.
var AgendaColumns = []string{"date", "time", "title", "type"}

// CSVExporter writes agenda rows as CSV, one line per item.
type CSVExporter struct {
	DateLayout string
	TimeLayout string
}

// NewCSVExporter builds a CSV exporter with ISO dates and 24h times.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{DateLayout: "2006-01-02", TimeLayout: "15:04"}
}

// Render writes the header and one record per row, in the given order.
func (e *CSVExporter) Render(rows []AgendaRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(AgendaColumns); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Start.Format(e.DateLayout),
			row.Start.Format(e.TimeLayout),
			cellText(row.Title),
			row.Category,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// cellText keeps spreadsheets from evaluating user text as a formula.
func cellText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
