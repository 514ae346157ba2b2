package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SheetCell is one day box of a printed month.
type SheetCell struct {
	Day   string
	Muted bool
	Lines []string
}

// MonthSheet is a month grid ready for printing: one row per week, seven cells per row.
type MonthSheet struct {
	Title    string
	Weekdays []string
	Weeks    [][]SheetCell
}

// PDFExporter renders month sheets as a landscape A4 calendar.
type PDFExporter struct {
	// MaxLines caps the entries printed per cell; the rest collapse into a "+N more" line.
	MaxLines int
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{MaxLines: 4}
}

// RenderMonth draws the sheet with a header row of weekday names.
func (e *PDFExporter) RenderMonth(sheet MonthSheet) ([]byte, error) {
	if len(sheet.Weekdays) != 7 {
		return nil, fmt.Errorf("pdf month requires 7 weekday headers, got %d", len(sheet.Weekdays))
	}
	maxLines := e.MaxLines
	if maxLines <= 0 {
		maxLines = 4
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()

	if sheet.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, sheet.Title, "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colWidth := (pageW - left - right) / 7

	pdf.SetFont("Arial", "B", 10)
	for _, label := range sheet.Weekdays {
		pdf.CellFormat(colWidth, 8, label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	if len(sheet.Weeks) == 0 {
		return output(pdf)
	}
	rowHeight := (pageH - pdf.GetY() - bottom) / float64(len(sheet.Weeks))
	if rowHeight < 12 {
		rowHeight = 12
	}

	for _, week := range sheet.Weeks {
		y := pdf.GetY()
		for i, cell := range week {
			x := left + float64(i)*colWidth
			pdf.Rect(x, y, colWidth, rowHeight, "D")

			if cell.Muted {
				pdf.SetTextColor(160, 160, 160)
			} else {
				pdf.SetTextColor(0, 0, 0)
			}
			pdf.SetFont("Arial", "B", 9)
			pdf.SetXY(x+1, y+1)
			pdf.CellFormat(colWidth-2, 4, cell.Day, "", 0, "R", false, 0, "")

			pdf.SetFont("Arial", "", 7)
			lines := cell.Lines
			extra := 0
			if len(lines) > maxLines {
				extra = len(lines) - (maxLines - 1)
				lines = lines[:maxLines-1]
			}
			for j, line := range lines {
				pdf.SetXY(x+1, y+6+float64(j)*3.5)
				pdf.CellFormat(colWidth-2, 3.5, line, "", 0, "L", false, 0, "")
			}
			if extra > 0 {
				pdf.SetXY(x+1, y+6+float64(len(lines))*3.5)
				pdf.CellFormat(colWidth-2, 3.5, fmt.Sprintf("+%d more", extra), "", 0, "L", false, 0, "")
			}
		}
		pdf.SetXY(left, y+rowHeight)
	}
	pdf.SetTextColor(0, 0, 0)
	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
