package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayboard/internal/service"
	"github.com/noah-isme/dayboard/pkg/response"
)

type exportService interface {
	MonthCSV(ref time.Time) (*service.ExportFile, error)
	MonthPDF(ref time.Time) (*service.ExportFile, error)
	EventsICS() (*service.ExportFile, error)
}

// ExportHandler serves downloads of the live collection.
type ExportHandler struct {
	exports exportService
	dates   dateSource
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportService, dates dateSource) *ExportHandler {
	return &ExportHandler{exports: exports, dates: dates}
}

// MonthCSV godoc
// @Summary Download a month as CSV
// @Tags Export
// @Produce text/csv
// @Param date query string false "Any date in the month (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /export/month.csv [get]
func (h *ExportHandler) MonthCSV(c *gin.Context) {
	h.monthExport(c, h.exports.MonthCSV)
}

// MonthPDF godoc
// @Summary Download a printable month grid
// @Tags Export
// @Produce application/pdf
// @Param date query string false "Any date in the month (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /export/month.pdf [get]
func (h *ExportHandler) MonthPDF(c *gin.Context) {
	h.monthExport(c, h.exports.MonthPDF)
}

func (h *ExportHandler) monthExport(c *gin.Context, render func(time.Time) (*service.ExportFile, error)) {
	ref, err := dateQuery(c, h.dates)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := render(ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// EventsICS godoc
// @Summary Download every event as iCalendar
// @Tags Export
// @Produce text/calendar
// @Success 200 {file} file
// @Router /export/events.ics [get]
func (h *ExportHandler) EventsICS(c *gin.Context) {
	file, err := h.exports.EventsICS()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
