package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayboard/internal/dto"
	"github.com/noah-isme/dayboard/internal/middleware"
	"github.com/noah-isme/dayboard/internal/models"
	"github.com/noah-isme/dayboard/internal/service"
	"github.com/noah-isme/dayboard/internal/views"
	appErrors "github.com/noah-isme/dayboard/pkg/errors"
	"github.com/noah-isme/dayboard/pkg/response"
)

type sessionService interface {
	dateSource
	View() dto.ViewResponse
	Agenda(ref time.Time) views.Agenda
	Week(ref time.Time) views.WeekStrip
	Month(ref time.Time) views.MonthGrid
	Events() []models.Event
	FetchRemote(ctx context.Context) ([]models.Event, error)
	Submit(ctx context.Context, req service.CreateEventRequest) (dto.SubmitResult, error)
	Complete(id string) error
	NextMonth() error
	PrevMonth() error
	GoToToday() error
	SelectDate(date time.Time) error
	ToggleView() error
	OpenAddModal() error
	CloseAddModal() error
	Resync(ctx context.Context) (dto.SyncResult, error)
}

// SessionHandler exposes the mounted dashboard: projections, the add form and navigation intents.
type SessionHandler struct {
	session sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(session sessionService) *SessionHandler {
	return &SessionHandler{session: session}
}

// View godoc
// @Summary Active view projection
// @Description Dashboard mode returns the day agenda and week strip, month mode the month grid.
// @Tags View
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /view [get]
func (h *SessionHandler) View(c *gin.Context) {
	h.respondView(c)
}

func (h *SessionHandler) respondView(c *gin.Context) {
	view := h.session.View()
	middleware.SetSnapshotVersion(c, view.Version)
	response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c))
}

// Agenda godoc
// @Summary Day agenda
// @Tags View
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to the reference date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /agenda [get]
func (h *SessionHandler) Agenda(c *gin.Context) {
	ref, err := dateQuery(c, h.session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.session.Agenda(ref), middleware.ExtractMeta(c))
}

// Week godoc
// @Summary Week density strip
// @Tags View
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to the reference date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /week [get]
func (h *SessionHandler) Week(c *gin.Context) {
	ref, err := dateQuery(c, h.session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.session.Week(ref), middleware.ExtractMeta(c))
}

// Month godoc
// @Summary Month grid
// @Tags View
// @Produce json
// @Param date query string false "Any date in the month (YYYY-MM-DD). Defaults to the reference date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /month [get]
func (h *SessionHandler) Month(c *gin.Context) {
	ref, err := dateQuery(c, h.session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.session.Month(ref), middleware.ExtractMeta(c))
}

// ListEvents godoc
// @Summary List events
// @Description Returns the live collection, or with source=remote a direct read of the events table.
// @Tags Events
// @Produce json
// @Param source query string false "live (default) or remote"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /events [get]
func (h *SessionHandler) ListEvents(c *gin.Context) {
	switch strings.ToLower(strings.TrimSpace(c.Query("source"))) {
	case "", "live":
		events := h.session.Events()
		response.JSON(c, http.StatusOK, events, map[string]interface{}{"source": "live", "count": len(events)})
	case "remote":
		events, err := h.session.FetchRemote(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, events, map[string]interface{}{"source": "remote", "count": len(events)})
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "source must be live or remote"))
	}
}

// CreateEvent godoc
// @Summary Submit the add-item form
// @Description The item appears in the live collection once its change notification arrives. A blank title is ignored.
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.CreateEventRequest true "Title and type (task, routine, away)"
// @Success 200 {object} response.Envelope "blank title, nothing submitted"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /events [post]
func (h *SessionHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.session.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Submitted {
		response.JSON(c, http.StatusOK, result)
		return
	}
	response.Accepted(c, result)
}

// CompleteEvent godoc
// @Summary Mark an item done for this session
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/complete [post]
func (h *SessionHandler) CompleteEvent(c *gin.Context) {
	if err := h.session.Complete(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.respondView(c)
}

// NextMonth godoc
// @Summary Move the reference date one month forward
// @Tags View
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /view/next-month [post]
func (h *SessionHandler) NextMonth(c *gin.Context) {
	h.intent(c, h.session.NextMonth)
}

// PrevMonth godoc
// @Summary Move the reference date one month back
// @Tags View
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /view/prev-month [post]
func (h *SessionHandler) PrevMonth(c *gin.Context) {
	h.intent(c, h.session.PrevMonth)
}

// Today godoc
// @Summary Jump back to today
// @Tags View
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /view/today [post]
func (h *SessionHandler) Today(c *gin.Context) {
	h.intent(c, h.session.GoToToday)
}

// Toggle godoc
// @Summary Switch between dashboard and month grid
// @Tags View
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /view/toggle [post]
func (h *SessionHandler) Toggle(c *gin.Context) {
	h.intent(c, h.session.ToggleView)
}

// Select godoc
// @Summary Select a date
// @Tags View
// @Accept json
// @Produce json
// @Param payload body dto.SelectDateRequest true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /view/select [post]
func (h *SessionHandler) Select(c *gin.Context) {
	var req dto.SelectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	date, err := parseDate(req.Date, "date", h.session.Location())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.intent(c, func() error { return h.session.SelectDate(date) })
}

// OpenModal godoc
// @Summary Open the add-item form
// @Tags View
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /view/modal/open [post]
func (h *SessionHandler) OpenModal(c *gin.Context) {
	h.intent(c, h.session.OpenAddModal)
}

// CloseModal godoc
// @Summary Dismiss the add-item form
// @Tags View
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /view/modal/close [post]
func (h *SessionHandler) CloseModal(c *gin.Context) {
	h.intent(c, h.session.CloseAddModal)
}

func (h *SessionHandler) intent(c *gin.Context, apply func() error) {
	if err := apply(); err != nil {
		response.Error(c, err)
		return
	}
	h.respondView(c)
}

// Sync godoc
// @Summary Refetch every event now
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sync [post]
func (h *SessionHandler) Sync(c *gin.Context) {
	result, err := h.session.Resync(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
