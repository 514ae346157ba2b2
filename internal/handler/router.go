package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by the API.
type Handlers struct {
	Session *SessionHandler
	Export  *ExportHandler
	Metrics *MetricsHandler
}

// RouteOptions toggles optional route groups.
type RouteOptions struct {
	Prefix        string
	EnableExports bool
	EnableMetrics bool
}

// RegisterRoutes mounts probes at the root and the dashboard API under opts.Prefix.
func RegisterRoutes(r *gin.Engine, h Handlers, opts RouteOptions) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		if opts.EnableMetrics {
			r.GET("/metrics", h.Metrics.Prometheus)
		}
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	if s := h.Session; s != nil {
		api.GET("/view", s.View)
		api.GET("/agenda", s.Agenda)
		api.GET("/week", s.Week)
		api.GET("/month", s.Month)

		api.GET("/events", s.ListEvents)
		api.POST("/events", s.CreateEvent)
		api.POST("/events/:id/complete", s.CompleteEvent)
		api.POST("/sync", s.Sync)

		view := api.Group("/view")
		view.POST("/next-month", s.NextMonth)
		view.POST("/prev-month", s.PrevMonth)
		view.POST("/today", s.Today)
		view.POST("/toggle", s.Toggle)
		view.POST("/select", s.Select)
		view.POST("/modal/open", s.OpenModal)
		view.POST("/modal/close", s.CloseModal)
	}

	if h.Export != nil && opts.EnableExports {
		exports := api.Group("/export")
		exports.GET("/month.csv", h.Export.MonthCSV)
		exports.GET("/month.pdf", h.Export.MonthPDF)
		exports.GET("/events.ics", h.Export.EventsICS)
	}
}
