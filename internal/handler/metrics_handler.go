package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayboard/internal/dto"
	"github.com/noah-isme/dayboard/internal/service"
	"github.com/noah-isme/dayboard/pkg/response"
)

type healthSource interface {
	Health() dto.HealthResponse
}

type storePinger interface {
	Ping(ctx context.Context) error
}

const storePingTimeout = 2 * time.Second

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	health  healthSource
	store   storePinger
}

// NewMetricsHandler constructs a metrics handler. store may be nil to skip the database check.
func NewMetricsHandler(metrics *service.MetricsService, health healthSource, store storePinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, health: health, store: store}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness probe
// @Description Ready once the session is mounted, the initial fetch has finished and the database answers.
// @Tags Health
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.health == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	status := h.health.Health()
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), storePingTimeout)
		defer cancel()
		status.Store = "ok"
		if err := h.store.Ping(ctx); err != nil {
			status.Store = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	response.JSON(c, code, status)
}
