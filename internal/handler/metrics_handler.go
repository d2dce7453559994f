package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/announcement-sync/internal/service"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
	"github.com/noah-isme/announcement-sync/pkg/response"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics    *service.MetricsService
	ledgerMode string
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, ledgerMode string) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, ledgerMode: ledgerMode}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Pipeline counters
// @Tags Observability
// @Produce json
// @Success 200 {object} models.MetricsSnapshot
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrDisabled, "metrics disabled"))
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness together with the active ledger mode.
func (h *MetricsHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "ledgerMode": h.ledgerMode})
}
