package http

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AdMonitor/internal/domain/ingest"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/protocol"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/reconciler"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// Connector reports whether the browser bridge is attached
type Connector interface {
	Connected() bool
}

// Handlers serves the ad monitor API
type Handlers struct {
	ingestor   *ingest.Ingestor
	dispatcher *protocol.Dispatcher
	reconciler *reconciler.Reconciler
	bridge     Connector
	metrics    *monitoring.Metrics
	logger     *logging.Logger
}

// NewHandlers creates the handlers
func NewHandlers(
	ingestor *ingest.Ingestor,
	dispatcher *protocol.Dispatcher,
	rec *reconciler.Reconciler,
	bridge Connector,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		ingestor:   ingestor,
		dispatcher: dispatcher,
		reconciler: rec,
		bridge:     bridge,
		metrics:    metrics,
		logger:     logger,
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/intercept", h.Intercept)
	r.POST("/message", h.Message)
	r.GET("/tabs/:id/state", h.TabState)
}

// Health reports readiness. A store that gave up loading answers 503.
func (h *Handlers) Health(c *gin.Context) {
	ready := h.reconciler.Ready()
	status, code := "healthy", http.StatusOK
	switch {
	case h.reconciler.Failed():
		status, code = "failed", http.StatusServiceUnavailable
	case !ready:
		status = "starting"
	}
	connected := h.bridge != nil && h.bridge.Connected()

	c.JSON(code, gin.H{
		"status":  status,
		"ready":   ready,
		"bridge":  gin.H{"connected": connected},
		"metrics": h.metrics.Snapshot(),
	})
}

// Intercept ingests one intercepted request record
func (h *Handlers) Intercept(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	var details ingest.RequestDetails
	if err := sonic.Unmarshal(raw, &details); err != nil {
		h.logger.Debug("Invalid intercept record", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request record"})
		return
	}

	c.JSON(http.StatusOK, h.ingestor.Ingest(c.Request.Context(), details))
}

// Message dispatches a protocol message
func (h *Handlers) Message(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	resp, err := h.dispatcher.HandleRaw(c.Request.Context(), raw)
	switch {
	case errors.Is(err, protocol.ErrTaskNotString), errors.Is(err, protocol.ErrMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// TabState returns the stored state of one tab
func (h *Handlers) TabState(c *gin.Context) {
	id, err := types.ParseEntityID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.reconciler.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "state not loaded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tabId": id,
		"state": h.reconciler.State(id),
	})
}
