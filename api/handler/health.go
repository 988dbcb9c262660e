package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/notifly/backend/api/transport"
	"github.com/notifly/backend/internal/infrastructure/monitor"
	"github.com/notifly/backend/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor     *monitor.Monitor
	environment string
}

func NewHealthHandler(mon *monitor.Monitor, environment string, adapter *httpcontext.Adapter, logger *zap.Logger, dev bool) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger, dev),
		monitor:     mon,
		environment: environment,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	payload := transport.Health{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Environment: h.environment,
	}

	if h.monitor != nil && !h.monitor.GetStatus().Healthy() {
		payload.Status = "degraded"
		h.respondJSON(ctx, http.StatusServiceUnavailable, payload)
		return
	}
	h.respondJSON(ctx, http.StatusOK, payload)
}
