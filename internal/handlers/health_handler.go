package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/clock"
	"github.com/your-org/todostack/internal/domain"
)

// HealthHandler reports whether the data directory is usable
type HealthHandler struct {
	responder
	checker domain.HealthChecker
	clock   clock.Clock
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker domain.HealthChecker, clk clock.Clock, logger *zap.Logger) *HealthHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &HealthHandler{
		responder: responder{logger: logger},
		checker:   checker,
		clock:     clk,
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Storage   string `json:"storage,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Timestamp: h.clock.Now().Unix()}
	if err := h.checker.CheckConnection(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		h.respondJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Storage = "writable"
	h.respondJSON(w, r, http.StatusOK, resp)
}
