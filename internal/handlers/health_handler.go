package handlers

import (
	"context"
	"net/http"
	"time"

	"cafepulse/internal/service"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	diagnostics service.DiagnosticsService
	redisPing   func(ctx context.Context) error
	version     string
}

// NewHealthHandler builds the health endpoint. redisPing may be nil when the
// run guard is disabled.
func NewHealthHandler(diagnostics service.DiagnosticsService, redisPing func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		diagnostics: diagnostics,
		redisPing:   redisPing,
		version:     "1.0.0",
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	services := gin.H{}

	if st, err := h.diagnostics.CheckStorage(ctx); err != nil {
		status = "degraded"
		services["database"] = "unavailable"
	} else {
		services["database"] = "connected"
		services["cafes"] = st.Cafes
	}

	switch {
	case h.redisPing == nil:
		services["redis"] = "disabled"
	case h.redisPing(ctx) != nil:
		status = "degraded"
		services["redis"] = "unavailable"
	default:
		services["redis"] = "connected"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Services:  services,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Services  map[string]interface{} `json:"services"`
	Timestamp string                 `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
