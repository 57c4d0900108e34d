package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/chainquery/common/bootstrap"
)

// HealthHandler reports whether the store (and Redis, when enabled) answer
type HealthHandler struct {
	components *bootstrap.Components
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(components *bootstrap.Components) *HealthHandler {
	return &HealthHandler{components: components}
}

// Health checks component health
// GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	service := h.components.Config.Service.Name

	if err := h.components.Health(c.Request().Context()); err != nil {
		h.components.Logger.Warn("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unavailable",
			"service": service,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": service,
	})
}
