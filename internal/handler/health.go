package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/model"
)

// HealthHandler answers liveness probes with a real database round trip.
type HealthHandler struct {
	DB ConnSource
}

func NewHealthHandler(db ConnSource) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Check runs SELECT 1 over a base connection. 503 with database:
// "disconnected" when the store is unreachable, so load balancers drain
// the instance instead of routing into failures.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, model.RoleNone)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"database": "disconnected",
		})
	}
	defer conn.Release()

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"database": "disconnected",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "healthy",
		"database": "connected",
	})
}
