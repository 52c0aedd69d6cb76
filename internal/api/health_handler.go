package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/services"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	healthService *services.HealthService
}

func NewHealthHandler(healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// RegisterRoutes registers the unauthenticated health routes.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	health := router.Group("/healthz")
	{
		health.GET("", h.HealthCheck)
		health.GET("/live", h.Liveness)
		health.GET("/ready", h.Readiness)
	}
}

// HealthCheck runs every checker.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	response := h.healthService.Check(ctx)
	c.JSON(statusFor(response.Status), response)
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthService.Liveness())
}

// Readiness runs only the critical checkers.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := h.healthService.Readiness(ctx)
	c.JSON(statusFor(response.Status), response)
}

func statusFor(status services.HealthStatus) int {
	switch status {
	case services.HealthStatusHealthy, services.HealthStatusDegraded:
		return http.StatusOK
	case services.HealthStatusUnhealthy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
