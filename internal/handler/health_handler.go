package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

var startTime = time.Now()

// Check pings one dependency.
type Check func(ctx context.Context) error

// HealthHandler provides health endpoint.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler creates a new HealthHandler. Nil checks are skipped.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// GetHealth responds with service and dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := 200
	deps := gin.H{}
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = gin.H{"status": "disconnected", "error": err.Error()}
			status = "unhealthy"
			code = 503
			continue
		}
		deps[name] = gin.H{"status": "connected"}
	}

	data := gin.H{
		"status":       status,
		"version":      "1.0.0",
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
	}
	if code != 200 {
		utils.ErrorWithDetails(c, code, "SERVICE_UNAVAILABLE", "Service is unhealthy", data)
		return
	}
	utils.Success(c, 200, "Service is healthy", data)
}
