package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports liveness, and the database state when Ready is set.
func (h *Handler) HealthCheck(c *gin.Context) {
	status, database, code := "ok", "ok", http.StatusOK

	if h.Ready == nil {
		database = "unknown"
	} else if err := h.Ready(c.Request.Context()); err != nil {
		h.logger().Warn("health check failed", zap.Error(err))
		status, database, code = "degraded", "unavailable", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  database,
		"message":   "Bloom for Lungs is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
