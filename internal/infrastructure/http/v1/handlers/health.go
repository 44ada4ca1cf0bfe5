// Package handlers implements the v1 HTTP handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything that can verify its backing connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports process liveness and store connectivity.
type Health struct {
	pinger Pinger
}

// NewHealth creates the health handler. pinger may be nil when the store
// has no external connection (in-memory mode).
func NewHealth(pinger Pinger) *Health {
	return &Health{pinger: pinger}
}

// Check handles GET /health.
func (h *Health) Check(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["store"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["store"] = "ok"
	}

	c.JSON(http.StatusOK, status)
}
