package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cableworks/backend/internal/sim"
)

var startTime = time.Now()

const version = "1.2.0"

// HealthCheck returns server health status
func HealthCheck(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "cableworks-api",
			"version": version,
			"uptime":  time.Since(startTime).String(),
			"ropes":   len(mgr.List()),
		})
	}
}
