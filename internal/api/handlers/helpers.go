package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cableworks/backend/internal/rope"
	"github.com/cableworks/backend/internal/sim"
)

// ropeEndParam parses the :end path parameter ("start" or "end") and
// writes the error response itself when the value is invalid.
func ropeEndParam(c *gin.Context) (rope.End, bool) {
	switch c.Param("end") {
	case "start":
		return rope.EndStart, true
	case "end":
		return rope.EndEnd, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be 'start' or 'end'"})
		return "", false
	}
}

// respondSimError maps manager errors onto HTTP statuses.
func respondSimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sim.ErrRopeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "rope not found"})
	case errors.Is(err, sim.ErrTooManyRopes):
		c.JSON(http.StatusConflict, gin.H{"error": "rope limit reached"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
