package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cableworks/backend/internal/ws"
)

// HandleRopeWebSocket handles real-time rope streaming and manipulation
func HandleRopeWebSocket() gin.HandlerFunc {
	return ws.HandleWebSocket
}
