package handlers

import (
	"context"

	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades the request and registers the client with the hub
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userID == 0 {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		if userType == string(models.UserTypeDriver) {
			services.SetDriverOnline(context.Background(), userID, true)
		}

		services.HandleWebSocket(hub, c.Writer, c.Request, userID, userType)
	}
}
