package routes

import (
	"github.com/gin-gonic/gin"

	"geoclaim/internal/controllers"
	"geoclaim/internal/middleware"
)

// WebSocketRoutes mounts the streaming endpoints. Browsers pass the JWT as ?token=.
func WebSocketRoutes(r *gin.Engine, tc *controllers.TrackingController, hub *controllers.ClaimHub) {
	wsRoutes := r.Group("/ws")
	wsRoutes.Use(middleware.RequireAuth())
	{
		if tc != nil {
			wsRoutes.GET("/tracking", tc.HandleTrackingWebSocket)
		}
		if hub != nil {
			wsRoutes.GET("/claims", hub.HandleClaimsWebSocket)
		}
	}
}
