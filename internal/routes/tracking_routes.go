package routes

import (
	"github.com/gin-gonic/gin"

	"geoclaim/internal/controllers"
	"geoclaim/internal/middleware"
)

func TrackingRoutes(r *gin.Engine, tc *controllers.TrackingController) {
	tracking := r.Group("/tracking")
	tracking.Use(middleware.RequireAuth())
	{
		tracking.POST("/start", tc.StartTracking)
		tracking.POST("/samples", tc.SubmitSamples)
		tracking.POST("/cancel", tc.CancelTracking)
		tracking.POST("/stop", tc.StopTracking)
		tracking.GET("/session", tc.GetSession)
	}
}
