package routes

import (
	"github.com/gin-gonic/gin"

	"geoclaim/internal/controllers"
	"geoclaim/internal/middleware"
)

func TerritoryRoutes(r *gin.Engine, tc *controllers.TerritoryController) {
	territories := r.Group("/territories")
	territories.Use(middleware.RequireAuth())
	{
		territories.GET("", tc.ListMyTerritories)
		territories.GET("/near", tc.NearTerritories)
		territories.GET("/attempts", tc.ListMyAttempts)
		territories.GET("/:id", tc.GetTerritory)
	}
}
