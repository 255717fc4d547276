package routes

import (
	"github.com/gin-gonic/gin"

	"geoclaim/internal/controllers"
	"geoclaim/internal/middleware"
	"geoclaim/internal/models"
)

func AdminRoutes(r *gin.Engine, tc *controllers.TerritoryController) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuthWithRole(models.RoleAdmin))
	{
		admin.GET("/users/:id/attempts", tc.ListUserAttempts)
	}
}
