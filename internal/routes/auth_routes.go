package routes

import (
	"github.com/gin-gonic/gin"

	"geoclaim/internal/controllers"
	"geoclaim/internal/middleware"
)

func AuthRoutes(r *gin.Engine, ac *controllers.AuthController) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", ac.SignupUser)
		auth.POST("/login", ac.LoginUser)
		auth.GET("/me", middleware.RequireAuth(), ac.Me)
	}
}
