package routes

import (
	"github.com/gin-gonic/gin"

	"geoclaim/internal/controllers"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *controllers.AuthController
	Tracking    *controllers.TrackingController
	Territories *controllers.TerritoryController
	Claims      *controllers.ClaimHub
	Health      gin.HandlerFunc
}

// SetupRouter builds the gin engine. Global middleware runs before every route.
func SetupRouter(h Handlers, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware...)

	if h.Health != nil {
		r.GET("/healthz", h.Health)
	}
	if h.Auth != nil {
		AuthRoutes(r, h.Auth)
	}
	if h.Tracking != nil {
		TrackingRoutes(r, h.Tracking)
	}
	if h.Territories != nil {
		TerritoryRoutes(r, h.Territories)
		AdminRoutes(r, h.Territories)
	}
	WebSocketRoutes(r, h.Tracking, h.Claims)

	return r
}
