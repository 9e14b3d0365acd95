// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"stride/internal/delivery/http/middleware"
	"stride/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	IngestHandler  *handler.IngestHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	ingestHandler  *handler.IngestHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		ingestHandler:  params.IngestHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/logout", r.authHandler.Logout)
		authGroup.GET("/me", r.authHandler.Me, r.authMiddleware.Authenticate)
		authGroup.GET("/garmin/status", r.ingestHandler.Connection, r.authMiddleware.Authenticate)
	}

	// Ingestion routes require an authenticated caller
	ingestGroup := e.Group("/ingest")
	ingestGroup.Use(r.authMiddleware.Authenticate)
	{
		ingestGroup.POST("/run", r.ingestHandler.Run)
		ingestGroup.GET("/status", r.ingestHandler.Status)
		ingestGroup.GET("/history", r.ingestHandler.History)
	}
}
