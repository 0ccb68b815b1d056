package api

import (
	"github.com/RishiKendai/dupcheck/internal/config"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Create rate limiter
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Middleware
	router.Use(MetricsMiddleware())
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/compute", handler.Compute)
		api.GET("/runs/:id/status", handler.Status)
		api.GET("/runs/:id", handler.Result)
	}

	return router
}
