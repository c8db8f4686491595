package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esyasil/clearroom/internal/logging"
	"github.com/esyasil/clearroom/internal/middleware"
)

func setupRouter(api *API, auth *middleware.Authenticator, limiter *middleware.RateLimiter, logger *logging.Logger, maxBodyBytes int64) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	if maxBodyBytes > 0 {
		router.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
			c.Next()
		})
	}

	// Health check
	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	{
		// Payment provider callbacks: no auth, signature-verified instead
		v1.POST("/stripe/webhook", api.stripeWebhook)

		authed := v1.Group("")
		authed.Use(auth.Middleware())
		authed.Use(middleware.RateLimit(limiter))
		{
			authed.POST("/process", api.processImages)
			authed.POST("/checkout", api.createCheckoutSession)
			authed.GET("/me", api.getProfile)

			admin := authed.Group("/admin")
			admin.Use(auth.RequireAdmin())
			{
				admin.GET("/stats", api.adminStats)
				admin.GET("/usage/daily", api.adminDailyUsage)
				admin.GET("/usage/top", api.adminTopUsers)
			}
		}
	}

	return router
}
