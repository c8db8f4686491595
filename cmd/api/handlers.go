package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/esyasil/clearroom/internal/batch"
	"github.com/esyasil/clearroom/internal/billing"
	"github.com/esyasil/clearroom/internal/database"
	"github.com/esyasil/clearroom/internal/logging"
	"github.com/esyasil/clearroom/internal/middleware"
	"github.com/esyasil/clearroom/pkg/models"
)

// Processor runs one image batch for an authenticated user
type Processor interface {
	Process(ctx context.Context, userID string, images []string) ([]models.ImageOutcome, error)
}

// AccountService is the ledger surface the handlers need
type AccountService interface {
	EnsureAccount(ctx context.Context, userID, email, displayName string) (*models.Account, error)
	Account(ctx context.Context, userID string) (*models.Account, error)
}

// BillingService creates checkout sessions and consumes payment webhooks
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

// StatsProvider serves aggregate usage counts
type StatsProvider interface {
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)
	Health(ctx context.Context) error
}

// StatsCache optionally caches the admin aggregates
type StatsCache interface {
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)
	SetAdminStats(ctx context.Context, stats *models.AdminStats) error
}

// UsageReporter serves usage trend reports
type UsageReporter interface {
	DailyUsage(ctx context.Context, days int) ([]*models.DailyUsage, error)
	TopUsers(ctx context.Context, limit int) ([]*models.UserUsage, error)
}

// API wires the HTTP handlers to their services. Everything is injected so
// tests run against fakes.
type API struct {
	processor Processor
	accounts  AccountService
	billing   BillingService
	stats     StatsProvider
	usage     UsageReporter
	cache     StatsCache
	logger    *logging.Logger
}

// processImages handles POST /api/v1/process: the full batch pipeline.
// Billing note for callers: an accepted batch costs its full size in credits
// even when individual images (or all of them) fail.
func (api *API) processImages(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// First successful authentication creates the account with its free grant
	if _, err := api.accounts.EnsureAccount(c.Request.Context(), claims.UserID, claims.Email, claims.Name); err != nil {
		api.logger.WithUserID(claims.UserID).ErrorWithErr("Failed to ensure account", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	results, err := api.processor.Process(c.Request.Context(), claims.UserID, req.Images)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrInvalidBatchSize):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid image count (1-5 allowed)",
			})
		case errors.Is(err, batch.ErrInsufficientCredits):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient credits. Please subscribe.",
			})
		default:
			api.logger.WithUserID(claims.UserID).ErrorWithErr("Batch processing failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// createCheckoutSession handles POST /api/v1/checkout
func (api *API) createCheckoutSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	url, err := api.billing.CreateCheckoutSession(c.Request.Context(), userID)
	if err != nil {
		api.logger.WithUserID(userID).ErrorWithErr("Failed to create checkout session", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// stripeWebhook handles POST /api/v1/stripe/webhook. Unauthenticated but
// signature-verified over the raw body; the provider retries on any 4xx/5xx.
func (api *API) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	err = api.billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
		api.logger.ErrorWithErr("Webhook handling failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// getProfile handles GET /api/v1/me
func (api *API) getProfile(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	account, err := api.accounts.EnsureAccount(c.Request.Context(), claims.UserID, claims.Email, claims.Name)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		api.logger.WithUserID(claims.UserID).ErrorWithErr("Failed to load account", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, account)
}

// adminStats handles GET /api/v1/admin/stats
func (api *API) adminStats(c *gin.Context) {
	ctx := c.Request.Context()

	if api.cache != nil {
		if cached, err := api.cache.GetAdminStats(ctx); err == nil && cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	stats, err := api.stats.GetAdminStats(ctx)
	if err != nil {
		api.logger.ErrorWithErr("Failed to load admin stats", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if api.cache != nil {
		if err := api.cache.SetAdminStats(ctx, stats); err != nil {
			api.logger.WithError(err).Warn("Failed to cache admin stats")
		}
	}

	c.JSON(http.StatusOK, stats)
}

// adminDailyUsage handles GET /api/v1/admin/usage/daily
func (api *API) adminDailyUsage(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	usage, err := api.usage.DailyUsage(c.Request.Context(), days)
	if err != nil {
		api.logger.ErrorWithErr("Failed to load daily usage", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// adminTopUsers handles GET /api/v1/admin/usage/top
func (api *API) adminTopUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	users, err := api.usage.TopUsers(c.Request.Context(), limit)
	if err != nil {
		api.logger.ErrorWithErr("Failed to load top users", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// healthCheck handles GET /health
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.stats.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}
