package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"time"     // Time durations

	"cashout_system/internal/domain" // Importing domain models
	"cashout_system/internal/policy" // Rate policy service
	"cashout_system/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Fixed-point money values
)

// ratePolicyCacheKey caches the active policy between administrative updates.
const ratePolicyCacheKey = "ratepolicy:active"

// UpdatePolicyRequest is an administrative exchange-rate update
type UpdatePolicyRequest struct {
	TokensPerDollar             decimal.Decimal `json:"tokens_per_dollar" binding:"required"`    // New exchange rate
	MinCashoutUsd               decimal.Decimal `json:"min_cashout_usd"`                         // Minimum cash value per cashout
	MaxCashoutPerTransactionUsd decimal.Decimal `json:"max_cashout_per_transaction_usd"`         // Per-transaction maximum
	DailyLimitPerCustomerUsd    decimal.Decimal `json:"daily_limit_per_customer_usd"`            // Per-customer daily limit
	VenueCommissionPercent      decimal.Decimal `json:"venue_commission_percent"`                // Venue's cut, 0-100
}

// GetExchangeRateHandler returns the active rate policy
func GetExchangeRateHandler(policies *policy.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()   // Context for Redis operations
		var cached domain.RatePolicy  // Cached policy
		// The cache is invalidated on every administrative update
		found, err := utils.GetCache(ctx, rdb, ratePolicyCacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"policy": cached, "cached": true})
			return
		}
		p, err := policies.Active() // Read the active policy
		if err != nil {
			respondError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, ratePolicyCacheKey, p, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"policy": p, "cached": false})          // Return the policy
	}
}

// UpdateExchangeRateHandler activates a new policy version (admin only)
func UpdateExchangeRateHandler(policies *policy.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdatePolicyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		staffEmail, _ := c.Get("staffEmail") // Operator performing the update
		updated, err := policies.Update(domain.RatePolicy{
			TokensPerDollar:             req.TokensPerDollar,             // New exchange rate
			MinCashoutUsd:               req.MinCashoutUsd,               // New minimum
			MaxCashoutPerTransactionUsd: req.MaxCashoutPerTransactionUsd, // New maximum
			DailyLimitPerCustomerUsd:    req.DailyLimitPerCustomerUsd,    // New daily limit
			VenueCommissionPercent:      req.VenueCommissionPercent,      // New commission
			UpdatedBy:                   staffEmail.(string),             // Audit trail
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Invalidate the cached policy so readers see the new version
		_ = utils.DeleteCache(context.Background(), rdb, ratePolicyCacheKey)
		c.JSON(http.StatusOK, gin.H{"policy": updated}) // Return the new version
	}
}
