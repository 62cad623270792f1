package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"cashout_system/internal/distribution" // Distribution engine
	"cashout_system/internal/domain"       // Importing domain models
	"cashout_system/internal/ledger"       // Treasury ledger
	"cashout_system/internal/metrics"      // Metrics aggregator
	"cashout_system/internal/utils"        // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// DistributeRequest is a treasury payout
type DistributeRequest struct {
	VenueID           string `json:"venue_id" binding:"required"`          // Venue the payout is for
	VenueName         string `json:"venue_name"`                           // Display name
	RecipientAddress  string `json:"recipient_address" binding:"required"` // External destination
	Amount            int64  `json:"amount" binding:"required,gt=0"`       // Tokens to send
	SourceAccountType string `json:"source_account_type" binding:"required,oneof=mining founder operations community"` // Funding pool
	Metadata          struct {
		Reason string `json:"reason"` // Why the payout was made
		Notes  string `json:"notes"`  // Free-form notes
	} `json:"metadata"`
}

// TopupRequest is an administrative treasury credit
type TopupRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"` // Tokens to add
	Reason string `json:"reason"`                         // Why, kept in the log trail
}

// ReconcileRequest resolves a failed distribution with a manual signature
type ReconcileRequest struct {
	Signature string `json:"signature" binding:"required"` // Manually obtained settlement reference
}

// distStatsCacheKey caches period stats; invalidated after each distribution.
func distStatsCacheKey(period string) string {
	return "diststats:" + period
}

// DistributeHandler executes a treasury payout (admin only)
func DistributeHandler(engine *distribution.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DistributeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		staffEmail, _ := c.Get("staffEmail") // Operator triggering the payout
		dist, err := engine.Distribute(c.Request.Context(), distribution.Request{
			VenueID:           req.VenueID,           // Venue
			VenueName:         req.VenueName,         // Display name
			RecipientAddress:  req.RecipientAddress,  // Destination
			Amount:            req.Amount,            // Tokens to send
			SourceAccountType: req.SourceAccountType, // Funding pool
			StaffEmail:        staffEmail.(string),   // Operator
			Reason:            req.Metadata.Reason,   // Metadata
			Notes:             req.Metadata.Notes,    // Metadata
		})
		// Drop cached stats whenever a distribution row was written
		if dist != nil {
			_ = utils.DeleteCache(context.Background(), rdb,
				distStatsCacheKey("today"), distStatsCacheKey("week"),
				distStatsCacheKey("month"), distStatsCacheKey("all"))
		}
		if err != nil {
			status, code := errorKind(err)
			resp := gin.H{"success": false, "code": code, "error": err.Error()}
			if dist != nil {
				// A failed row carries a committed debit; surface it for reconciliation
				resp["distribution"] = dist
			}
			c.JSON(status, resp)
			return
		}
		// Return the confirmed payout with its settlement reference
		c.JSON(http.StatusOK, gin.H{"success": true, "signature": dist.Signature, "distribution": dist})
	}
}

// ListTreasuryAccountsHandler returns every treasury pool (admin only)
func ListTreasuryAccountsHandler(treasury *ledger.TreasuryLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := treasury.Accounts() // All pools
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": accounts})
	}
}

// TopupHandler credits a treasury pool (admin only)
func TopupHandler(db *gorm.DB, treasury *ledger.TreasuryLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountType := c.Param("type") // Pool being topped up
		var req TopupRequest           // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		staffEmail, _ := c.Get("staffEmail") // Operator performing the top-up
		var newBalance int64                 // Balance after the credit
		// The credit and its audit record share one storage transaction
		err := ledger.RunWithRetry(db, func(tx *gorm.DB) error {
			var err error
			newBalance, err = treasury.Credit(tx, accountType, req.Amount)
			if err != nil {
				return err
			}
			// Every balance change is traceable to exactly one audit fact
			return tx.Create(&domain.AdminAdjustment{
				TargetKind:   domain.AdjustTreasury, // Treasury top-up
				TargetID:     accountType,           // Pool credited
				Tokens:       req.Amount,            // Amount added
				BalanceAfter: newBalance,            // Balance after
				Reason:       req.Reason,            // Operator reason
				StaffEmail:   staffEmail.(string),   // Who did it
			}).Error
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Log the top-up with context
		logrus.WithFields(logrus.Fields{
			"account":     accountType, // Pool credited
			"amount":      req.Amount,  // Amount added
			"balance":     newBalance,  // Balance after
			"reason":      req.Reason,  // Operator reason
			"staff_email": staffEmail,  // Who did it
		}).Info("Treasury top-up")
		c.JSON(http.StatusOK, gin.H{"account": accountType, "balance": newBalance})
	}
}

// ReconcileHandler resolves a failed distribution (admin only)
func ReconcileHandler(engine *distribution.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReconcileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		dist, err := engine.Reconcile(c.Param("id"), req.Signature)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"distribution": dist})
	}
}

// DistributionHistoryHandler returns paginated distribution history
func DistributionHistoryHandler(engine *distribution.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		// Fetch the page, optionally filtered by status
		dists, total, err := engine.History(c.Query("status"), (page-1)*pageSize, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		c.JSON(http.StatusOK, gin.H{
			"distributions": dists,      // The page of distributions
			"page":          page,       // Current page
			"page_size":     pageSize,   // Page size
			"total":         total,      // Total distributions
			"total_pages":   totalPages, // Total pages
		})
	}
}

// DistributionStatsHandler returns period rollups over confirmed distributions
func DistributionStatsHandler(aggregator *metrics.Aggregator, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		period := c.DefaultQuery("period", "all") // Requested period
		ctx := context.Background()               // Context for Redis operations
		var cached metrics.DistributionStats      // Cached rollup
		// Stats are invalidated after every distribution
		found, err := utils.GetCache(ctx, rdb, distStatsCacheKey(period), &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"stats": cached, "cached": true})
			return
		}
		stats, err := aggregator.StatsForPeriod(period)
		if err != nil {
			respondError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, distStatsCacheKey(period), stats, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"stats": stats, "cached": false})
	}
}
