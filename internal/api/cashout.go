package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time parsing and durations

	"cashout_system/internal/domain"     // Importing domain models
	"cashout_system/internal/ledger"     // Balance ledger
	"cashout_system/internal/settlement" // Settlement engine and reversal service
	"cashout_system/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// CashoutRequest converts a customer's tokens to cash
type CashoutRequest struct {
	CustomerID string `json:"customer_id" binding:"required"` // Customer converting tokens
	Tokens     int64  `json:"tokens" binding:"required,gt=0"` // Tokens to convert
	Notes      string `json:"notes"`                          // Free-form staff notes
}

// CreditRequest is an administrative token grant
type CreditRequest struct {
	Tokens int64  `json:"tokens" binding:"required,gt=0"` // Tokens to grant
	Reason string `json:"reason"`                         // Why the grant was made
}

// ReverseRequest unwinds a completed cashout
type ReverseRequest struct {
	Reason string `json:"reason" binding:"required"` // Operator-supplied reason
}

// invalidateVenueHistory drops the cached history pages for a venue after a
// write (simple version: delete first 5 pages, matching the cache TTL scheme)
func invalidateVenueHistory(rdb *redis.Client, venueID string) {
	keys := make([]string, 0, 5) // Cache keys for the venue's first pages
	for i := 1; i <= 5; i++ {
		keys = append(keys, "venuehistory:"+venueID+":page:"+strconv.Itoa(i)+":size:20")
	}
	_ = utils.DeleteCache(context.Background(), rdb, keys...) // Delete them in one round trip
}

// CashoutHandler processes a token cashout in the staff member's venue context
func CashoutHandler(engine *settlement.Engine, balances *ledger.BalanceLedger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, exists := c.Get("venueID") // Venue scope from the token
		// Check if the venue scope exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		staffID, _ := c.Get("staffID") // Staff member processing the cashout
		var req CashoutRequest         // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Tokens <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Check against the live balance before invoking the engine; the engine
		// checks again inside its storage transaction (stale-client defense)
		balance, err := balances.Balance(req.CustomerID)
		if err != nil {
			respondError(c, err)
			return
		}
		if req.Tokens > balance {
			respondError(c, ledger.ErrInsufficientBalance)
			return
		}
		// Process the cashout; failures come back as typed results
		record, err := engine.ProcessCashout(settlement.Request{
			CustomerID:     req.CustomerID,                        // Customer
			VenueID:        venueID.(string),                      // Venue context
			StaffID:        strconv.Itoa(int(staffID.(uint))),     // Staff context
			Tokens:         req.Tokens,                            // Tokens to convert
			Notes:          req.Notes,                             // Staff notes
			IdempotencyKey: c.GetHeader("Idempotency-Key"),        // Optional dedupe key
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Invalidate cached history for the venue
		invalidateVenueHistory(rdb, venueID.(string))
		// Return the full persisted transaction
		c.JSON(http.StatusOK, gin.H{"transaction": record})
	}
}

// ReverseHandler unwinds a completed cashout (admin only)
func ReverseHandler(reversals *settlement.ReversalService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReverseRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Reverse the transaction; guards are enforced inside the service
		record, err := reversals.Reverse(c.Param("id"), req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		// Invalidate cached history for the affected venue
		invalidateVenueHistory(rdb, record.VenueID)
		// Return the transaction with its reversal fields set
		c.JSON(http.StatusOK, gin.H{"transaction": record})
	}
}

// VenueHistoryHandler returns a venue's paginated cashout history with
// summary totals, filterable by date range and status
func VenueHistoryHandler(engine *settlement.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID := c.Param("id") // Venue whose history is requested
		page := 1                // Default page
		pageSize := 20           // Default page size
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
		filter := settlement.HistoryFilter{
			Status: c.Query("status"),          // Optional status filter
			Offset: (page - 1) * pageSize,      // Pagination offset
			Limit:  pageSize,                   // Page size
		}
		// Parse optional date bounds (RFC 3339 or YYYY-MM-DD)
		if v := c.Query("start_date"); v != "" {
			if t, err := parseDate(v); err == nil {
				filter.StartDate = &t // Inclusive lower bound
			}
		}
		if v := c.Query("end_date"); v != "" {
			if t, err := parseDate(v); err == nil {
				filter.EndDate = &t // Inclusive upper bound
			}
		}
		// Cache unfiltered default pages only; filtered views always hit the DB
		cacheable := filter.StartDate == nil && filter.EndDate == nil && filter.Status == "" && pageSize == 20
		cacheKey := "venuehistory:" + venueID + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background() // Context for Redis operations
		if cacheable {
			var cached gin.H // Cached response body
			found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
			if err == nil && found {
				cached["cached"] = true
				c.JSON(http.StatusOK, cached)
				return
			}
		}
		// Fetch the page and the rollup totals over the full matching set
		txs, total, err := engine.VenueHistory(venueID, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		summary, err := engine.VenueSummaryFor(venueID, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": txs,        // The page of transactions
			"summary":      summary,    // Rollup totals over the full set
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Not from cache
		}
		if cacheable {
			// Cache the result for 60 seconds
			_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		}
		c.JSON(http.StatusOK, resp) // Return the history page
	}
}

// GetBalanceHandler returns a customer's token balance
func GetBalanceHandler(balances *ledger.BalanceLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.Param("id") // Customer being looked up
		balance, err := balances.Balance(customerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"customer_id": customerID, "token_balance": balance})
	}
}

// AdminCreditHandler grants tokens to a customer (admin only)
func AdminCreditHandler(db *gorm.DB, balances *ledger.BalanceLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.Param("id") // Customer receiving the grant
		var req CreditRequest       // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || req.Tokens <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		staffEmail, _ := c.Get("staffEmail") // Operator performing the grant
		var newBalance int64                 // Balance after the grant
		// The credit and its audit record share one storage transaction
		err := ledger.RunWithRetry(db, func(tx *gorm.DB) error {
			var err error
			newBalance, err = balances.Credit(tx, customerID, req.Tokens)
			if err != nil {
				return err
			}
			// Every balance change is traceable to exactly one audit fact
			return tx.Create(&domain.AdminAdjustment{
				TargetKind:   domain.AdjustCustomer, // Customer grant
				TargetID:     customerID,            // Who was credited
				Tokens:       req.Tokens,            // Amount granted
				BalanceAfter: newBalance,            // Balance after
				Reason:       req.Reason,            // Operator reason
				StaffEmail:   staffEmail.(string),   // Who did it
			}).Error
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Log the administrative grant with context
		logrus.WithFields(logrus.Fields{
			"customer_id": customerID,  // Customer credited
			"tokens":      req.Tokens,  // Amount granted
			"balance":     newBalance,  // Balance after
			"reason":      req.Reason,  // Operator reason
			"staff_email": staffEmail,  // Who did it
		}).Info("Administrative credit")
		c.JSON(http.StatusOK, gin.H{"customer_id": customerID, "token_balance": newBalance})
	}
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil // Full timestamp
	}
	return time.Parse("2006-01-02", v) // Plain date, midnight UTC
}
