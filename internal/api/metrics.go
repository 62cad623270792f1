package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time parsing

	"cashout_system/internal/domain"  // Importing domain models
	"cashout_system/internal/metrics" // Metrics aggregator

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Fixed-point money values
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// CollectionRequest records cash collected from a venue machine
type CollectionRequest struct {
	VenueID     string          `json:"venue_id" binding:"required"`   // Venue (store) the machine belongs to
	MachineID   string          `json:"machine_id" binding:"required"` // Machine the cash came from
	AmountUsd   decimal.Decimal `json:"amount_usd" binding:"required"` // Cash collected
	CollectedAt time.Time       `json:"collected_at"`                  // When; defaults to now
}

// CreateCollectionHandler records a machine cash collection
func CreateCollectionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CollectionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || !req.AmountUsd.IsPositive() {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.CollectedAt.IsZero() {
			req.CollectedAt = time.Now().UTC() // Default to now
		}
		staffEmail, _ := c.Get("staffEmail") // Staff member recording it
		collection := domain.MachineCollection{
			VenueID:     req.VenueID,          // Venue
			MachineID:   req.MachineID,        // Machine
			AmountUsd:   req.AmountUsd,        // Cash collected
			CollectedAt: req.CollectedAt,      // When
			RecordedBy:  staffEmail.(string),  // Who recorded it
		}
		// Save the collection record
		if err := db.Create(&collection).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record collection"})
			return
		}
		// Log the collection with context
		logrus.WithFields(logrus.Fields{
			"venue_id":   req.VenueID,   // Venue
			"machine_id": req.MachineID, // Machine
			"amount":     req.AmountUsd, // Cash collected
		}).Info("Machine collection recorded")
		c.JSON(http.StatusCreated, gin.H{"collection": collection})
	}
}

// TrendsHandler returns the daily money-in/money-out trend series
func TrendsHandler(aggregator *metrics.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 7 // Default window
		// If days exists in query
		if d := c.Query("days"); d != "" {
			// Convert days to integer
			if v, err := strconv.Atoi(d); err == nil && v > 0 && v <= 90 {
				days = v // Set days if valid
			}
		}
		// Optional store filter; sums are recomputed from the filtered subset
		series, err := aggregator.TrendsForRange(c.Query("store_id"), days)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"trends": series, "days": days})
	}
}
