package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashout_system/internal/domain" // Importing domain models
	"cashout_system/internal/ledger" // Treasury ledger

	"github.com/google/uuid"     // Distribution IDs
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Distribution error values; callers match with errors.Is
var (
	ErrTransportFailure = errors.New("transport failure")         // External send failed; debit stays committed
	ErrNotFound         = errors.New("distribution not found")    // No such distribution
	ErrNotReconcilable  = errors.New("distribution not failed")   // Only failed distributions can be reconciled
)

// Request carries everything needed to process one treasury payout.
type Request struct {
	VenueID           string // Venue the payout is for
	VenueName         string // Display name at time of payout
	RecipientAddress  string // External destination address
	Amount            int64  // Tokens, smallest unit
	SourceAccountType string // Treasury pool funding the payout
	StaffEmail        string // Operator triggering it
	Reason            string // Metadata: why
	Notes             string // Metadata: free-form notes
}

// Engine orchestrates a treasury-to-recipient transfer. The treasury debit and
// the pending Distribution commit first and release their lock; only then is
// the external transport invoked, so a slow rail never stalls other payouts
// from the same pool. A transport failure leaves the debit committed and the
// Distribution failed — the remote transfer may have landed despite the error,
// so an automatic rollback could double-pay. An operator reconciles instead.
type Engine struct {
	db        *gorm.DB               // Database handle
	treasury  *ledger.TreasuryLedger // Sole mutator of treasury balances
	transport Transport              // External ledger rail
	now       func() time.Time       // Clock, injectable for tests
}

// NewEngine creates a distribution engine
func NewEngine(db *gorm.DB, treasury *ledger.TreasuryLedger, transport Transport, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now // Default to the wall clock
	}
	return &Engine{db: db, treasury: treasury, transport: transport, now: now}
}

// Distribute debits the treasury pool, records the payout and invokes the
// external transport, returning the distribution in its terminal state.
func (e *Engine) Distribute(ctx context.Context, req Request) (*domain.Distribution, error) {
	if req.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount // Must send a positive amount
	}
	dist := domain.Distribution{
		DistributionID:    uuid.NewString(),      // Generated ID
		VenueID:           req.VenueID,           // Venue
		VenueName:         req.VenueName,         // Venue display name
		RecipientAddress:  req.RecipientAddress,  // Destination
		Amount:            req.Amount,            // Tokens to send
		SourceAccountType: req.SourceAccountType, // Funding pool
		Status:            domain.DistStatusPending,
		StaffEmail:        req.StaffEmail,        // Operator
		Reason:            req.Reason,            // Metadata
		Notes:             req.Notes,             // Metadata
		CreatedAt:         e.now().UTC(),         // Creation timestamp
	}
	// Debit and pending record are one atomic unit; it commits and releases the
	// pool before the transport call is made
	err := ledger.RunWithRetry(e.db, func(tx *gorm.DB) error {
		if _, err := e.treasury.Debit(tx, req.SourceAccountType, req.Amount); err != nil {
			return err // Rolls back; nothing is visible
		}
		return tx.Create(&dist).Error
	})
	if err != nil {
		// Log the rejected payout with context
		logrus.WithFields(logrus.Fields{
			"venue_id": req.VenueID,           // Venue
			"account":  req.SourceAccountType, // Pool
			"amount":   req.Amount,            // Requested amount
			"error":    err.Error(),           // Failure
		}).Error("Distribution rejected")
		return nil, err
	}
	// External send, outside any storage transaction
	signature, sendErr := e.transport.Send(ctx, req.RecipientAddress, req.Amount)
	if sendErr != nil {
		// The debit stays committed; flag the row for manual reconciliation
		if err := e.db.Model(&domain.Distribution{}).
			Where("distribution_id = ?", dist.DistributionID).
			Update("status", domain.DistStatusFailed).Error; err != nil {
			logrus.WithField("distribution_id", dist.DistributionID).
				Errorf("Failed to mark distribution failed: %v", err)
		}
		dist.Status = domain.DistStatusFailed
		// Surfaced prominently: committed debit with no confirmed transfer
		logrus.WithFields(logrus.Fields{
			"distribution_id": dist.DistributionID,   // Flagged row
			"venue_id":        req.VenueID,           // Venue
			"account":         req.SourceAccountType, // Pool already debited
			"amount":          req.Amount,            // Amount in limbo
			"error":           sendErr.Error(),       // Transport failure
		}).Error("Distribution transport failed, manual reconciliation required")
		return &dist, fmt.Errorf("%w: %v", ErrTransportFailure, sendErr)
	}
	// Confirmed: attach the settlement reference
	if err := e.db.Model(&domain.Distribution{}).
		Where("distribution_id = ?", dist.DistributionID).
		Updates(map[string]any{"status": domain.DistStatusConfirmed, "signature": signature}).Error; err != nil {
		return nil, err
	}
	dist.Status = domain.DistStatusConfirmed
	dist.Signature = &signature
	// Log the confirmed payout
	logrus.WithFields(logrus.Fields{
		"distribution_id": dist.DistributionID,   // New distribution
		"venue_id":        req.VenueID,           // Venue
		"account":         req.SourceAccountType, // Funding pool
		"amount":          req.Amount,            // Tokens sent
		"signature":       signature,             // Settlement reference
	}).Info("Distribution confirmed")
	return &dist, nil
}

// Reconcile resolves a failed distribution whose transfer turned out to have
// landed: the operator attaches the manually obtained settlement reference and
// the row transitions to confirmed. For transfers that verifiably never
// landed, the operator instead tops the treasury pool back up.
func (e *Engine) Reconcile(distributionID, signature string) (*domain.Distribution, error) {
	var dist domain.Distribution // The distribution being resolved
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("distribution_id = ?", distributionID).First(&dist).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if dist.Status != domain.DistStatusFailed {
			return ErrNotReconcilable // Pending and confirmed rows are not touched
		}
		reconciledAt := e.now().UTC() // When the operator resolved it
		res := tx.Model(&domain.Distribution{}).
			Where("distribution_id = ? AND status = ?", distributionID, domain.DistStatusFailed).
			Updates(map[string]any{
				"status":        domain.DistStatusConfirmed,
				"signature":     signature,
				"reconciled_at": reconciledAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotReconcilable // A concurrent reconcile got there first
		}
		dist.Status = domain.DistStatusConfirmed
		dist.Signature = &signature
		dist.ReconciledAt = &reconciledAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"distribution_id": distributionID, // Resolved row
		"signature":       signature,      // Manually obtained reference
	}).Info("Distribution reconciled")
	return &dist, nil
}

// History returns a page of distributions, newest first, plus the total count.
func (e *Engine) History(status string, offset, limit int) ([]domain.Distribution, int64, error) {
	query := e.db.Model(&domain.Distribution{})
	if status != "" {
		query = query.Where("status = ?", status) // Filter by status
	}
	var total int64 // Total matching rows for pagination
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var dists []domain.Distribution // The page of distributions
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&dists).Error; err != nil {
		return nil, 0, err
	}
	return dists, total, nil
}
