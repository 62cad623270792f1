package settlement

import (
	"errors"
	"time"

	"cashout_system/internal/domain" // Importing domain models
	"cashout_system/internal/ledger" // Balance ledger

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ReversalService unwinds a completed cashout. The customer credit and the
// reversal flag update are one atomic unit; the original amounts are never
// recomputed — the reversal is a compensating entry on top of the immutable
// fact.
type ReversalService struct {
	db       *gorm.DB              // Database handle
	balances *ledger.BalanceLedger // Sole mutator of customer balances
	now      func() time.Time      // Clock, injectable for tests
}

// NewReversalService creates a reversal service
func NewReversalService(db *gorm.DB, balances *ledger.BalanceLedger, now func() time.Time) *ReversalService {
	if now == nil {
		now = time.Now // Default to the wall clock
	}
	return &ReversalService{db: db, balances: balances, now: now}
}

// Reverse credits the customer back and marks the transaction reversed.
// A second reversal of the same transaction fails with ErrAlreadyReversed and
// leaves the balance unchanged.
func (s *ReversalService) Reverse(transactionID, reason string) (*domain.CashoutTransaction, error) {
	var record domain.CashoutTransaction // The reversed transaction, re-read after commit
	// Credit and flag update share one transaction; a conflict re-runs both
	err := ledger.RunWithRetry(s.db, func(tx *gorm.DB) error {
		var orig domain.CashoutTransaction // Original transaction row
		if err := tx.Where("transaction_id = ?", transactionID).First(&orig).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound // No such transaction
			}
			return err
		}
		// Eligibility guards, checked inside the transaction
		if orig.Reversed {
			return ErrAlreadyReversed // Reversal fields are set exactly once
		}
		if orig.Status != domain.TxStatusCompleted {
			return ErrNotReversible // Only completed transactions can be reversed
		}
		// Credit the customer back the exact tokens converted
		if _, err := s.balances.Credit(tx, orig.CustomerID, orig.TokensConverted); err != nil {
			return err
		}
		reversedAt := s.now().UTC() // Reversal timestamp
		// Guarded update: reversed = false in the WHERE clause stops a racing reversal
		res := tx.Model(&domain.CashoutTransaction{}).
			Where("transaction_id = ? AND reversed = ?", transactionID, false).
			Updates(map[string]any{
				"reversed":        true,       // Flag set exactly once
				"reversed_at":     reversedAt, // When
				"reversal_reason": reason,     // Why
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReversed // A concurrent reversal got there first
		}
		record = orig // Carry the original values out
		record.Reversed = true
		record.ReversedAt = &reversedAt
		record.ReversalReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Log the reversal with context
	logrus.WithFields(logrus.Fields{
		"transaction_id": transactionID,          // Reversed transaction
		"customer_id":    record.CustomerID,      // Customer credited back
		"tokens":         record.TokensConverted, // Tokens credited back
		"reason":         reason,                 // Operator reason
	}).Info("Cashout reversed")
	return &record, nil
}
