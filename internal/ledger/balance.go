package ledger

import (
	"errors"

	"cashout_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// BalanceLedger is the only component allowed to mutate customer token
// balances. Debit and Credit run against the caller's transaction handle so an
// engine can pair the balance move with its audit record in one atomic unit.
type BalanceLedger struct {
	db *gorm.DB // Database handle for read-only lookups
}

// NewBalanceLedger creates a balance ledger over the given database
func NewBalanceLedger(db *gorm.DB) *BalanceLedger {
	return &BalanceLedger{db: db}
}

// Balance returns the customer's current token balance
func (l *BalanceLedger) Balance(customerID string) (int64, error) {
	var bal domain.CustomerBalance // Balance row
	if err := l.db.Where("customer_id = ?", customerID).First(&bal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound // No balance row for this customer
		}
		return 0, err
	}
	return bal.TokenBalance, nil
}

// Debit atomically decrements the customer's balance by tokens and returns the
// new balance. Fails with ErrInsufficientBalance when tokens exceed the current
// balance and ErrStorageConflict when the version check loses a race; the
// caller's RunWithRetry loop re-runs the surrounding transaction in that case.
func (l *BalanceLedger) Debit(tx *gorm.DB, customerID string, tokens int64) (int64, error) {
	if tokens <= 0 {
		return 0, ErrInvalidAmount // Debits must move a positive amount
	}
	var bal domain.CustomerBalance // Current balance row
	if err := tx.Where("customer_id = ?", customerID).First(&bal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound // Cannot debit a customer with no balance row
		}
		return 0, err
	}
	// Never allow the balance to go negative
	if tokens > bal.TokenBalance {
		return 0, ErrInsufficientBalance
	}
	newBalance := bal.TokenBalance - tokens // Balance after the debit
	// Version-checked update: only applies if nobody changed the row since the read
	res := tx.Model(&domain.CustomerBalance{}).
		Where("customer_id = ? AND version = ?", customerID, bal.Version).
		Updates(map[string]any{"token_balance": newBalance, "version": bal.Version + 1})
	if res.Error != nil {
		return 0, res.Error
	}
	// Zero rows updated means another writer won the race
	if res.RowsAffected == 0 {
		return 0, ErrStorageConflict
	}
	logrus.WithFields(logrus.Fields{
		"customer_id": customerID, // Customer whose balance changed
		"tokens":      tokens,     // Amount debited
		"balance":     newBalance, // Balance after the debit
	}).Debug("Balance debited") // Log the debit
	return newBalance, nil
}

// Credit atomically increments the customer's balance by tokens and returns the
// new balance, creating the balance row if the customer has none yet. Used by
// reversals and administrative grants.
func (l *BalanceLedger) Credit(tx *gorm.DB, customerID string, tokens int64) (int64, error) {
	if tokens <= 0 {
		return 0, ErrInvalidAmount // Credits must move a positive amount
	}
	var bal domain.CustomerBalance // Current balance row
	err := tx.Where("customer_id = ?", customerID).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First credit for this customer creates the row
		bal = domain.CustomerBalance{CustomerID: customerID, TokenBalance: tokens}
		if err := tx.Create(&bal).Error; err != nil {
			return 0, err
		}
		return bal.TokenBalance, nil
	} else if err != nil {
		return 0, err
	}
	newBalance := bal.TokenBalance + tokens // Balance after the credit
	// Version-checked update, same discipline as Debit
	res := tx.Model(&domain.CustomerBalance{}).
		Where("customer_id = ? AND version = ?", customerID, bal.Version).
		Updates(map[string]any{"token_balance": newBalance, "version": bal.Version + 1})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrStorageConflict // Another writer won the race
	}
	logrus.WithFields(logrus.Fields{
		"customer_id": customerID, // Customer whose balance changed
		"tokens":      tokens,     // Amount credited
		"balance":     newBalance, // Balance after the credit
	}).Debug("Balance credited") // Log the credit
	return newBalance, nil
}
