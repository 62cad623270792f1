package ledger

import (
	"errors"

	"cashout_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// TreasuryLedger owns the per-pool treasury balances with the same
// double-entry discipline as the customer balance ledger: every move is
// version-checked and paired with an audit record inside one transaction.
type TreasuryLedger struct {
	db *gorm.DB // Database handle for read-only lookups
}

// NewTreasuryLedger creates a treasury ledger over the given database
func NewTreasuryLedger(db *gorm.DB) *TreasuryLedger {
	return &TreasuryLedger{db: db}
}

// Account returns the treasury account for the given pool type
func (l *TreasuryLedger) Account(accountType string) (*domain.TreasuryAccount, error) {
	var acc domain.TreasuryAccount // Account row
	if err := l.db.Where("type = ?", accountType).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound // Unknown pool type
		}
		return nil, err
	}
	return &acc, nil
}

// Accounts returns every treasury pool
func (l *TreasuryLedger) Accounts() ([]domain.TreasuryAccount, error) {
	var accs []domain.TreasuryAccount // All pools
	if err := l.db.Order("type").Find(&accs).Error; err != nil {
		return nil, err
	}
	return accs, nil
}

// Debit atomically decrements the pool's balance and returns the new balance.
// Fails with ErrInsufficientTreasuryBalance when amount exceeds the pool.
func (l *TreasuryLedger) Debit(tx *gorm.DB, accountType string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount // Debits must move a positive amount
	}
	var acc domain.TreasuryAccount // Current account row
	if err := tx.Where("type = ?", accountType).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound // Unknown pool type
		}
		return 0, err
	}
	// Never allow the pool to go negative
	if amount > acc.Balance {
		return 0, ErrInsufficientTreasuryBalance
	}
	newBalance := acc.Balance - amount // Balance after the debit
	// Version-checked update scoped to this pool only
	res := tx.Model(&domain.TreasuryAccount{}).
		Where("type = ? AND version = ?", accountType, acc.Version).
		Updates(map[string]any{"balance": newBalance, "version": acc.Version + 1})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrStorageConflict // Another writer won the race
	}
	logrus.WithFields(logrus.Fields{
		"account": accountType, // Pool that was debited
		"amount":  amount,      // Amount debited
		"balance": newBalance,  // Balance after the debit
	}).Debug("Treasury debited") // Log the debit
	return newBalance, nil
}

// Credit atomically increments the pool's balance and returns the new balance.
// Used by administrative top-ups and failed-distribution reconciliation.
func (l *TreasuryLedger) Credit(tx *gorm.DB, accountType string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount // Credits must move a positive amount
	}
	var acc domain.TreasuryAccount // Current account row
	if err := tx.Where("type = ?", accountType).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound // Pools are seeded at migration, never created here
		}
		return 0, err
	}
	newBalance := acc.Balance + amount // Balance after the credit
	// Version-checked update, same discipline as Debit
	res := tx.Model(&domain.TreasuryAccount{}).
		Where("type = ? AND version = ?", accountType, acc.Version).
		Updates(map[string]any{"balance": newBalance, "version": acc.Version + 1})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrStorageConflict // Another writer won the race
	}
	logrus.WithFields(logrus.Fields{
		"account": accountType, // Pool that was credited
		"amount":  amount,      // Amount credited
		"balance": newBalance,  // Balance after the credit
	}).Debug("Treasury credited") // Log the credit
	return newBalance, nil
}
