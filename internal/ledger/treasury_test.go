package ledger

import (
	"testing"

	"cashout_system/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTreasuryDebitAndCredit(t *testing.T) {
	db := setupTestDB(t)
	treasury := NewTreasuryLedger(db)
	require.NoError(t, db.Create(&domain.TreasuryAccount{Type: domain.TreasuryMining, Balance: 5000}).Error)

	var after int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = treasury.Debit(tx, domain.TreasuryMining, 2000)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(3000), after)

	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = treasury.Credit(tx, domain.TreasuryMining, 500)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(3500), after)
}

func TestTreasuryDebitInsufficient(t *testing.T) {
	db := setupTestDB(t)
	treasury := NewTreasuryLedger(db)
	require.NoError(t, db.Create(&domain.TreasuryAccount{Type: domain.TreasuryMining, Balance: 5000}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := treasury.Debit(tx, domain.TreasuryMining, 6000)
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientTreasuryBalance)

	// The rejected debit leaves the pool untouched
	acc, err := treasury.Account(domain.TreasuryMining)
	require.NoError(t, err)
	require.Equal(t, int64(5000), acc.Balance)
}

func TestTreasuryUnknownPool(t *testing.T) {
	db := setupTestDB(t)
	treasury := NewTreasuryLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := treasury.Debit(tx, "vacation-fund", 10)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := treasury.Credit(tx, "vacation-fund", 10)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}
