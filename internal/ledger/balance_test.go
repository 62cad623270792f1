package ledger

import (
	"fmt"
	"sync"
	"testing"

	appdb "cashout_system/internal/db"
	"cashout_system/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1) // sqlite allows a single writer
	if err := appdb.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDebitAndCredit(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewBalanceLedger(db)
	require.NoError(t, db.Create(&domain.CustomerBalance{CustomerID: "cust-1", TokenBalance: 1000}).Error)

	var after int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = ledger.Debit(tx, "cust-1", 300)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(700), after)

	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = ledger.Credit(tx, "cust-1", 50)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(750), after)

	balance, err := ledger.Balance("cust-1")
	require.NoError(t, err)
	require.Equal(t, int64(750), balance)
}

func TestDebitInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewBalanceLedger(db)
	require.NoError(t, db.Create(&domain.CustomerBalance{CustomerID: "cust-1", TokenBalance: 100}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Debit(tx, "cust-1", 200)
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// The failed debit must not be visible
	balance, err := ledger.Balance("cust-1")
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)
}

func TestDebitUnknownCustomer(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewBalanceLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Debit(tx, "nobody", 10)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDebitRejectsNonPositiveAmounts(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewBalanceLedger(db)
	require.NoError(t, db.Create(&domain.CustomerBalance{CustomerID: "cust-1", TokenBalance: 100}).Error)

	for _, tokens := range []int64{0, -5} {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := ledger.Debit(tx, "cust-1", tokens)
			return err
		})
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestCreditCreatesMissingRow(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewBalanceLedger(db)

	var after int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = ledger.Credit(tx, "new-cust", 500)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(500), after)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewBalanceLedger(db)
	require.NoError(t, db.Create(&domain.CustomerBalance{CustomerID: "cust-1", TokenBalance: 1000}).Error)

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = RunWithRetry(db, func(tx *gorm.DB) error {
				_, err := ledger.Debit(tx, "cust-1", 100)
				return err
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "debit %d", i)
	}
	balance, err := ledger.Balance("cust-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}
