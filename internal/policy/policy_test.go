package policy

import (
	"fmt"
	"testing"
	"time"

	appdb "cashout_system/internal/db"
	"cashout_system/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)

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

// seedPolicy activates the standard test policy: 100 tokens per dollar, $1
// minimum, $100 per transaction, $500 per day, 10% venue commission.
func seedPolicy(t *testing.T, db *gorm.DB) {
	t.Helper()
	p := domain.RatePolicy{
		TokensPerDollar:             decimal.NewFromInt(100),
		MinCashoutUsd:               decimal.NewFromInt(1),
		MaxCashoutPerTransactionUsd: decimal.NewFromInt(100),
		DailyLimitPerCustomerUsd:    decimal.NewFromInt(500),
		VenueCommissionPercent:      decimal.NewFromInt(10),
		Active:                      true,
	}
	require.NoError(t, db.Create(&p).Error)
}

func addCompletedCashout(t *testing.T, db *gorm.DB, customerID string, cashUsd string, reversed bool, createdAt time.Time) {
	t.Helper()
	tx := domain.CashoutTransaction{
		TransactionID:      uuid.NewString(),
		CustomerID:         customerID,
		VenueID:            "venue-1",
		TokensConverted:    1,
		CashAmountUsd:      decimal.RequireFromString(cashUsd),
		VenueCommissionUsd: decimal.Zero,
		CashToCustomerUsd:  decimal.RequireFromString(cashUsd),
		Status:             domain.TxStatusCompleted,
		Reversed:           reversed,
		CreatedAt:          createdAt,
	}
	require.NoError(t, db.Create(&tx).Error)
}

func TestValidateComputesQuote(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	quote, err := svc.Validate("cust-1", 1000)
	require.NoError(t, err)
	require.True(t, quote.CashAmount.Equal(decimal.RequireFromString("10")), "cash amount %s", quote.CashAmount)
	require.True(t, quote.Commission.Equal(decimal.RequireFromString("1")), "commission %s", quote.Commission)
	require.True(t, quote.CashToCustomer.Equal(decimal.RequireFromString("9")), "cash to customer %s", quote.CashToCustomer)
	// The split always sums back to the gross amount
	require.True(t, quote.Commission.Add(quote.CashToCustomer).Equal(quote.CashAmount))
}

func TestValidateInvalidAmount(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	for _, tokens := range []int64{0, -100} {
		_, err := svc.Validate("cust-1", tokens)
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestValidateBelowMinimum(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	_, err := svc.Validate("cust-1", 50) // $0.50, under the $1 minimum
	require.ErrorIs(t, err, ErrBelowMinimum)
}

func TestValidateAboveMaximum(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	_, err := svc.Validate("cust-1", 20000) // $200, over the $100 per-transaction cap
	require.ErrorIs(t, err, ErrAboveMaximum)
}

func TestValidateDailyLimit(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	// Two prior completed cashouts today summing to $450
	addCompletedCashout(t, db, "cust-1", "300", false, testNow.Add(-4*time.Hour))
	addCompletedCashout(t, db, "cust-1", "150", false, testNow.Add(-2*time.Hour))

	// $60 more would exceed the $500 daily limit
	_, err := svc.Validate("cust-1", 6000)
	require.ErrorIs(t, err, ErrDailyLimitExceeded)

	// $40 more stays within it
	_, err = svc.Validate("cust-1", 4000)
	require.NoError(t, err)
}

func TestValidateDailyLimitIgnoresReversedAndOldTransactions(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	addCompletedCashout(t, db, "cust-1", "450", false, testNow.Add(-3*time.Hour))
	// A reversed cashout today and a completed one yesterday count for nothing
	addCompletedCashout(t, db, "cust-1", "100", true, testNow.Add(-1*time.Hour))
	addCompletedCashout(t, db, "cust-1", "400", false, testNow.Add(-30*time.Hour))

	_, err := svc.Validate("cust-1", 4000) // $40 on top of $450 spent today
	require.NoError(t, err)
}

func TestValidateOtherCustomersDoNotCount(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	addCompletedCashout(t, db, "cust-2", "490", false, testNow.Add(-1*time.Hour))

	_, err := svc.Validate("cust-1", 5000) // $50, unaffected by cust-2's spend
	require.NoError(t, err)
}

func TestValidateWithoutActivePolicy(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, func() time.Time { return testNow })

	_, err := svc.Validate("cust-1", 1000)
	require.ErrorIs(t, err, ErrNoActivePolicy)
}

func TestUpdateEnforcesInvariant(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, func() time.Time { return testNow })

	// min > max violates min <= max <= dailyLimit
	_, err := svc.Update(domain.RatePolicy{
		TokensPerDollar:             decimal.NewFromInt(100),
		MinCashoutUsd:               decimal.NewFromInt(50),
		MaxCashoutPerTransactionUsd: decimal.NewFromInt(10),
		DailyLimitPerCustomerUsd:    decimal.NewFromInt(500),
		VenueCommissionPercent:      decimal.NewFromInt(10),
	})
	require.ErrorIs(t, err, ErrInvalidPolicy)

	// max > dailyLimit violates it too
	_, err = svc.Update(domain.RatePolicy{
		TokensPerDollar:             decimal.NewFromInt(100),
		MinCashoutUsd:               decimal.NewFromInt(1),
		MaxCashoutPerTransactionUsd: decimal.NewFromInt(600),
		DailyLimitPerCustomerUsd:    decimal.NewFromInt(500),
		VenueCommissionPercent:      decimal.NewFromInt(10),
	})
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestUpdateKeepsExactlyOneActivePolicy(t *testing.T) {
	db := setupTestDB(t)
	seedPolicy(t, db)
	svc := NewService(db, func() time.Time { return testNow })

	updated, err := svc.Update(domain.RatePolicy{
		TokensPerDollar:             decimal.NewFromInt(200),
		MinCashoutUsd:               decimal.NewFromInt(2),
		MaxCashoutPerTransactionUsd: decimal.NewFromInt(50),
		DailyLimitPerCustomerUsd:    decimal.NewFromInt(300),
		VenueCommissionPercent:      decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	var activeCount int64
	require.NoError(t, db.Model(&domain.RatePolicy{}).Where("active = ?", true).Count(&activeCount).Error)
	require.Equal(t, int64(1), activeCount)

	active, err := svc.Active()
	require.NoError(t, err)
	require.Equal(t, updated.ID, active.ID)
	require.True(t, active.TokensPerDollar.Equal(decimal.NewFromInt(200)))
}
