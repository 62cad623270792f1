package metrics

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

func addDistribution(t *testing.T, db *gorm.DB, amount int64, status string, createdAt time.Time) {
	t.Helper()
	d := domain.Distribution{
		DistributionID:    uuid.NewString(),
		VenueID:           "venue-1",
		RecipientAddress:  "addr",
		Amount:            amount,
		SourceAccountType: domain.TreasuryMining,
		Status:            status,
		CreatedAt:         createdAt,
	}
	require.NoError(t, db.Create(&d).Error)
}

func addCashout(t *testing.T, db *gorm.DB, venueID, cashToCustomer string, reversed bool, createdAt time.Time) {
	t.Helper()
	tx := domain.CashoutTransaction{
		TransactionID:      uuid.NewString(),
		CustomerID:         "cust-1",
		VenueID:            venueID,
		TokensConverted:    100,
		CashAmountUsd:      decimal.RequireFromString(cashToCustomer),
		VenueCommissionUsd: decimal.Zero,
		CashToCustomerUsd:  decimal.RequireFromString(cashToCustomer),
		Status:             domain.TxStatusCompleted,
		Reversed:           reversed,
		CreatedAt:          createdAt,
	}
	require.NoError(t, db.Create(&tx).Error)
}

func addCollection(t *testing.T, db *gorm.DB, venueID, amount string, collectedAt time.Time) {
	t.Helper()
	c := domain.MachineCollection{
		VenueID:     venueID,
		MachineID:   "machine-1",
		AmountUsd:   decimal.RequireFromString(amount),
		CollectedAt: collectedAt,
	}
	require.NoError(t, db.Create(&c).Error)
}

func TestStatsForPeriod(t *testing.T) {
	db := setupTestDB(t)
	agg := NewAggregator(db, func() time.Time { return testNow })

	addDistribution(t, db, 1000, domain.DistStatusConfirmed, testNow.Add(-1*time.Hour))
	addDistribution(t, db, 2000, domain.DistStatusConfirmed, testNow.Add(-2*time.Hour))
	// Failed and pending rows never count toward totals
	addDistribution(t, db, 500, domain.DistStatusFailed, testNow.Add(-1*time.Hour))
	addDistribution(t, db, 700, domain.DistStatusPending, testNow.Add(-1*time.Hour))
	// A confirmed payout from three days ago is outside "today"
	addDistribution(t, db, 4000, domain.DistStatusConfirmed, testNow.AddDate(0, 0, -3))

	today, err := agg.StatsForPeriod("today")
	require.NoError(t, err)
	require.Equal(t, int64(3000), today.TotalDistributed)
	require.Equal(t, int64(2), today.TransactionCount)
	require.True(t, today.AverageAmount.Equal(decimal.RequireFromString("1500")), "avg %s", today.AverageAmount)

	week, err := agg.StatsForPeriod("week")
	require.NoError(t, err)
	require.Equal(t, int64(7000), week.TotalDistributed)
	require.Equal(t, int64(3), week.TransactionCount)

	all, err := agg.StatsForPeriod("all")
	require.NoError(t, err)
	require.Equal(t, int64(7000), all.TotalDistributed)
}

func TestStatsForEmptyPeriod(t *testing.T) {
	db := setupTestDB(t)
	agg := NewAggregator(db, func() time.Time { return testNow })

	stats, err := agg.StatsForPeriod("today")
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalDistributed)
	require.Equal(t, int64(0), stats.TransactionCount)
	require.True(t, stats.AverageAmount.IsZero())
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	db := setupTestDB(t)
	agg := NewAggregator(db, func() time.Time { return testNow })

	_, err := agg.StatsForPeriod("fortnight")
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestTrendsForRange(t *testing.T) {
	db := setupTestDB(t)
	agg := NewAggregator(db, func() time.Time { return testNow })

	yesterday := testNow.AddDate(0, 0, -1)
	addCollection(t, db, "venue-1", "200", testNow)
	addCollection(t, db, "venue-1", "100", yesterday)
	addCashout(t, db, "venue-1", "50", false, testNow)
	addCashout(t, db, "venue-1", "30", false, yesterday)
	// Reversed cashouts are excluded from money-out
	addCashout(t, db, "venue-1", "500", true, testNow)

	series, err := agg.TrendsForRange("", 2)
	require.NoError(t, err)
	require.Len(t, series, 2)

	require.Equal(t, yesterday.Format("2006-01-02"), series[0].Date)
	require.True(t, series[0].MoneyIn.Equal(decimal.RequireFromString("100")))
	require.True(t, series[0].MoneyOut.Equal(decimal.RequireFromString("30")))
	require.True(t, series[0].NetRevenue.Equal(decimal.RequireFromString("70")))

	require.Equal(t, testNow.Format("2006-01-02"), series[1].Date)
	require.True(t, series[1].MoneyIn.Equal(decimal.RequireFromString("200")))
	require.True(t, series[1].MoneyOut.Equal(decimal.RequireFromString("50")))
	require.True(t, series[1].NetRevenue.Equal(decimal.RequireFromString("150")))
}

func TestTrendsRecomputeWithStoreFilter(t *testing.T) {
	db := setupTestDB(t)
	agg := NewAggregator(db, func() time.Time { return testNow })

	addCollection(t, db, "venue-1", "200", testNow)
	addCollection(t, db, "venue-2", "900", testNow)
	addCashout(t, db, "venue-1", "50", false, testNow)
	addCashout(t, db, "venue-2", "400", false, testNow)

	series, err := agg.TrendsForRange("venue-1", 1)
	require.NoError(t, err)
	require.Len(t, series, 1)
	// Sums come from venue-1's rows only, not from slicing system totals
	require.True(t, series[0].MoneyIn.Equal(decimal.RequireFromString("200")), "money in %s", series[0].MoneyIn)
	require.True(t, series[0].MoneyOut.Equal(decimal.RequireFromString("50")), "money out %s", series[0].MoneyOut)
	require.True(t, series[0].NetRevenue.Equal(decimal.RequireFromString("150")))
}
