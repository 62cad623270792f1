package metrics

import (
	"errors"
	"time"

	"cashout_system/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Fixed-point money arithmetic
	"gorm.io/gorm"                  // GORM ORM library
)

// ErrInvalidPeriod is returned for an unknown stats period.
var ErrInvalidPeriod = errors.New("invalid period")

// Aggregator computes read-only rollups over the transaction and distribution
// history. It never mutates anything; reversed cashouts are excluded from
// every total but stay visible in history listings.
type Aggregator struct {
	db  *gorm.DB         // Database handle
	now func() time.Time // Clock, injectable for tests
}

// NewAggregator creates a metrics aggregator
func NewAggregator(db *gorm.DB, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now // Default to the wall clock
	}
	return &Aggregator{db: db, now: now}
}

// DistributionStats is the period rollup over confirmed distributions.
type DistributionStats struct {
	Period           string          `json:"period"`            // today, week, month or all
	TotalDistributed int64           `json:"total_distributed"` // Tokens sent in the period
	TransactionCount int64           `json:"transaction_count"` // Confirmed distributions in the period
	AverageAmount    decimal.Decimal `json:"average_amount"`    // Mean tokens per distribution
}

// StatsForPeriod aggregates confirmed distributions for the named period.
func (a *Aggregator) StatsForPeriod(period string) (*DistributionStats, error) {
	now := a.now().UTC() // Window end
	var since time.Time  // Window start; zero means all time
	switch period {
	case "today":
		since = now.Truncate(24 * time.Hour) // Midnight UTC today
	case "week":
		since = now.AddDate(0, 0, -7) // Trailing seven days
	case "month":
		since = now.AddDate(0, -1, 0) // Trailing month
	case "all", "":
		// No lower bound
	default:
		return nil, ErrInvalidPeriod
	}
	query := a.db.Select("amount").Where("status = ?", domain.DistStatusConfirmed)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since) // Scope to the period
	}
	var rows []domain.Distribution // Confirmed distributions in the window
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	stats := &DistributionStats{Period: period, AverageAmount: decimal.Zero}
	for _, d := range rows {
		stats.TotalDistributed += d.Amount // Sum token amounts
		stats.TransactionCount++           // Count rows
	}
	if stats.TransactionCount > 0 {
		// Mean to cent precision
		stats.AverageAmount = decimal.NewFromInt(stats.TotalDistributed).
			DivRound(decimal.NewFromInt(stats.TransactionCount), 2)
	}
	return stats, nil
}

// DailyTrend is one day of the revenue trend series.
type DailyTrend struct {
	Date       string          `json:"date"`        // Day, YYYY-MM-DD UTC
	MoneyIn    decimal.Decimal `json:"money_in"`    // Cash collected from machines
	MoneyOut   decimal.Decimal `json:"money_out"`   // Cash paid to customers
	NetRevenue decimal.Decimal `json:"net_revenue"` // MoneyIn - MoneyOut
}

// TrendsForRange returns one entry per day for the trailing days, oldest
// first. When storeID is set every sum is recomputed from the filtered rows,
// never sliced out of pre-aggregated system totals.
func (a *Aggregator) TrendsForRange(storeID string, days int) ([]DailyTrend, error) {
	if days <= 0 {
		days = 7 // Default window
	}
	end := a.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1) // Start of tomorrow
	start := end.AddDate(0, 0, -days)                              // Window start

	// Cash paid out: completed, non-reversed cashouts in the window
	outQuery := a.db.Select("cash_to_customer_usd", "created_at").
		Where("status = ? AND reversed = ? AND created_at >= ? AND created_at < ?",
			domain.TxStatusCompleted, false, start, end)
	if storeID != "" {
		outQuery = outQuery.Where("venue_id = ?", storeID) // Recompute from the filtered subset
	}
	var cashouts []domain.CashoutTransaction
	if err := outQuery.Find(&cashouts).Error; err != nil {
		return nil, err
	}

	// Cash collected: machine collections in the window
	inQuery := a.db.Select("amount_usd", "collected_at").
		Where("collected_at >= ? AND collected_at < ?", start, end)
	if storeID != "" {
		inQuery = inQuery.Where("venue_id = ?", storeID) // Same filter on the in-side
	}
	var collections []domain.MachineCollection
	if err := inQuery.Find(&collections).Error; err != nil {
		return nil, err
	}

	// Bucket both series by UTC day
	series := make([]DailyTrend, days)
	index := make(map[string]int, days) // Day -> slice position
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		series[i] = DailyTrend{Date: day, MoneyIn: decimal.Zero, MoneyOut: decimal.Zero, NetRevenue: decimal.Zero}
		index[day] = i
	}
	for _, c := range collections {
		day := c.CollectedAt.UTC().Format("2006-01-02")
		if i, ok := index[day]; ok {
			series[i].MoneyIn = series[i].MoneyIn.Add(c.AmountUsd)
		}
	}
	for _, tx := range cashouts {
		day := tx.CreatedAt.UTC().Format("2006-01-02")
		if i, ok := index[day]; ok {
			series[i].MoneyOut = series[i].MoneyOut.Add(tx.CashToCustomerUsd)
		}
	}
	for i := range series {
		series[i].NetRevenue = series[i].MoneyIn.Sub(series[i].MoneyOut)
	}
	return series, nil
}
