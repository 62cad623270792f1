package domain

import (
	"time"

	"github.com/shopspring/decimal" // Fixed-point decimals for money fields
)

// RatePolicy Model
//
// Exactly one row is active at a time; an administrative update deactivates the
// current row and inserts a new one, so every policy version stays on record.
type RatePolicy struct {
	ID                          uint            `gorm:"primaryKey" json:"id"`                              // Primary key (policy version)
	TokensPerDollar             decimal.Decimal `gorm:"type:decimal(16,4);not null" json:"tokens_per_dollar"`  // Exchange rate: tokens per 1 USD
	MinCashoutUsd               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"min_cashout_usd"`    // Minimum cash value per cashout
	MaxCashoutPerTransactionUsd decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"max_cashout_per_transaction_usd"` // Maximum cash value per cashout
	DailyLimitPerCustomerUsd    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"daily_limit_per_customer_usd"`    // Per-customer daily cash limit
	VenueCommissionPercent      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"venue_commission_percent"`         // Venue's cut, 0-100
	Active                      bool            `gorm:"index" json:"active"`                               // Whether this is the current policy
	UpdatedBy                   string          `json:"updated_by"`                                        // Staff email that activated this version
	CreatedAt                   time.Time       `json:"created_at"`                                        // Timestamp of activation
}
