package domain

import (
	"time"

	"github.com/shopspring/decimal" // Fixed-point decimals for money fields
)

// Cashout transaction statuses
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// CashoutTransaction Model
//
// Append-only audit fact. Immutable once completed, except for the reversal
// fields which the reversal service sets exactly once.
type CashoutTransaction struct {
	TransactionID      string          `gorm:"primaryKey;size:36" json:"transaction_id"`          // UUID, generated at creation
	CustomerID         string          `gorm:"index;size:64" json:"customer_id"`                  // Customer whose tokens were converted
	VenueID            string          `gorm:"index;size:64" json:"venue_id"`                     // Venue where the cashout happened
	StaffID            string          `gorm:"size:64" json:"staff_id"`                           // Staff member who processed it
	TokensConverted    int64           `gorm:"not null" json:"tokens_converted"`                  // Tokens debited, smallest unit
	CashAmountUsd      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cash_amount_usd"` // Gross cash value of the tokens
	VenueCommissionUsd decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"venue_commission_usd"` // Venue's share of the cash value
	CashToCustomerUsd  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cash_to_customer_usd"` // Cash handed to the customer
	BalanceAfter       int64           `gorm:"not null" json:"balance_after"`                     // Ledger balance after the debit
	Status             string          `gorm:"size:16;index" json:"status"`                       // pending, completed or failed
	Reversed           bool            `gorm:"index;default:false" json:"reversed"`               // Set once by the reversal service
	ReversedAt         *time.Time      `json:"reversed_at,omitempty"`                             // When the reversal happened
	ReversalReason     string          `json:"reversal_reason,omitempty"`                         // Operator-supplied reason
	Notes              string          `json:"notes,omitempty"`                                   // Free-form staff notes
	IdempotencyKey     *string         `gorm:"uniqueIndex;size:64" json:"-"`                      // Optional caller-supplied dedupe key
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`                           // Timestamp of creation
}
