package domain

import "time"

// CustomerBalance Model
//
// Owned exclusively by the balance ledger; every change goes through a
// version-checked update paired with a CashoutTransaction or an administrative
// credit in the same storage transaction.
type CustomerBalance struct {
	CustomerID   string    `gorm:"primaryKey;size:64" json:"customer_id"` // Opaque customer identifier
	TokenBalance int64     `gorm:"not null;default:0" json:"token_balance"` // Balance in smallest token units, never negative
	Version      int64     `gorm:"not null;default:0" json:"-"`           // Optimistic concurrency counter
	UpdatedAt    time.Time `json:"updated_at"`                            // Timestamp of last change
}
