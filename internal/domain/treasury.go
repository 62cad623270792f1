package domain

import "time"

// Treasury account types
const (
	TreasuryMining     = "mining"
	TreasuryFounder    = "founder"
	TreasuryOperations = "operations"
	TreasuryCommunity  = "community"
)

// TreasuryAccountTypes lists every pool the treasury holds.
var TreasuryAccountTypes = []string{TreasuryMining, TreasuryFounder, TreasuryOperations, TreasuryCommunity}

// TreasuryAccount Model
//
// One row per pool; mutated only by distribution debits and administrative
// top-ups, both version-checked.
type TreasuryAccount struct {
	Type      string    `gorm:"primaryKey;size:16" json:"type"`      // mining, founder, operations or community
	Address   string    `gorm:"size:128" json:"address"`             // Opaque external ledger identifier
	Balance   int64     `gorm:"not null;default:0" json:"balance"`   // Balance in smallest token units
	Version   int64     `gorm:"not null;default:0" json:"-"`         // Optimistic concurrency counter
	UpdatedAt time.Time `json:"updated_at"`                          // Timestamp of last change
}
