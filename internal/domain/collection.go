package domain

import (
	"time"

	"github.com/shopspring/decimal" // Fixed-point decimals for money fields
)

// MachineCollection Model
//
// Cash collected from a venue machine; the money-in side of the revenue
// trend rollups.
type MachineCollection struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                        // Primary key
	VenueID     string          `gorm:"index;size:64" json:"venue_id"`               // Venue (store) the machine belongs to
	MachineID   string          `gorm:"size:64" json:"machine_id"`                   // Machine the cash came from
	AmountUsd   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_usd"` // Cash collected
	CollectedAt time.Time       `gorm:"index" json:"collected_at"`                   // When the machine was emptied
	RecordedBy  string          `gorm:"size:128" json:"recorded_by"`                 // Staff email that recorded it
	CreatedAt   time.Time       `json:"created_at"`                                  // Timestamp of creation
}
