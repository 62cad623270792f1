package domain

import "time"

// Adjustment target kinds
const (
	AdjustCustomer = "customer"
	AdjustTreasury = "treasury"
)

// AdminAdjustment Model
//
// Audit fact for administrative credits: every customer grant and treasury
// top-up writes one of these in the same transaction as the balance change.
type AdminAdjustment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`            // Primary key
	TargetKind   string    `gorm:"size:16;index" json:"target_kind"` // customer or treasury
	TargetID     string    `gorm:"size:64;index" json:"target_id"`  // Customer ID or treasury pool type
	Tokens       int64     `gorm:"not null" json:"tokens"`          // Tokens credited
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`   // Balance after the credit
	Reason       string    `json:"reason,omitempty"`                // Operator-supplied reason
	StaffEmail   string    `gorm:"size:128" json:"staff_email"`     // Operator who made it
	CreatedAt    time.Time `json:"created_at"`                      // Timestamp of creation
}
