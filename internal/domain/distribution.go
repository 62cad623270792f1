package domain

import "time"

// Distribution statuses
const (
	DistStatusPending   = "pending"
	DistStatusConfirmed = "confirmed"
	DistStatusFailed    = "failed"
)

// Distribution Model
//
// Append-only audit fact. Created pending alongside the treasury debit,
// transitions exactly once to confirmed or failed after the transport call.
// A failed row keeps its committed debit and waits for manual reconciliation.
type Distribution struct {
	DistributionID    string     `gorm:"primaryKey;size:36" json:"distribution_id"`     // UUID, generated at creation
	VenueID           string     `gorm:"index;size:64" json:"venue_id"`                 // Venue the payout is for
	VenueName         string     `gorm:"size:128" json:"venue_name"`                    // Display name at time of payout
	RecipientAddress  string     `gorm:"size:128" json:"recipient_address"`             // External address tokens were sent to
	Amount            int64      `gorm:"not null" json:"amount"`                        // Tokens sent, smallest unit
	SourceAccountType string     `gorm:"index;size:16" json:"source_account_type"`      // Treasury pool that funded it
	Signature         *string    `gorm:"size:128" json:"signature"`                     // External settlement reference, nil until confirmed
	Status            string     `gorm:"size:16;index" json:"status"`                   // pending, confirmed or failed
	StaffEmail        string     `gorm:"size:128" json:"staff_email"`                   // Operator who triggered it
	Reason            string     `json:"reason,omitempty"`                              // Metadata: why the payout was made
	Notes             string     `json:"notes,omitempty"`                               // Metadata: free-form notes
	ReconciledAt      *time.Time `json:"reconciled_at,omitempty"`                       // When an operator resolved a failed row
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                       // Timestamp of creation
}
