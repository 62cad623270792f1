package ledger

import "errors"

// Ledger error values; callers match with errors.Is
var (
	ErrInsufficientBalance         = errors.New("insufficient balance")          // Debit larger than the customer's balance
	ErrInsufficientTreasuryBalance = errors.New("insufficient treasury balance") // Debit larger than the treasury pool
	ErrStorageConflict             = errors.New("storage conflict")              // Optimistic version check lost, retries exhausted
	ErrNotFound                    = errors.New("account not found")             // No such customer balance or treasury account
	ErrInvalidAmount               = errors.New("invalid amount")                // Zero or negative token amount
)
