package ledger

import (
	"errors"

	"gorm.io/gorm" // GORM ORM library
)

// maxAttempts bounds the optimistic-concurrency retry loop.
const maxAttempts = 3

// RunWithRetry executes fn inside a storage transaction, retrying the whole
// transaction a bounded number of times when it loses an optimistic version
// check. Any other error aborts immediately and rolls back.
func RunWithRetry(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	// Retry the full transaction so each attempt re-reads fresh versions
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = db.Transaction(fn)
		if !errors.Is(err, ErrStorageConflict) {
			return err // Success, or a non-retryable failure
		}
	}
	return err // Retries exhausted, surface the conflict
}
