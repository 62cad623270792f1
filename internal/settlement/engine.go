package settlement

import (
	"errors"
	"time"

	"cashout_system/internal/domain" // Importing domain models
	"cashout_system/internal/ledger" // Balance ledger
	"cashout_system/internal/policy" // Rate policy validation

	"github.com/google/uuid"        // Transaction IDs
	"github.com/shopspring/decimal" // Fixed-point money totals
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// Settlement error values; callers match with errors.Is
var (
	ErrNotFound        = errors.New("transaction not found")     // No such cashout transaction
	ErrAlreadyReversed = errors.New("transaction already reversed") // Reversal fields were already set
	ErrNotReversible   = errors.New("transaction not reversible")   // Only completed transactions can be reversed
)

// Request carries everything needed to process one cashout.
type Request struct {
	CustomerID     string // Customer converting tokens
	VenueID        string // Venue the cashout happens at
	StaffID        string // Staff member processing it
	Tokens         int64  // Tokens to convert, smallest unit
	Notes          string // Free-form staff notes
	IdempotencyKey string // Optional dedupe key; empty means single-shot
}

// Engine orchestrates a single cashout: live-balance check, policy validation,
// then one storage transaction holding the debit and the transaction record.
// It performs no business retries; on failure the caller gets the error
// unchanged and the balance is untouched.
type Engine struct {
	db       *gorm.DB              // Database handle
	balances *ledger.BalanceLedger // Sole mutator of customer balances
	policies *policy.Service       // Rate policy validation
	now      func() time.Time      // Clock, injectable for tests
}

// NewEngine creates a settlement engine
func NewEngine(db *gorm.DB, balances *ledger.BalanceLedger, policies *policy.Service, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now // Default to the wall clock
	}
	return &Engine{db: db, balances: balances, policies: policies, now: now}
}

// ProcessCashout converts a customer's tokens to cash and returns the
// persisted transaction record.
func (e *Engine) ProcessCashout(req Request) (*domain.CashoutTransaction, error) {
	// Replays with the same idempotency key return the original record
	if req.IdempotencyKey != "" {
		var existing domain.CashoutTransaction
		err := e.db.Where("idempotency_key = ?", req.IdempotencyKey).First(&existing).Error
		if err == nil {
			return &existing, nil // Already processed, nothing debited twice
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	// Live balance check: the policy only knows configured limits, not balances
	balance, err := e.balances.Balance(req.CustomerID)
	if err != nil {
		return nil, err
	}
	if req.Tokens > balance {
		return nil, ledger.ErrInsufficientBalance
	}
	// Validate against the active policy; its failures propagate verbatim
	quote, err := e.policies.Validate(req.CustomerID, req.Tokens)
	if err != nil {
		return nil, err
	}
	var record domain.CashoutTransaction // The persisted audit fact
	// Debit and record insert are one atomic unit; a conflict re-runs both
	err = ledger.RunWithRetry(e.db, func(tx *gorm.DB) error {
		newBalance, err := e.balances.Debit(tx, req.CustomerID, req.Tokens)
		if err != nil {
			return err // Rolls back; nothing is visible
		}
		record = domain.CashoutTransaction{
			TransactionID:      uuid.NewString(),     // Generated ID
			CustomerID:         req.CustomerID,       // Customer converting tokens
			VenueID:            req.VenueID,          // Venue context
			StaffID:            req.StaffID,          // Staff context
			TokensConverted:    req.Tokens,           // Tokens debited
			CashAmountUsd:      quote.CashAmount,     // Verbatim from the policy quote
			VenueCommissionUsd: quote.Commission,     // Verbatim from the policy quote
			CashToCustomerUsd:  quote.CashToCustomer, // Verbatim from the policy quote
			BalanceAfter:       newBalance,           // Ledger's returned new balance
			Status:             domain.TxStatusCompleted,
			Notes:              req.Notes,            // Staff notes
			CreatedAt:          e.now().UTC(),        // Creation timestamp
		}
		if req.IdempotencyKey != "" {
			record.IdempotencyKey = &req.IdempotencyKey // Unique index dedupes replays
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		// Log the failed cashout with context
		logrus.WithFields(logrus.Fields{
			"customer_id": req.CustomerID, // Customer
			"venue_id":    req.VenueID,    // Venue
			"tokens":      req.Tokens,     // Requested tokens
			"error":       err.Error(),    // Failure
		}).Error("Cashout failed")
		return nil, err
	}
	// Log the completed cashout
	logrus.WithFields(logrus.Fields{
		"transaction_id":   record.TransactionID,     // New transaction
		"customer_id":      req.CustomerID,           // Customer
		"venue_id":         req.VenueID,              // Venue
		"tokens":           req.Tokens,               // Tokens converted
		"cash_amount":      record.CashAmountUsd,     // Gross cash value
		"cash_to_customer": record.CashToCustomerUsd, // Paid to customer
		"balance_after":    record.BalanceAfter,      // Balance after debit
	}).Info("Cashout completed")
	return &record, nil
}

// VenueSummary holds the rollup totals returned alongside a venue's history.
type VenueSummary struct {
	TransactionCount int64           `json:"transaction_count"` // Matching transactions
	TokensConverted  int64           `json:"tokens_converted"`  // Total tokens converted
	CashPaidUsd      decimal.Decimal `json:"cash_paid_usd"`     // Total cash handed to customers
	CommissionUsd    decimal.Decimal `json:"commission_usd"`    // Total venue commission
}

// HistoryFilter narrows a venue history listing.
type HistoryFilter struct {
	StartDate *time.Time // Inclusive lower bound on created_at
	EndDate   *time.Time // Inclusive upper bound on created_at
	Status    string     // Optional status filter
	Offset    int        // Pagination offset
	Limit     int        // Pagination page size
}

// VenueHistory returns a page of a venue's cashout transactions plus the total
// count of matching rows. Reversed transactions stay in the listing.
func (e *Engine) VenueHistory(venueID string, f HistoryFilter) ([]domain.CashoutTransaction, int64, error) {
	query := e.db.Model(&domain.CashoutTransaction{}).Where("venue_id = ?", venueID)
	if f.StartDate != nil {
		query = query.Where("created_at >= ?", *f.StartDate) // Filter by start date
	}
	if f.EndDate != nil {
		query = query.Where("created_at <= ?", *f.EndDate) // Filter by end date
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status) // Filter by status
	}
	var total int64 // Total matching rows for pagination
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.CashoutTransaction // The page of transactions
	if err := query.Order("created_at desc").Offset(f.Offset).Limit(f.Limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// VenueSummaryFor computes rollup totals over every transaction matching the
// filter, not just the returned page. Reversed transactions are excluded from
// the money totals but still counted in the listing itself.
func (e *Engine) VenueSummaryFor(venueID string, f HistoryFilter) (*VenueSummary, error) {
	query := e.db.Model(&domain.CashoutTransaction{}).
		Select("tokens_converted", "cash_to_customer_usd", "venue_commission_usd", "reversed").
		Where("venue_id = ?", venueID)
	if f.StartDate != nil {
		query = query.Where("created_at >= ?", *f.StartDate) // Filter by start date
	}
	if f.EndDate != nil {
		query = query.Where("created_at <= ?", *f.EndDate) // Filter by end date
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status) // Filter by status
	}
	var rows []domain.CashoutTransaction // Matching rows, selected columns only
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	summary := &VenueSummary{CashPaidUsd: decimal.Zero, CommissionUsd: decimal.Zero}
	for _, tx := range rows {
		summary.TransactionCount++
		if tx.Reversed {
			continue // Reversed rows stay out of the money totals
		}
		summary.TokensConverted += tx.TokensConverted
		summary.CashPaidUsd = summary.CashPaidUsd.Add(tx.CashToCustomerUsd)
		summary.CommissionUsd = summary.CommissionUsd.Add(tx.VenueCommissionUsd)
	}
	return summary, nil
}
