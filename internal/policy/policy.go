package policy

import (
	"errors"
	"time"

	"cashout_system/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Fixed-point money arithmetic
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// Validation error values; callers match with errors.Is
var (
	ErrInvalidAmount      = errors.New("invalid token amount")          // Zero or negative tokens requested
	ErrBelowMinimum       = errors.New("below minimum cashout")         // Cash value under the configured minimum
	ErrAboveMaximum       = errors.New("above maximum cashout")         // Cash value over the per-transaction maximum
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")          // Customer's daily cash total would be exceeded
	ErrNoActivePolicy     = errors.New("no active rate policy")         // No policy row is marked active
	ErrInvalidPolicy      = errors.New("invalid rate policy")           // Administrative update violates the policy invariant
)

// hundred is the divisor for percent math.
var hundred = decimal.NewFromInt(100)

// Quote is the computed money split for a valid cashout request. The
// settlement engine persists these values verbatim, never re-deriving them.
type Quote struct {
	CashAmount     decimal.Decimal // Gross cash value of the tokens
	Commission     decimal.Decimal // Venue's share
	CashToCustomer decimal.Decimal // Cash handed to the customer
}

// Service validates cashout requests against the active rate policy. It is
// pure computation plus one read of the customer's daily completed total; it
// never mutates anything.
type Service struct {
	db  *gorm.DB         // Database handle
	now func() time.Time // Clock, injectable for tests
}

// NewService creates a rate policy service
func NewService(db *gorm.DB, now func() time.Time) *Service {
	if now == nil {
		now = time.Now // Default to the wall clock
	}
	return &Service{db: db, now: now}
}

// Active returns the current rate policy. Read fresh on every request; the
// settlement engine never caches it across requests.
func (s *Service) Active() (*domain.RatePolicy, error) {
	var p domain.RatePolicy // Active policy row
	if err := s.db.Where("active = ?", true).Order("id desc").First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActivePolicy // Nothing seeded or activated yet
		}
		return nil, err
	}
	return &p, nil
}

// Validate checks a requested conversion against the active policy and returns
// the computed money split. All USD values are rounded to cents.
func (s *Service) Validate(customerID string, tokens int64) (*Quote, error) {
	if tokens <= 0 {
		return nil, ErrInvalidAmount // Must convert a positive token amount
	}
	p, err := s.Active() // Read the policy fresh for this request
	if err != nil {
		return nil, err
	}
	// cashAmount = tokens / tokensPerDollar, to cent precision
	cashAmount := decimal.NewFromInt(tokens).DivRound(p.TokensPerDollar, 2)
	if cashAmount.LessThan(p.MinCashoutUsd) {
		return nil, ErrBelowMinimum // Under the configured minimum
	}
	if cashAmount.GreaterThan(p.MaxCashoutPerTransactionUsd) {
		return nil, ErrAboveMaximum // Over the per-transaction maximum
	}
	// Sum of today's completed, non-reversed cashouts for this customer
	spentToday, err := s.dailyTotal(customerID)
	if err != nil {
		return nil, err
	}
	if spentToday.Add(cashAmount).GreaterThan(p.DailyLimitPerCustomerUsd) {
		return nil, ErrDailyLimitExceeded // Request would push today's total over the limit
	}
	commission := cashAmount.Mul(p.VenueCommissionPercent).DivRound(hundred, 2) // Venue's cut
	return &Quote{
		CashAmount:     cashAmount,
		Commission:     commission,
		CashToCustomer: cashAmount.Sub(commission), // Split always sums back to cashAmount
	}, nil
}

// dailyTotal returns the sum of cash paid out to the customer today (UTC),
// counting completed transactions and excluding reversed ones.
func (s *Service) dailyTotal(customerID string) (decimal.Decimal, error) {
	startOfDay := s.now().UTC().Truncate(24 * time.Hour) // Midnight UTC today
	var rows []domain.CashoutTransaction                 // Today's completed cashouts
	err := s.db.Select("cash_amount_usd").
		Where("customer_id = ? AND status = ? AND reversed = ? AND created_at >= ?",
			customerID, domain.TxStatusCompleted, false, startOfDay).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero // Running sum
	for _, tx := range rows {
		total = total.Add(tx.CashAmountUsd)
	}
	return total, nil
}

// Update activates a new policy version: the policy invariant is checked, the
// current active row is deactivated and the new row inserted in one
// transaction so exactly one policy is ever active.
func (s *Service) Update(p domain.RatePolicy) (*domain.RatePolicy, error) {
	// Rates and limits must all be positive
	if !p.TokensPerDollar.IsPositive() || p.MinCashoutUsd.IsNegative() ||
		p.VenueCommissionPercent.IsNegative() || p.VenueCommissionPercent.GreaterThan(hundred) {
		return nil, ErrInvalidPolicy
	}
	// min <= max <= dailyLimit
	if p.MinCashoutUsd.GreaterThan(p.MaxCashoutPerTransactionUsd) ||
		p.MaxCashoutPerTransactionUsd.GreaterThan(p.DailyLimitPerCustomerUsd) {
		return nil, ErrInvalidPolicy
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Deactivate whatever policy is currently active
		if err := tx.Model(&domain.RatePolicy{}).Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}
		p.ID = 0        // Always insert a fresh version row
		p.Active = true // The new row becomes the single active policy
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"policy_id":         p.ID,                // New policy version
		"tokens_per_dollar": p.TokensPerDollar,   // New exchange rate
		"updated_by":        p.UpdatedBy,         // Staff that activated it
	}).Info("Rate policy updated") // Log the policy change
	return &p, nil
}
