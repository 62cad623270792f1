package settlement

import (
	"testing"
	"time"

	"cashout_system/internal/domain"
	"cashout_system/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestReverseCreditsCustomerBack(t *testing.T) {
	db, engine := setupEngine(t, 5000)
	reversals := NewReversalService(db, ledger.NewBalanceLedger(db), func() time.Time { return testNow })

	record, err := engine.ProcessCashout(Request{CustomerID: "cust-1", VenueID: "venue-1", Tokens: 1000})
	require.NoError(t, err)

	reversed, err := reversals.Reverse(record.TransactionID, "customer dispute")
	require.NoError(t, err)
	require.True(t, reversed.Reversed)
	require.NotNil(t, reversed.ReversedAt)
	require.Equal(t, "customer dispute", reversed.ReversalReason)
	// Original amounts are untouched
	require.True(t, reversed.CashAmountUsd.Equal(record.CashAmountUsd))
	require.Equal(t, record.TokensConverted, reversed.TokensConverted)

	// The customer got the exact tokens back
	var bal domain.CustomerBalance
	require.NoError(t, db.Where("customer_id = ?", "cust-1").First(&bal).Error)
	require.Equal(t, int64(5000), bal.TokenBalance)
}

func TestReverseTwiceFailsAndKeepsBalance(t *testing.T) {
	db, engine := setupEngine(t, 5000)
	reversals := NewReversalService(db, ledger.NewBalanceLedger(db), func() time.Time { return testNow })

	record, err := engine.ProcessCashout(Request{CustomerID: "cust-1", VenueID: "venue-1", Tokens: 1000})
	require.NoError(t, err)

	_, err = reversals.Reverse(record.TransactionID, "first")
	require.NoError(t, err)
	_, err = reversals.Reverse(record.TransactionID, "second")
	require.ErrorIs(t, err, ErrAlreadyReversed)

	// Only the first reversal's credit landed
	var bal domain.CustomerBalance
	require.NoError(t, db.Where("customer_id = ?", "cust-1").First(&bal).Error)
	require.Equal(t, int64(5000), bal.TokenBalance)
}

func TestReverseUnknownTransaction(t *testing.T) {
	db := setupTestDB(t)
	reversals := NewReversalService(db, ledger.NewBalanceLedger(db), func() time.Time { return testNow })

	_, err := reversals.Reverse("no-such-id", "whatever")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReverseNonCompletedTransaction(t *testing.T) {
	db := setupTestDB(t)
	reversals := NewReversalService(db, ledger.NewBalanceLedger(db), func() time.Time { return testNow })

	// A failed transaction never debited anything, so it cannot be reversed
	tx := domain.CashoutTransaction{
		TransactionID:      uuid.NewString(),
		CustomerID:         "cust-1",
		VenueID:            "venue-1",
		TokensConverted:    1000,
		CashAmountUsd:      decimal.RequireFromString("10"),
		VenueCommissionUsd: decimal.RequireFromString("1"),
		CashToCustomerUsd:  decimal.RequireFromString("9"),
		Status:             domain.TxStatusFailed,
		CreatedAt:          testNow,
	}
	require.NoError(t, db.Create(&tx).Error)

	_, err := reversals.Reverse(tx.TransactionID, "whatever")
	require.ErrorIs(t, err, ErrNotReversible)
}
