package api

import (
	"errors"
	"net/http"

	"cashout_system/internal/distribution" // Distribution errors
	"cashout_system/internal/ledger"       // Ledger errors
	"cashout_system/internal/metrics"      // Metrics errors
	"cashout_system/internal/policy"       // Policy errors
	"cashout_system/internal/settlement"   // Settlement errors

	"github.com/gin-gonic/gin" // Gin web framework
)

// errorKind maps an engine error to an HTTP status and a stable,
// machine-readable failure code for the response body.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, policy.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, policy.ErrBelowMinimum):
		return http.StatusBadRequest, "BELOW_MINIMUM"
	case errors.Is(err, policy.ErrAboveMaximum):
		return http.StatusBadRequest, "ABOVE_MAXIMUM"
	case errors.Is(err, policy.ErrDailyLimitExceeded):
		return http.StatusBadRequest, "DAILY_LIMIT_EXCEEDED"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusBadRequest, "INSUFFICIENT_BALANCE"
	case errors.Is(err, ledger.ErrInsufficientTreasuryBalance):
		return http.StatusBadRequest, "INSUFFICIENT_TREASURY_BALANCE"
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, settlement.ErrNotFound),
		errors.Is(err, distribution.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, settlement.ErrAlreadyReversed):
		return http.StatusConflict, "ALREADY_REVERSED"
	case errors.Is(err, settlement.ErrNotReversible):
		return http.StatusConflict, "NOT_REVERSIBLE"
	case errors.Is(err, distribution.ErrNotReconcilable):
		return http.StatusConflict, "NOT_RECONCILABLE"
	case errors.Is(err, ledger.ErrStorageConflict):
		return http.StatusConflict, "STORAGE_CONFLICT"
	case errors.Is(err, distribution.ErrTransportFailure):
		return http.StatusBadGateway, "TRANSPORT_FAILURE"
	case errors.Is(err, policy.ErrNoActivePolicy):
		return http.StatusServiceUnavailable, "NO_ACTIVE_POLICY"
	case errors.Is(err, policy.ErrInvalidPolicy):
		return http.StatusBadRequest, "INVALID_POLICY"
	case errors.Is(err, metrics.ErrInvalidPeriod):
		return http.StatusBadRequest, "INVALID_PERIOD"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// respondError writes the failure kind and human message to the client
func respondError(c *gin.Context, err error) {
	status, code := errorKind(err)
	c.JSON(status, gin.H{"code": code, "error": err.Error()})
}
