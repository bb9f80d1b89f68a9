package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wnt/walletd/internal/models"
)

// InsufficientFundsError reports a rejected debit together with the
// shortfall, so callers can show the user exactly how much is missing.
// It matches models.ErrInsufficientFunds under errors.Is.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s", e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error {
	return models.ErrInsufficientFunds
}

// Shortfall is the amount missing to cover the operation
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// IsBusinessError reports whether err is an expected business-rule
// rejection rather than an infrastructure failure
func IsBusinessError(err error) bool {
	return errors.Is(err, models.ErrInvalidAmount) ||
		errors.Is(err, models.ErrWalletNotFound) ||
		errors.Is(err, models.ErrInsufficientFunds) ||
		errors.Is(err, models.ErrUnauthorized) ||
		errors.Is(err, models.ErrMissingDestination)
}
