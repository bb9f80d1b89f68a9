package models

import "errors"

// Business-rule failures surfaced to callers. Expected failures are
// returned as typed errors, never panics; infrastructure failures are
// wrapped separately at the store layer.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMissingDestination  = errors.New("destination address and network required")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionFinal    = errors.New("transaction already in a terminal state")
	ErrStoreUnavailable    = errors.New("store unavailable")
)
