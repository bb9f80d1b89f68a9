package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wnt/walletd/internal/gateway"
	"github.com/wnt/walletd/internal/models"
)

// Session identifies the authenticated owner an operation runs for.
// Identity is always passed explicitly into the engine, never read from
// ambient state.
type Session struct {
	OwnerID string
}

// DepositRequest credits a wallet synchronously
type DepositRequest struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
}

// Validate rejects malformed input before any store call
func (r DepositRequest) Validate() error {
	if r.WalletID == uuid.Nil {
		return models.ErrWalletNotFound
	}
	if !r.Amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	return nil
}

// WithdrawRequest debits one or more wallets for an outbound transfer.
// WalletIDs is the sweep order: wallets are drained greedily in exactly
// this order until amount plus the flat fee is covered.
type WithdrawRequest struct {
	WalletIDs []uuid.UUID
	Amount    decimal.Decimal
	Address   string
	Network   string
	Password  string
}

// Validate rejects malformed input before any store call
func (r WithdrawRequest) Validate() error {
	if len(r.WalletIDs) == 0 {
		return models.ErrWalletNotFound
	}
	if !r.Amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	if r.Address == "" || r.Network == "" {
		return models.ErrMissingDestination
	}
	if err := gateway.ValidateAddress(r.Network, r.Address); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMissingDestination, err)
	}
	return nil
}

// SendRequest debits a single wallet for an outbound crypto transfer
type SendRequest struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
	Address  string
	Network  string
	Password string
}

// Validate rejects malformed input before any store call
func (r SendRequest) Validate() error {
	if r.WalletID == uuid.Nil {
		return models.ErrWalletNotFound
	}
	if !r.Amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	if r.Address == "" || r.Network == "" {
		return models.ErrMissingDestination
	}
	if err := gateway.ValidateAddress(r.Network, r.Address); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMissingDestination, err)
	}
	return nil
}

// ReceiveRequest records an inbound crypto transfer awaiting chain
// confirmation. The wallet balance is not touched until the confirmation
// pipeline reports the transfer confirmed.
type ReceiveRequest struct {
	WalletID      uuid.UUID
	Amount        decimal.Decimal
	CoinType      string
	SourceAddress string
	Reference     string
}

// Validate rejects malformed input before any store call
func (r ReceiveRequest) Validate() error {
	if r.WalletID == uuid.Nil {
		return models.ErrWalletNotFound
	}
	if !r.Amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	return nil
}

// CreateWalletRequest opens a new zero-balance wallet. PasswordHash, when
// set, marks the wallet password protected; hashing happens at the caller
// (see internal/auth), the engine only stores the result.
type CreateWalletRequest struct {
	Name         string
	Currency     string
	PasswordHash string
}

// Validate rejects malformed input before any store call
func (r CreateWalletRequest) Validate() error {
	if r.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	return nil
}
