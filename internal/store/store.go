package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wnt/walletd/internal/metrics"
	"github.com/wnt/walletd/internal/models"
	"gorm.io/gorm"
)

// Store provides durable wallet and transaction-log access over GORM.
// Balance mutations are issued as conditional single-statement updates so
// the non-negative balance invariant is enforced at the storage layer,
// never by application-level read-modify-write.
type Store struct {
	db *gorm.DB
}

// New wraps an open database handle
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Atomically runs fn inside a single database transaction. The ledger
// engine uses this to commit a balance mutation together with its
// transaction records as one unit.
func (s *Store) Atomically(ctx context.Context, fn func(*Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// CreateWallet persists a new wallet. New wallets start at zero balance
// unless the caller seeds one explicitly (tests, imports).
func (s *Store) CreateWallet(ctx context.Context, w *models.Wallet) error {
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		metrics.RecordStoreOperation("create_wallet", "failed")
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	metrics.RecordStoreOperation("create_wallet", "success")
	return nil
}

// GetWallet fetches a wallet by id
func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

// ListWalletsByOwner returns the owner's wallets in creation order. This
// order is what callers pass back as the sweep order for withdrawals.
func (s *Store) ListWalletsByOwner(ctx context.Context, ownerID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at asc").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// CreditBalance atomically increments a wallet balance
func (s *Store) CreditBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		metrics.RecordStoreOperation("credit", "failed")
		return fmt.Errorf("failed to credit wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrWalletNotFound
	}
	metrics.RecordStoreOperation("credit", "success")
	return nil
}

// DebitBalance atomically decrements a wallet balance, guarded so the
// balance can never go below zero. Two concurrent debits cannot race past
// the check: the precondition is re-evaluated inside the UPDATE itself.
func (s *Store) DebitBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		metrics.RecordStoreOperation("debit", "failed")
		return fmt.Errorf("failed to debit wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing wallet from an insufficient balance
		if _, err := s.GetWallet(ctx, id); err != nil {
			return err
		}
		metrics.RecordStoreOperation("debit", "rejected")
		return models.ErrInsufficientFunds
	}
	metrics.RecordStoreOperation("debit", "success")
	return nil
}

// AppendTransaction records a new ledger entry
func (s *Store) AppendTransaction(ctx context.Context, t *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		metrics.RecordStoreOperation("append_transaction", "failed")
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	metrics.RecordStoreOperation("append_transaction", "success")
	return nil
}

// GetTransaction fetches a transaction by id
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// ListTransactionsByWallet returns a wallet's ledger entries, newest first
func (s *Store) ListTransactionsByWallet(ctx context.Context, walletID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at desc").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// ListPendingReceives returns all receive entries still awaiting
// confirmation. Used by the watcher's startup recovery scan.
func (s *Store) ListPendingReceives(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("type = ? AND status = ?", models.TypeReceive, models.StatusPending).
		Order("created_at asc").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending receives: %w", err)
	}
	return txs, nil
}

// CompleteTransaction moves a pending transaction to completed. Terminal
// entries are immutable, so the transition is guarded on the current status.
func (s *Store) CompleteTransaction(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, models.StatusCompleted)
}

// FailTransaction moves a pending transaction to failed
func (s *Store) FailTransaction(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, models.StatusFailed)
}

func (s *Store) transition(ctx context.Context, id uuid.UUID, to models.TransactionStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Update("status", to)
	if res.Error != nil {
		metrics.RecordStoreOperation("transition", "failed")
		return fmt.Errorf("failed to update transaction status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetTransaction(ctx, id); err != nil {
			return err
		}
		return models.ErrTransactionFinal
	}
	metrics.RecordStoreOperation("transition", "success")
	return nil
}
