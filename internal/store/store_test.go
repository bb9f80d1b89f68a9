package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/walletd/internal/database"
	"github.com/wnt/walletd/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection so every query sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return New(db)
}

func seedWallet(t *testing.T, s *Store, owner, currency, balance string) *models.Wallet {
	t.Helper()
	w := &models.Wallet{
		OwnerID:  owner,
		Currency: currency,
		Balance:  decimal.RequireFromString(balance),
	}
	require.NoError(t, s.CreateWallet(context.Background(), w))
	return w
}

func TestGetWallet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := seedWallet(t, s, "alice", "USD", "100")

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100")))

	_, err = s.GetWallet(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrWalletNotFound)
}

func TestListWalletsByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedWallet(t, s, "alice", "USD", "10")
	seedWallet(t, s, "alice", "USDT", "20")
	seedWallet(t, s, "bob", "TRX", "30")

	wallets, err := s.ListWalletsByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
	for _, w := range wallets {
		assert.Equal(t, "alice", w.OwnerID)
	}
}

func TestCreditBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := seedWallet(t, s, "alice", "USD", "100")

	require.NoError(t, s.CreditBalance(ctx, w.ID, decimal.RequireFromString("50")))

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("150")), "balance = %s", got.Balance)

	err = s.CreditBalance(ctx, uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrWalletNotFound)
}

func TestDebitBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := seedWallet(t, s, "alice", "USD", "100")

	t.Run("successful debit", func(t *testing.T) {
		require.NoError(t, s.DebitBalance(ctx, w.ID, decimal.RequireFromString("40")))

		got, err := s.GetWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("60")), "balance = %s", got.Balance)
	})

	t.Run("debit exceeding balance is rejected", func(t *testing.T) {
		err := s.DebitBalance(ctx, w.ID, decimal.RequireFromString("60.00000001"))
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)

		// Balance unchanged on rejection
		got, err := s.GetWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("60")))
	})

	t.Run("debit to exactly zero", func(t *testing.T) {
		require.NoError(t, s.DebitBalance(ctx, w.ID, decimal.RequireFromString("60")))

		got, err := s.GetWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.IsZero(), "balance = %s", got.Balance)
	})

	t.Run("missing wallet", func(t *testing.T) {
		err := s.DebitBalance(ctx, uuid.New(), decimal.NewFromInt(1))
		assert.ErrorIs(t, err, models.ErrWalletNotFound)
	})
}

func TestTransactionTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := seedWallet(t, s, "alice", "USDT", "0")

	newPending := func() *models.Transaction {
		tx := &models.Transaction{
			WalletID: w.ID,
			Type:     models.TypeReceive,
			Amount:   decimal.RequireFromString("25"),
			Status:   models.StatusPending,
		}
		require.NoError(t, s.AppendTransaction(ctx, tx))
		return tx
	}

	t.Run("pending to completed", func(t *testing.T) {
		tx := newPending()
		require.NoError(t, s.CompleteTransaction(ctx, tx.ID))

		got, err := s.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("pending to failed", func(t *testing.T) {
		tx := newPending()
		require.NoError(t, s.FailTransaction(ctx, tx.ID))

		got, err := s.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		tx := newPending()
		require.NoError(t, s.CompleteTransaction(ctx, tx.ID))

		err := s.FailTransaction(ctx, tx.ID)
		assert.ErrorIs(t, err, models.ErrTransactionFinal)

		got, err := s.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("missing transaction", func(t *testing.T) {
		err := s.CompleteTransaction(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	})
}

func TestListPendingReceives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := seedWallet(t, s, "alice", "TRX", "0")

	pending := &models.Transaction{
		WalletID: w.ID, Type: models.TypeReceive,
		Amount: decimal.NewFromInt(10), Status: models.StatusPending,
	}
	require.NoError(t, s.AppendTransaction(ctx, pending))

	completed := &models.Transaction{
		WalletID: w.ID, Type: models.TypeDeposit,
		Amount: decimal.NewFromInt(10), Status: models.StatusCompleted,
	}
	require.NoError(t, s.AppendTransaction(ctx, completed))

	got, err := s.ListPendingReceives(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

func TestAtomicallyRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := seedWallet(t, s, "alice", "USD", "100")

	boom := errors.New("record write failed")
	err := s.Atomically(ctx, func(tx *Store) error {
		if err := tx.DebitBalance(ctx, w.ID, decimal.RequireFromString("30")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The debit must not survive the failed commit
	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100")), "balance = %s", got.Balance)

	txs, err := s.ListTransactionsByWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
