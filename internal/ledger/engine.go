package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnt/walletd/internal/metrics"
	"github.com/wnt/walletd/internal/models"
	"github.com/wnt/walletd/internal/store"
	"github.com/wnt/walletd/internal/utils"
)

// FixedWithdrawalFee is the flat, currency-agnostic fee charged on every
// withdrawal, independent of amount.
var FixedWithdrawalFee = decimal.NewFromInt(4)

// PasswordVerifier checks a supplied password against a wallet's stored
// hash. Hashing lives with the credential store; the engine only enforces
// that the gate was passed.
type PasswordVerifier interface {
	Verify(password, hash string) bool
}

// ConfirmationEnqueuer hands a pending receive transaction to the
// confirmation pipeline
type ConfirmationEnqueuer interface {
	PushPending(ctx context.Context, txID uuid.UUID, notBefore time.Time) error
}

// Engine applies ledger operations to wallet balances and produces the
// matching transaction records. Every balance mutation and its records
// are committed in a single store transaction, and every debit is issued
// as a conditional update so balances can never go negative.
type Engine struct {
	store    *store.Store
	verifier PasswordVerifier
	enqueuer ConfirmationEnqueuer
	fee      decimal.Decimal
	logger   zerolog.Logger
}

// Option is a function that configures the Engine
type Option func(*Engine)

// WithFee overrides the flat withdrawal fee
func WithFee(fee decimal.Decimal) Option {
	return func(e *Engine) {
		e.fee = fee
	}
}

// WithVerifier sets the password gate collaborator
func WithVerifier(v PasswordVerifier) Option {
	return func(e *Engine) {
		e.verifier = v
	}
}

// WithEnqueuer sets the confirmation queue collaborator
func WithEnqueuer(q ConfirmationEnqueuer) Option {
	return func(e *Engine) {
		e.enqueuer = q
	}
}

// New creates a ledger engine over the given store
func New(s *store.Store, logger zerolog.Logger, options ...Option) *Engine {
	engine := &Engine{
		store:  s,
		fee:    FixedWithdrawalFee,
		logger: logger.With().Str("component", "ledger").Logger(),
	}

	for _, option := range options {
		option(engine)
	}

	return engine
}

// Fee returns the flat withdrawal fee the engine charges
func (e *Engine) Fee() decimal.Decimal {
	return e.fee
}

// Result carries the outcome of a committed ledger operation: the wallets
// as they stand after the commit and the transaction records produced.
type Result struct {
	Wallets      []models.Wallet
	Transactions []models.Transaction
}

// CreateWallet opens a new zero-balance wallet for the session owner
func (e *Engine) CreateWallet(ctx context.Context, sess Session, req CreateWalletRequest) (*models.Wallet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	w := &models.Wallet{
		OwnerID:           sess.OwnerID,
		Name:              req.Name,
		Currency:          req.Currency,
		Balance:           decimal.Zero,
		PasswordProtected: req.PasswordHash != "",
		PasswordHash:      req.PasswordHash,
	}
	if err := e.store.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	e.logger.Info().Str("wallet_id", w.ID.String()).Str("currency", w.Currency).Msg("Wallet created")
	return w, nil
}

// Deposit credits a wallet and records a completed deposit transaction.
// Deposits are not idempotent: repeating the same request credits twice.
func (e *Engine) Deposit(ctx context.Context, sess Session, req DepositRequest) (*Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, e.finish("deposit", start, err)
	}

	var res Result
	err := e.store.Atomically(ctx, func(s *store.Store) error {
		w, err := e.ownedWallet(ctx, s, sess, req.WalletID)
		if err != nil {
			return err
		}

		if err := s.CreditBalance(ctx, w.ID, req.Amount); err != nil {
			return err
		}

		t := &models.Transaction{
			WalletID: w.ID,
			Type:     models.TypeDeposit,
			Amount:   req.Amount,
			Status:   models.StatusCompleted,
		}
		if err := s.AppendTransaction(ctx, t); err != nil {
			return err
		}

		return e.collect(ctx, s, &res, []uuid.UUID{w.ID}, []models.Transaction{*t})
	})
	if err != nil {
		return nil, e.finish("deposit", start, err)
	}

	e.logger.Info().
		Str("wallet_id", req.WalletID.String()).
		Str("amount", req.Amount.String()).
		Msg("Deposit committed")
	return &res, e.finish("deposit", start, nil)
}

// Withdraw debits amount plus the flat fee across the requested wallets
// using a greedy sweep in caller order. The aggregate balance must cover
// the full total or the operation is rejected with no partial debit.
//
// Both the withdrawal and the fee record are attributed to the first
// wallet of the sweep even when several wallets were debited.
func (e *Engine) Withdraw(ctx context.Context, sess Session, req WithdrawRequest) (*Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, e.finish("withdraw", start, err)
	}

	required := req.Amount.Add(e.fee)

	var res Result
	err := e.store.Atomically(ctx, func(s *store.Store) error {
		wallets, err := e.loadSweepWallets(ctx, s, sess, req.WalletIDs, req.Password)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, w := range wallets {
			total = total.Add(w.Balance)
		}
		if total.LessThan(required) {
			return &InsufficientFundsError{Required: required, Available: total}
		}

		// Greedy sweep: drain wallets in caller order until the full
		// total is covered. Zero-balance wallets contribute nothing.
		remaining := required
		debited := make([]uuid.UUID, 0, len(wallets))
		funded := utils.Filter(wallets, func(w *models.Wallet) bool {
			return w.Balance.IsPositive()
		})
		for _, w := range funded {
			if remaining.IsZero() {
				break
			}
			take := decimal.Min(w.Balance, remaining)
			if err := s.DebitBalance(ctx, w.ID, take); err != nil {
				return err
			}
			remaining = remaining.Sub(take)
			debited = append(debited, w.ID)
		}

		reference := wallets[0].ID
		withdrawal := &models.Transaction{
			WalletID: reference,
			Type:     models.TypeWithdrawal,
			Amount:   req.Amount,
			Status:   models.StatusCompleted,
			Address:  req.Address,
			Network:  req.Network,
		}
		if err := s.AppendTransaction(ctx, withdrawal); err != nil {
			return err
		}

		feeTx := &models.Transaction{
			WalletID: reference,
			Type:     models.TypeFee,
			Amount:   e.fee,
			Status:   models.StatusCompleted,
		}
		if err := s.AppendTransaction(ctx, feeTx); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(wallets))
		for i, w := range wallets {
			ids[i] = w.ID
		}
		return e.collect(ctx, s, &res, ids, []models.Transaction{*withdrawal, *feeTx})
	})
	if err != nil {
		return nil, e.finish("withdraw", start, err)
	}

	e.logger.Info().
		Str("amount", req.Amount.String()).
		Str("fee", e.fee.String()).
		Int("wallets", len(req.WalletIDs)).
		Str("network", req.Network).
		Msg("Withdrawal committed")
	return &res, e.finish("withdraw", start, nil)
}

// Send debits a single wallet for an outbound crypto transfer and records
// a completed send transaction. The debit is conditional: the wallet must
// cover the full amount or the operation is rejected.
func (e *Engine) Send(ctx context.Context, sess Session, req SendRequest) (*Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, e.finish("send", start, err)
	}

	var res Result
	err := e.store.Atomically(ctx, func(s *store.Store) error {
		w, err := e.ownedWallet(ctx, s, sess, req.WalletID)
		if err != nil {
			return err
		}
		if err := e.authorize(w, req.Password); err != nil {
			return err
		}

		if err := s.DebitBalance(ctx, w.ID, req.Amount); err != nil {
			if errors.Is(err, models.ErrInsufficientFunds) {
				return &InsufficientFundsError{Required: req.Amount, Available: w.Balance}
			}
			return err
		}

		t := &models.Transaction{
			WalletID: w.ID,
			Type:     models.TypeSend,
			Amount:   req.Amount,
			Status:   models.StatusCompleted,
			Address:  req.Address,
			Network:  req.Network,
		}
		if err := s.AppendTransaction(ctx, t); err != nil {
			return err
		}

		return e.collect(ctx, s, &res, []uuid.UUID{w.ID}, []models.Transaction{*t})
	})
	if err != nil {
		return nil, e.finish("send", start, err)
	}

	e.logger.Info().
		Str("wallet_id", req.WalletID.String()).
		Str("amount", req.Amount.String()).
		Str("network", req.Network).
		Msg("Send committed")
	return &res, e.finish("send", start, nil)
}

// Receive records an inbound crypto transfer as a pending transaction
// without touching the wallet balance. The balance is credited only when
// the confirmation pipeline reports the transfer confirmed on chain.
func (e *Engine) Receive(ctx context.Context, sess Session, req ReceiveRequest) (*models.Transaction, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, e.finish("receive", start, err)
	}

	var t *models.Transaction
	err := e.store.Atomically(ctx, func(s *store.Store) error {
		w, err := e.ownedWallet(ctx, s, sess, req.WalletID)
		if err != nil {
			return err
		}

		t = &models.Transaction{
			WalletID:  w.ID,
			Type:      models.TypeReceive,
			Amount:    req.Amount,
			Status:    models.StatusPending,
			CoinType:  req.CoinType,
			Address:   req.SourceAddress,
			Reference: req.Reference,
		}
		return s.AppendTransaction(ctx, t)
	})
	if err != nil {
		return nil, e.finish("receive", start, err)
	}

	// Best effort: the watcher's recovery scan picks up anything that
	// never made it onto the queue.
	if e.enqueuer != nil {
		if err := e.enqueuer.PushPending(ctx, t.ID, time.Now()); err != nil {
			e.logger.Warn().Err(err).Str("transaction_id", t.ID.String()).
				Msg("Failed to enqueue pending receive for confirmation")
		}
	}

	e.logger.Info().
		Str("wallet_id", req.WalletID.String()).
		Str("amount", req.Amount.String()).
		Str("coin", req.CoinType).
		Msg("Pending receive recorded")
	return t, e.finish("receive", start, nil)
}

// ownedWallet loads a wallet and checks it belongs to the session owner.
// Foreign wallets are indistinguishable from missing ones.
func (e *Engine) ownedWallet(ctx context.Context, s *store.Store, sess Session, id uuid.UUID) (*models.Wallet, error) {
	w, err := s.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != sess.OwnerID {
		return nil, models.ErrWalletNotFound
	}
	return w, nil
}

// loadSweepWallets loads the withdrawal wallets in caller order, dropping
// duplicates, checking ownership and enforcing the password gate on every
// protected wallet before any mutation.
func (e *Engine) loadSweepWallets(ctx context.Context, s *store.Store, sess Session, ids []uuid.UUID, password string) ([]*models.Wallet, error) {
	wallets := make([]*models.Wallet, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		w, err := e.ownedWallet(ctx, s, sess, id)
		if err != nil {
			return nil, err
		}
		if err := e.authorize(w, password); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// authorize enforces the password gate on a protected wallet
func (e *Engine) authorize(w *models.Wallet, password string) error {
	if !w.PasswordProtected {
		return nil
	}
	if password == "" || e.verifier == nil || !e.verifier.Verify(password, w.PasswordHash) {
		return models.ErrUnauthorized
	}
	return nil
}

// collect re-reads the touched wallets inside the same transaction so the
// result reflects the committed balances
func (e *Engine) collect(ctx context.Context, s *store.Store, res *Result, walletIDs []uuid.UUID, txs []models.Transaction) error {
	res.Transactions = txs
	res.Wallets = make([]models.Wallet, 0, len(walletIDs))
	for _, id := range walletIDs {
		w, err := s.GetWallet(ctx, id)
		if err != nil {
			return err
		}
		res.Wallets = append(res.Wallets, *w)
	}
	return nil
}

// finish records metrics for an operation and passes the error through
func (e *Engine) finish(op string, start time.Time, err error) error {
	metrics.RecordLedgerDuration(op, time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.RecordLedgerOperation(op, "success")
	case IsBusinessError(err):
		if errors.Is(err, models.ErrInsufficientFunds) {
			metrics.InsufficientFundsTotal.Inc()
		}
		metrics.RecordLedgerOperation(op, "rejected")
	default:
		metrics.RecordLedgerOperation(op, "failed")
	}
	return err
}
