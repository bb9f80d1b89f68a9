package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wnt/walletd/internal/gateway"
	"github.com/wnt/walletd/internal/logger"
	"github.com/wnt/walletd/internal/metrics"
	"github.com/wnt/walletd/internal/models"
	"github.com/wnt/walletd/internal/store"
)

// ConfirmationSource reports the on-chain state of an inbound transfer
type ConfirmationSource interface {
	DepositStatus(ctx context.Context, coin, reference string) (gateway.DepositState, error)
}

// Worker drains the confirmation queue: for each due receive transaction
// it asks the chain gateway for the transfer's state and applies the
// resulting status transition.
type Worker struct {
	id           string
	queue        *Queue
	store        *store.Store
	source       ConfirmationSource
	pollInterval time.Duration
	logger       zerolog.Logger
	stopped      bool
}

// NewWorker creates a new confirmation worker
func NewWorker(id string, queue *Queue, st *store.Store, source ConfirmationSource, pollInterval time.Duration, baseLogger zerolog.Logger) *Worker {
	return &Worker{
		id:           id,
		queue:        queue,
		store:        st,
		source:       source,
		pollInterval: pollInterval,
		logger:       logger.WithWorker(baseLogger, id),
	}
}

// Start begins the worker processing loop
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting confirmation worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Worker received shutdown signal")
			return ctx.Err()
		default:
			if w.stopped {
				w.logger.Info().Msg("Worker stopped")
				return nil
			}

			if err := w.processNext(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Failed to process pending receive")

				// Brief pause to avoid tight error loops
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Stop signals the worker to finish its current check and exit
func (w *Worker) Stop() {
	w.stopped = true
}

// processNext pops one due transaction and runs the confirmation check.
// When nothing is due the worker idles for one poll interval.
func (w *Worker) processNext(ctx context.Context) error {
	txID, ok, err := w.queue.PopDue(ctx)
	if err != nil {
		return err
	}
	if !ok {
		select {
		case <-time.After(w.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	if err := w.queue.SetInFlight(ctx, txID, w.id); err != nil {
		w.logger.Warn().Err(err).Str("transaction_id", txID.String()).Msg("Failed to mark receive in-flight")
	}
	defer func() {
		if err := w.queue.RemoveInFlight(ctx, txID); err != nil {
			w.logger.Warn().Err(err).Str("transaction_id", txID.String()).Msg("Failed to clear in-flight entry")
		}
	}()

	return w.check(ctx, txID)
}

// check fetches the transaction, queries the gateway and applies the
// outcome. A transfer still unconfirmed is deferred one poll interval.
func (w *Worker) check(ctx context.Context, txID uuid.UUID) error {
	t, err := w.store.GetTransaction(ctx, txID)
	if err != nil {
		if errors.Is(err, models.ErrTransactionNotFound) {
			w.logger.Warn().Str("transaction_id", txID.String()).Msg("Dropping queue entry for missing transaction")
			return nil
		}
		return err
	}

	if t.Type != models.TypeReceive || t.Status != models.StatusPending {
		// Already handled elsewhere; nothing to do
		return nil
	}

	state, err := w.source.DepositStatus(ctx, t.CoinType, t.Reference)
	if err != nil {
		metrics.RecordConfirmation("failed")
		if qErr := w.queue.PushPending(ctx, txID, time.Now().Add(w.pollInterval)); qErr != nil {
			return fmt.Errorf("gateway check failed and requeue failed: %w", qErr)
		}
		w.logger.Warn().Err(err).Str("transaction_id", txID.String()).Msg("Gateway check failed, deferred")
		return nil
	}

	if state == gateway.DepositPending {
		metrics.RecordConfirmation("deferred")
		return w.queue.PushPending(ctx, txID, time.Now().Add(w.pollInterval))
	}

	return w.apply(ctx, t, state)
}

// apply commits the terminal transition for a checked transfer. A
// confirmed transfer credits the wallet and completes the transaction in
// one atomic commit; a rejected one is marked failed with no credit.
func (w *Worker) apply(ctx context.Context, t *models.Transaction, state gateway.DepositState) error {
	switch state {
	case gateway.DepositConfirmed:
		err := w.store.Atomically(ctx, func(s *store.Store) error {
			if err := s.CreditBalance(ctx, t.WalletID, t.Amount); err != nil {
				return err
			}
			return s.CompleteTransaction(ctx, t.ID)
		})
		if err != nil {
			metrics.RecordConfirmation("failed")
			return fmt.Errorf("failed to credit confirmed receive: %w", err)
		}
		metrics.RecordConfirmation("confirmed")
		w.logger.Info().
			Str("transaction_id", t.ID.String()).
			Str("wallet_id", t.WalletID.String()).
			Str("amount", t.Amount.String()).
			Msg("Receive confirmed and credited")
		return nil

	case gateway.DepositRejected:
		if err := w.store.FailTransaction(ctx, t.ID); err != nil {
			metrics.RecordConfirmation("failed")
			return fmt.Errorf("failed to mark receive failed: %w", err)
		}
		metrics.RecordConfirmation("rejected")
		w.logger.Info().Str("transaction_id", t.ID.String()).Msg("Receive rejected by gateway")
		return nil

	default:
		return fmt.Errorf("unexpected deposit state %q", state)
	}
}
