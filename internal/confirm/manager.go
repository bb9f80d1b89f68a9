package confirm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/walletd/internal/config"
	"github.com/wnt/walletd/internal/metrics"
	"github.com/wnt/walletd/internal/store"
	"golang.org/x/sync/errgroup"
)

// Manager manages a dynamic pool of confirmation workers
type Manager struct {
	config  config.Config
	queue   *Queue
	store   *store.Store
	source  ConfirmationSource
	workers []*Worker
	logger  zerolog.Logger
	mutex   sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	eg      *errgroup.Group
	stopped bool
}

// NewManager creates a new confirmation worker manager
func NewManager(cfg config.Config, queue *Queue, st *store.Store, source ConfirmationSource, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	return &Manager{
		config:  cfg,
		queue:   queue,
		store:   st,
		source:  source,
		workers: make([]*Worker, 0),
		logger:  logger.With().Str("component", "confirm_manager").Logger(),
		ctx:     egCtx,
		cancel:  cancel,
		eg:      eg,
	}
}

// Start begins the manager lifecycle
func (m *Manager) Start() error {
	m.logger.Info().
		Int("min_workers", m.config.MinWorkers).
		Int("max_workers", m.config.MaxWorkers).
		Msg("Starting confirmation manager")

	// Re-enqueue pending receives that never made it onto the queue
	if err := m.recoverPending(); err != nil {
		return fmt.Errorf("failed to recover pending receives: %w", err)
	}

	// Start initial workers
	if err := m.adjustWorkerCount(); err != nil {
		return fmt.Errorf("failed to start initial workers: %w", err)
	}

	// Start the scaling ticker
	m.eg.Go(func() error {
		return m.runScalingLoop()
	})

	// Start stuck entry recovery
	m.eg.Go(func() error {
		return m.runStuckRecovery()
	})

	// Start queue monitoring
	m.eg.Go(func() error {
		return m.runQueueMonitoring()
	})

	m.logger.Info().Msg("Confirmation manager started successfully")
	return nil
}

// Stop gracefully shuts down the manager
func (m *Manager) Stop() error {
	m.mutex.Lock()
	if m.stopped {
		m.mutex.Unlock()
		return nil
	}
	m.stopped = true
	m.mutex.Unlock()

	m.logger.Info().Msg("Stopping confirmation manager...")

	// Cancel context to signal all workers to stop
	m.cancel()

	// Wait for all workers to finish with timeout
	done := make(chan error, 1)
	go func() {
		done <- m.eg.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			m.logger.Error().Err(err).Msg("Error during worker shutdown")
		}
	case <-time.After(30 * time.Second):
		m.logger.Warn().Msg("Worker shutdown timed out")
	}

	m.mutex.Lock()
	m.workers = nil
	m.mutex.Unlock()

	metrics.WorkersActive.Set(0)
	m.logger.Info().Msg("Confirmation manager stopped")
	return nil
}

// recoverPending scans the transaction log for pending receives and makes
// sure each one is scheduled for polling
func (m *Manager) recoverPending() error {
	pending, err := m.store.ListPendingReceives(m.ctx)
	if err != nil {
		return err
	}

	for _, t := range pending {
		if err := m.queue.PushPending(m.ctx, t.ID, time.Now()); err != nil {
			return err
		}
	}

	if len(pending) > 0 {
		m.logger.Info().Int("count", len(pending)).Msg("Recovered pending receives into queue")
	}
	return nil
}

// runScalingLoop handles automatic worker scaling every 30 seconds
func (m *Manager) runScalingLoop() error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			if err := m.adjustWorkerCount(); err != nil {
				m.logger.Error().Err(err).Msg("Failed to adjust worker count")
			}
		}
	}
}

// adjustWorkerCount scales workers based on queue length
func (m *Manager) adjustWorkerCount() error {
	queueLength, err := m.queue.Len(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue length: %w", err)
	}

	metrics.PendingQueueLength.Set(float64(queueLength))

	desiredWorkers := m.calculateDesiredWorkers(int(queueLength))

	m.mutex.Lock()
	currentWorkers := len(m.workers)
	m.mutex.Unlock()

	if desiredWorkers == currentWorkers {
		return nil
	}

	m.logger.Info().
		Int("current_workers", currentWorkers).
		Int("desired_workers", desiredWorkers).
		Int64("queue_length", queueLength).
		Msg("Adjusting worker count")

	if desiredWorkers > currentWorkers {
		return m.addWorkers(desiredWorkers - currentWorkers)
	}
	return m.removeWorkers(currentWorkers - desiredWorkers)
}

// calculateDesiredWorkers determines optimal worker count based on queue length
func (m *Manager) calculateDesiredWorkers(queueLength int) int {
	// Simple scaling algorithm: 1 worker per 10 pending receives
	desired := queueLength / 10
	if desired < m.config.MinWorkers {
		desired = m.config.MinWorkers
	}
	if desired > m.config.MaxWorkers {
		desired = m.config.MaxWorkers
	}
	return desired
}

// addWorkers creates and starts new workers
func (m *Manager) addWorkers(count int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	pollInterval := time.Duration(m.config.PollIntervalSeconds) * time.Second

	for i := 0; i < count; i++ {
		workerID := fmt.Sprintf("confirm-%d", len(m.workers)+1)
		worker := NewWorker(workerID, m.queue, m.store, m.source, pollInterval, m.logger)

		m.eg.Go(func() error {
			return worker.Start(m.ctx)
		})

		m.workers = append(m.workers, worker)
	}

	metrics.WorkersActive.Set(float64(len(m.workers)))

	m.logger.Info().
		Int("added", count).
		Int("total_workers", len(m.workers)).
		Msg("Workers added")

	return nil
}

// removeWorkers gracefully stops and removes workers
func (m *Manager) removeWorkers(count int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if count > len(m.workers) {
		count = len(m.workers)
	}

	// Signal workers to stop (they will finish their current check)
	workersToRemove := m.workers[len(m.workers)-count:]
	for _, worker := range workersToRemove {
		worker.Stop()
	}

	m.workers = m.workers[:len(m.workers)-count]

	metrics.WorkersActive.Set(float64(len(m.workers)))

	m.logger.Info().
		Int("removed", count).
		Int("remaining_workers", len(m.workers)).
		Msg("Workers removed")

	return nil
}

// runStuckRecovery periodically requeues entries stuck in-flight
func (m *Manager) runStuckRecovery() error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			if err := m.queue.RequeueStuck(m.ctx, 15*time.Minute); err != nil {
				m.logger.Error().Err(err).Msg("Failed to requeue stuck receives")
			}
		}
	}
}

// runQueueMonitoring periodically logs queue statistics
func (m *Manager) runQueueMonitoring() error {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			queueLength, err := m.queue.Len(m.ctx)
			if err != nil {
				m.logger.Error().Err(err).Msg("Failed to get queue length for monitoring")
				continue
			}

			m.mutex.RLock()
			activeWorkers := len(m.workers)
			m.mutex.RUnlock()

			m.logger.Info().
				Int64("queue_length", queueLength).
				Int("active_workers", activeWorkers).
				Msg("Confirmation queue stats")
		}
	}
}
