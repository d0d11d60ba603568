package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/payroll-settlement-service/internal/domain/shared"
)

type reconciliationResult struct {
	summary *ReconciliationSummary
	err     error
}

// WorkerPoolReconciliationService implements the ReconciliationService
// interface over a bounded worker pool
type WorkerPoolReconciliationService struct {
	baseService ReconciliationService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan reconciliationResult
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolReconciliationService(
	baseService ReconciliationService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolReconciliationService, error) {
	// Create a new worker pool with the specified size
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolReconciliationService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan reconciliationResult),
	}, nil
}

// ApplyBankResult submits a bank result to the worker pool and waits for the
// outcome. Results for different batches reconcile in parallel; the caller
// still sees a synchronous call so the Kafka offset commits only after the
// result has been applied.
func (s *WorkerPoolReconciliationService) ApplyBankResult(ctx context.Context, batchID uuid.UUID, outcomes []shared.PaymentOutcome) (*ReconciliationSummary, error) {
	s.logger.Info("Submitting bank result to worker pool",
		"batch_id", batchID.String(),
		"outcome_count", len(outcomes),
	)

	// Create a channel to receive the result of the reconciliation
	resultChan := make(chan reconciliationResult, 1)

	key := batchID.String()
	s.mu.Lock()
	s.results[key] = resultChan
	s.mu.Unlock()

	// Copy the outcomes to avoid data races with the caller
	outcomesCopy := make([]shared.PaymentOutcome, len(outcomes))
	copy(outcomesCopy, outcomes)

	// Submit the task to the worker pool
	err := s.pool.Submit(func() {
		summary, applyErr := s.baseService.ApplyBankResult(ctx, batchID, outcomesCopy)

		resultChan <- reconciliationResult{summary: summary, err: applyErr}

		// Remove the result channel from the map
		s.mu.Lock()
		delete(s.results, key)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, key)
		close(resultChan)
		s.mu.Unlock()

		s.logger.Error("Failed to submit bank result to worker pool",
			"batch_id", batchID.String(),
			"error", err,
		)
		return nil, err
	}

	// Wait for the result from the worker
	result := <-resultChan
	return result.summary, result.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolReconciliationService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolReconciliationService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolReconciliationService) Capacity() int {
	return s.pool.Cap()
}
