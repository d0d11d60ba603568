package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/domain/shared"
)

// ReconciliationEngine implements ReconciliationService against the payment
// and batch repositories. One engine instance is shared by all workers; it
// holds no per-call state.
type ReconciliationEngine struct {
	paymentRepo  payment.Repository
	batchRepo    batch.Repository
	timelineRepo payment.TimelineRepository
	actor        string
	logger       *slog.Logger
}

// NewReconciliationEngine creates a new reconciliation engine
func NewReconciliationEngine(
	logger *slog.Logger,
	paymentRepo payment.Repository,
	batchRepo batch.Repository,
	timelineRepo payment.TimelineRepository,
	actor string,
) *ReconciliationEngine {
	return &ReconciliationEngine{
		paymentRepo:  paymentRepo,
		batchRepo:    batchRepo,
		timelineRepo: timelineRepo,
		actor:        actor,
		logger:       logger,
	}
}

// ApplyBankResult settles the named batch members. Members the bank has not
// decided on yet stay BANK_PROCESSING; the batch reaches a terminal state
// only once every member is terminal.
func (e *ReconciliationEngine) ApplyBankResult(ctx context.Context, batchID uuid.UUID, outcomes []shared.PaymentOutcome) (*ReconciliationSummary, error) {
	b, err := e.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	members, err := e.paymentRepo.GetByIDs(ctx, b.PaymentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments of batch %s: %w", batchID, err)
	}

	byID := make(map[uuid.UUID]*payment.Payment, len(members))
	for _, p := range members {
		byID[p.ID] = p
	}

	summary := &ReconciliationSummary{BatchID: batchID}
	for _, outcome := range outcomes {
		e.applyOutcome(ctx, byID, outcome, summary)
	}

	for _, p := range members {
		if !p.Status.IsTerminal() {
			summary.Pending++
		}
	}

	summary.BatchStatus, err = e.settleBatch(ctx, b, members)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// applyOutcome settles one payment. Anything that cannot be applied is
// counted as skipped rather than failing the whole result: the bank's file
// may name payments this service never issued.
func (e *ReconciliationEngine) applyOutcome(ctx context.Context, byID map[uuid.UUID]*payment.Payment, outcome shared.PaymentOutcome, summary *ReconciliationSummary) {
	logger := e.logger.With("payment_id", outcome.PaymentID.String(), "batch_id", summary.BatchID.String())

	if !outcome.Outcome.Valid() {
		logger.Warn("Skipping outcome with unknown verdict", "outcome", string(outcome.Outcome))
		summary.Skipped++
		return
	}

	p, ok := byID[outcome.PaymentID]
	if !ok {
		logger.Warn("Skipping outcome for payment not in batch")
		summary.Skipped++
		return
	}

	target := payment.StatusCompleted
	if outcome.Outcome == shared.OutcomeFailure {
		target = payment.StatusFailed
	}

	if p.Status.IsTerminal() {
		if p.Status == target {
			summary.AlreadyFinal++
			return
		}
		logger.Warn("Skipping outcome conflicting with settled payment",
			"current_status", string(p.Status),
			"requested_status", string(target),
		)
		summary.Skipped++
		return
	}

	prior := *p

	var event *payment.TimelineEvent
	var err error
	if target == payment.StatusFailed {
		event, err = p.Fail(e.actor, outcome.ErrorMessage)
	} else {
		event, err = p.Transition(payment.StatusCompleted, e.actor)
		if err == nil && outcome.Reference != "" {
			event.Detail = outcome.Reference
		}
	}
	if err != nil {
		logger.Warn("Skipping outcome for payment not yet with the bank",
			"current_status", string(p.Status),
			"error", err,
		)
		summary.Skipped++
		return
	}

	if err := e.paymentRepo.UpdateStatus(ctx, p); err != nil {
		// Roll the in-memory move back so the batch is not settled on
		// state the database never saw; the next redelivery retries it.
		*p = prior
		logger.Error("Failed to persist payment settlement", "error", err)
		summary.Skipped++
		return
	}

	if err := e.timelineRepo.Append(ctx, event); err != nil {
		logger.Error("Failed to append timeline event", "event_type", event.EventType, "error", err)
	}

	if target == payment.StatusFailed {
		summary.Failed++
	} else {
		summary.Completed++
	}
}

// settleBatch moves the batch to a terminal state once every member is
// terminal. A cancelled member does not hold the batch open and does not
// mark it failed.
func (e *ReconciliationEngine) settleBatch(ctx context.Context, b *batch.Batch, members []*payment.Payment) (batch.Status, error) {
	if b.Status.IsTerminal() {
		return b.Status, nil
	}

	allTerminal := true
	anyFailed := false
	for _, p := range members {
		if !p.Status.IsTerminal() {
			allTerminal = false
			break
		}
		if p.Status == payment.StatusFailed {
			anyFailed = true
		}
	}
	if !allTerminal {
		return b.Status, nil
	}

	target := batch.StatusCompleted
	if anyFailed {
		target = batch.StatusFailed
	}

	// A batch whose members were all cancelled before dispatch never
	// reached PROCESSING; it stays where it is.
	if err := b.Transition(target); err != nil {
		e.logger.Warn("Batch not settled", "batch_id", b.ID.String(), "error", err)
		return b.Status, nil
	}
	if err := e.batchRepo.UpdateStatus(ctx, b.ID, target); err != nil {
		return b.Status, fmt.Errorf("failed to persist batch settlement: %w", err)
	}

	e.logger.Info("Batch settled",
		"batch_id", b.ID.String(),
		"status", string(target),
		"payment_count", b.PaymentCount(),
	)
	return target, nil
}
