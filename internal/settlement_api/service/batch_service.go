package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/payroll-settlement-service/internal/config"
	"github.com/payroll-settlement-service/internal/domain/bank"
	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/dispatch"
	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/validation"
)

// CodeBankCodeMismatch marks a candidate whose IBAN resolves to a different
// bank than the batch's
const CodeBankCodeMismatch = "BANK_CODE_MISMATCH"

// TxRunner runs a function inside a database transaction, rolling back on
// error or panic. Satisfied by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// BatchServiceImpl implements the BatchService interface. It owns the batch
// creation transaction: insert batch, claim payments with per-row
// compare-and-set, write the dispatch outbox message, all-or-nothing.
type BatchServiceImpl struct {
	pgDB         TxRunner
	paymentRepo  payment.Repository
	batchRepo    batch.Repository
	dispatchRepo dispatch.Repository
	timelineRepo payment.TimelineRepository
	eligibility  *validation.EligibilityValidator
	registry     *bank.Registry
	location     *time.Location
	batchExpiry  time.Duration
	actor        string
	logger       *slog.Logger
}

// NewBatchService creates a new batch orchestration service
func NewBatchService(
	logger *slog.Logger,
	cfg *config.SettlementConfig,
	pgDB TxRunner,
	paymentRepo payment.Repository,
	batchRepo batch.Repository,
	dispatchRepo dispatch.Repository,
	timelineRepo payment.TimelineRepository,
	eligibility *validation.EligibilityValidator,
	registry *bank.Registry,
) (BatchService, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement timezone %s: %w", cfg.Timezone, err)
	}

	return &BatchServiceImpl{
		pgDB:         pgDB,
		paymentRepo:  paymentRepo,
		batchRepo:    batchRepo,
		dispatchRepo: dispatchRepo,
		timelineRepo: timelineRepo,
		eligibility:  eligibility,
		registry:     registry,
		location:     location,
		batchExpiry:  cfg.BatchExpiry,
		actor:        cfg.Actor,
		logger:       logger,
	}, nil
}

// CreateBatch builds a settlement batch for the bank from the candidate
// payments. Ineligible candidates are excluded (never failed); eligible ones
// beyond the bank's bulk limit are deferred to a later invocation.
func (s *BatchServiceImpl) CreateBatch(ctx context.Context, bankCode string, paymentIDs []uuid.UUID) (*BatchResult, error) {
	def, err := s.registry.Lookup(bankCode)
	if err != nil {
		return nil, err
	}

	candidates, err := s.paymentRepo.GetByIDs(ctx, paymentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate payments: %w", err)
	}

	eligible, excluded, err := s.filterCandidates(ctx, bankCode, candidates)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, batch.ErrEmptyBatch
	}

	// Oldest first, so repeated invocations drain the queue fairly
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})

	deferredCount := 0
	if def.MaxBulkPayments > 0 && len(eligible) > def.MaxBulkPayments {
		deferredCount = len(eligible) - def.MaxBulkPayments
		eligible = eligible[:def.MaxBulkPayments]
	}

	now := time.Now().In(s.location)
	deferredDispatch := s.pastCutoff(now, def)
	expiryBase := now
	if deferredDispatch {
		expiryBase = nextBusinessDay(now)
	}

	b, err := batch.NewBatch(def, eligible, deferredDispatch, expiryBase.Add(s.batchExpiry))
	if err != nil {
		return nil, err
	}

	message, err := dispatch.NewMessage(b, string(def.FileFormat), payment.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatch message for batch %s: %w", b.ID, err)
	}

	err = s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.batchRepo.WithTx(tx).Create(ctx, b); err != nil {
			return err
		}

		txPayments := s.paymentRepo.WithTx(tx)
		for _, p := range eligible {
			if err := txPayments.ClaimForBatch(ctx, p.ID, b.ID); err != nil {
				return batch.PartialAssignmentError{BatchID: b.ID, PaymentID: p.ID, Cause: err}
			}
		}

		return s.dispatchRepo.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		s.logger.Error("Batch creation rolled back",
			"batch_id", b.ID.String(),
			"bank_code", bankCode,
			"error", err,
		)
		return nil, err
	}

	// Timeline events after commit: the audit trail is best-effort
	for _, p := range eligible {
		event, err := p.AssignBatch(b.ID, s.actor)
		if err != nil {
			s.logger.Error("Failed to record batch assignment in memory", "payment_id", p.ID.String(), "error", err)
			continue
		}
		if err := s.timelineRepo.Append(ctx, event); err != nil {
			s.logger.Error("Failed to append batch assignment timeline event", "payment_id", p.ID.String(), "error", err)
		}
	}

	s.logger.Info("Batch created",
		"batch_id", b.ID.String(),
		"bank_code", bankCode,
		"payment_count", b.PaymentCount(),
		"total_amount", b.TotalAmount.String(),
		"deferred_count", deferredCount,
		"deferred_dispatch", deferredDispatch,
		"file_reference", b.FileReference,
	)

	return &BatchResult{
		Batch:         b,
		DeferredCount: deferredCount,
		Excluded:      excluded,
	}, nil
}

// filterCandidates runs eligibility checks and bank resolution over the
// candidates. Exclusion reasons are reported back to the caller, never
// persisted on the payment.
func (s *BatchServiceImpl) filterCandidates(ctx context.Context, bankCode string, candidates []*payment.Payment) ([]*payment.Payment, []ExcludedPayment, error) {
	var eligible []*payment.Payment
	var excluded []ExcludedPayment

	for _, p := range candidates {
		result, err := s.eligibility.Check(ctx, p, len(candidates))
		if err != nil {
			return nil, nil, fmt.Errorf("eligibility check failed for payment %s: %w", p.ID, err)
		}

		codes := result.Errors
		if result.IsValid && result.BankCode != bankCode {
			codes = append(codes, CodeBankCodeMismatch)
		}

		if len(codes) > 0 {
			excluded = append(excluded, ExcludedPayment{PaymentID: p.ID, Codes: codes})
			continue
		}
		eligible = append(eligible, p)
	}

	return eligible, excluded, nil
}

// pastCutoff reports whether the clock has passed the bank's daily cutoff
func (s *BatchServiceImpl) pastCutoff(now time.Time, def *bank.Definition) bool {
	cutoff, err := time.ParseInLocation("15:04", def.CutoffTime, s.location)
	if err != nil {
		s.logger.Error("Invalid bank cutoff time, treating batch as past cutoff",
			"bank_code", def.Code,
			"cutoff_time", def.CutoffTime,
			"error", err,
		)
		return true
	}

	todayCutoff := time.Date(now.Year(), now.Month(), now.Day(), cutoff.Hour(), cutoff.Minute(), 0, 0, s.location)
	return now.After(todayCutoff)
}

// nextBusinessDay advances to the next Sun-Thu working day, skipping the
// Fri/Sat weekend
func nextBusinessDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for next.Weekday() == time.Friday || next.Weekday() == time.Saturday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// GetBatchByID retrieves a batch by its ID
func (s *BatchServiceImpl) GetBatchByID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// GetBatchPayments retrieves the payments claimed by a batch
func (s *BatchServiceImpl) GetBatchPayments(ctx context.Context, id uuid.UUID) ([]*payment.Payment, error) {
	if _, err := s.batchRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetByBatchID(ctx, id)
}

// DispatchBatch records the handoff of the settlement file to the bank
func (s *BatchServiceImpl) DispatchBatch(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	return s.advanceBatch(ctx, id, batch.StatusSentToBank, payment.StatusSentToBank)
}

// AcknowledgeBatch records the bank's receipt confirmation
func (s *BatchServiceImpl) AcknowledgeBatch(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	return s.advanceBatch(ctx, id, batch.StatusProcessing, payment.StatusBankProcessing)
}

// advanceBatch moves the batch and all its member payments one lifecycle step
// forward in a single transaction, appending timeline events after commit.
func (s *BatchServiceImpl) advanceBatch(ctx context.Context, id uuid.UUID, batchTo batch.Status, paymentTo payment.Status) (*batch.Batch, error) {
	b, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.Transition(batchTo); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByBatchID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments for batch %s: %w", id, err)
	}

	var events []*payment.TimelineEvent
	for _, p := range payments {
		if p.Status.IsTerminal() {
			// A cancelled member stays behind; the batch moves on without it.
			continue
		}
		event, err := p.Transition(paymentTo, s.actor)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	err = s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.batchRepo.WithTx(tx).UpdateStatus(ctx, id, batchTo); err != nil {
			return err
		}
		txPayments := s.paymentRepo.WithTx(tx)
		for _, p := range payments {
			if p.Status != paymentTo {
				continue
			}
			if err := txPayments.UpdateStatus(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Batch advancement rolled back",
			"batch_id", id.String(),
			"target_status", string(batchTo),
			"error", err,
		)
		return nil, err
	}

	for _, event := range events {
		if err := s.timelineRepo.Append(ctx, event); err != nil {
			s.logger.Error("Failed to append timeline event", "payment_id", event.PaymentID.String(), "error", err)
		}
	}

	s.logger.Info("Batch advanced",
		"batch_id", id.String(),
		"status", string(batchTo),
		"payment_count", len(payments),
	)
	return b, nil
}
