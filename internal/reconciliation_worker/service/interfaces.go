package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/shared"
)

// ReconciliationSummary reports what a bank result application did. Pending
// counts members still awaiting a bank verdict after this result.
type ReconciliationSummary struct {
	BatchID      uuid.UUID    `json:"batch_id"`
	Completed    int          `json:"completed"`
	Failed       int          `json:"failed"`
	Skipped      int          `json:"skipped"`
	AlreadyFinal int          `json:"already_final"`
	Pending      int          `json:"pending"`
	BatchStatus  batch.Status `json:"batch_status"`
}

// ReconciliationService applies bank confirmation results to a batch
type ReconciliationService interface {
	// ApplyBankResult settles the batch members named in the outcomes.
	// Redelivery of the same result is a no-op: outcomes already applied
	// are counted as AlreadyFinal.
	ApplyBankResult(ctx context.Context, batchID uuid.UUID, outcomes []shared.PaymentOutcome) (*ReconciliationSummary, error)
}
