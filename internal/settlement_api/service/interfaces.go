package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/validation"
)

// ExcludedPayment names a candidate that was filtered out of a batch and the
// rule codes it failed
type ExcludedPayment struct {
	PaymentID uuid.UUID `json:"payment_id"`
	Codes     []string  `json:"codes"`
}

// BatchResult is the outcome of a CreateBatch call. DeferredCount counts
// eligible payments left unclaimed because the bank's bulk limit was hit;
// they are picked up by a later invocation.
type BatchResult struct {
	Batch         *batch.Batch      `json:"batch"`
	DeferredCount int               `json:"deferred_count"`
	Excluded      []ExcludedPayment `json:"excluded,omitempty"`
}

// PaymentService defines the interface for payment operations
type PaymentService interface {
	// CreatePayment validates the IBAN, canonicalizes it and stores the
	// payment in READY_FOR_PAYMENT. On validation failure the payment is
	// nil and the Result carries the error codes.
	CreatePayment(ctx context.Context, employeeID uuid.UUID, amount decimal.Decimal, iban string) (*payment.Payment, *validation.Result, error)

	// GetPaymentByID retrieves a payment by its ID
	// Returns ErrPaymentNotFound if the payment doesn't exist
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error)

	// GetTimeline retrieves the payment's audit timeline in chronological order
	GetTimeline(ctx context.Context, paymentID uuid.UUID) ([]*payment.TimelineEvent, error)

	// CancelPayment cancels a payment from any non-terminal state
	// Returns IllegalTransitionError if the payment is already terminal
	CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, error)

	// ValidateIBAN runs the IBAN validator without touching any payment
	ValidateIBAN(iban string) *validation.Result
}

// BatchService defines the interface for batch orchestration
type BatchService interface {
	// CreateBatch builds a settlement batch for the bank from the candidate
	// payments, claiming them atomically and writing the dispatch outbox
	// message in the same transaction
	CreateBatch(ctx context.Context, bankCode string, paymentIDs []uuid.UUID) (*BatchResult, error)

	// GetBatchByID retrieves a batch by its ID
	GetBatchByID(ctx context.Context, id uuid.UUID) (*batch.Batch, error)

	// GetBatchPayments retrieves the payments claimed by a batch
	GetBatchPayments(ctx context.Context, id uuid.UUID) ([]*payment.Payment, error)

	// DispatchBatch records the handoff of the settlement file to the bank:
	// batch FILE_GENERATED -> SENT_TO_BANK, member payments follow
	DispatchBatch(ctx context.Context, id uuid.UUID) (*batch.Batch, error)

	// AcknowledgeBatch records the bank's receipt confirmation: batch
	// SENT_TO_BANK -> PROCESSING, member payments -> BANK_PROCESSING
	AcknowledgeBatch(ctx context.Context, id uuid.UUID) (*batch.Batch, error)
}
