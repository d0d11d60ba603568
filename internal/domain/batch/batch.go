package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payroll-settlement-service/internal/domain/bank"
	"github.com/payroll-settlement-service/internal/domain/payment"
)

// Common errors
var (
	ErrEmptyBatch = errors.New("no eligible payments for batch")
)

// ErrBatchNotFound indicates the batch does not exist
type ErrBatchNotFound struct {
	BatchID uuid.UUID
}

func (e ErrBatchNotFound) Error() string {
	return "batch not found: " + e.BatchID.String()
}

// PartialAssignmentError indicates batch creation was aborted because a
// payment could not be claimed; no side effects are persisted.
type PartialAssignmentError struct {
	BatchID   uuid.UUID
	PaymentID uuid.UUID
	Cause     error
}

func (e PartialAssignmentError) Error() string {
	return fmt.Sprintf("batch %s aborted: payment %s could not be assigned: %v", e.BatchID, e.PaymentID, e.Cause)
}

func (e PartialAssignmentError) Unwrap() error {
	return e.Cause
}

// Status defines the batch settlement states
type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusFileGenerated Status = "FILE_GENERATED"
	StatusSentToBank    Status = "SENT_TO_BANK"
	StatusProcessing    Status = "PROCESSING"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
)

// IsTerminal reports whether the batch has reached a final state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Batch is a bank-scoped group of payments dispatched together as one
// settlement file. The batch's payment id list is the sole source of
// membership truth; payments carry only a weak back-reference for lookup.
type Batch struct {
	ID               uuid.UUID       `json:"id"`
	BankCode         string          `json:"bank_code"`
	PaymentIDs       []uuid.UUID     `json:"payment_ids"` // insertion order = processing order
	Status           Status          `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"` // fixed at creation
	FileReference    string          `json:"file_reference"`
	DeferredDispatch bool            `json:"deferred_dispatch"` // created past the bank's cutoff
	CreatedAt        time.Time       `json:"created_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// NewBatch builds a batch over the given payments, computing the total amount
// and the bank file reference. Payments must already be filtered for
// eligibility and sorted oldest-first.
func NewBatch(def *bank.Definition, payments []*payment.Payment, deferredDispatch bool, expiresAt time.Time) (*Batch, error) {
	if len(payments) == 0 {
		return nil, ErrEmptyBatch
	}

	id := uuid.New()
	ids := make([]uuid.UUID, 0, len(payments))
	total := decimal.Zero
	for _, p := range payments {
		ids = append(ids, p.ID)
		total = total.Add(p.Amount)
	}

	return &Batch{
		ID:               id,
		BankCode:         def.Code,
		PaymentIDs:       ids,
		Status:           StatusCreated,
		TotalAmount:      total,
		FileReference:    fmt.Sprintf("%s-%s.%s", def.Code, id, def.FileFormat.Extension()),
		DeferredDispatch: deferredDispatch,
		CreatedAt:        time.Now().UTC(),
		ExpiresAt:        expiresAt,
	}, nil
}

// PaymentCount returns the number of payments in the batch
func (b *Batch) PaymentCount() int {
	return len(b.PaymentIDs)
}

// legalTransitions is the closed transition table for batch states
var legalTransitions = map[Status][]Status{
	StatusCreated:       {StatusFileGenerated},
	StatusFileGenerated: {StatusSentToBank},
	StatusSentToBank:    {StatusProcessing},
	StatusProcessing:    {StatusCompleted, StatusFailed},
}

// ErrIllegalBatchTransition indicates a batch state machine violation
type ErrIllegalBatchTransition struct {
	BatchID uuid.UUID
	From    Status
	To      Status
}

func (e ErrIllegalBatchTransition) Error() string {
	return fmt.Sprintf("illegal batch transition %s -> %s for batch %s", e.From, e.To, e.BatchID)
}

// Transition moves the batch to the target status, rejecting illegal moves
func (b *Batch) Transition(to Status) error {
	for _, allowed := range legalTransitions[b.Status] {
		if allowed == to {
			b.Status = to
			return nil
		}
	}
	return ErrIllegalBatchTransition{BatchID: b.ID, From: b.Status, To: to}
}
