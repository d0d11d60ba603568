package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is fixed for the whole service; payroll settlement is SAR only
const Currency = "SAR"

// Common errors
var (
	ErrInvalidAmount  = errors.New("payment amount must be positive")
	ErrEmptyIBAN      = errors.New("payment IBAN cannot be empty")
	ErrAlreadyClaimed = errors.New("payment already claimed by a batch")
)

// ErrPaymentNotFound indicates the payment does not exist
type ErrPaymentNotFound struct {
	PaymentID uuid.UUID
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.PaymentID.String()
}

// Payment represents a single employee salary payment moving through the
// settlement lifecycle. BatchID is set at most once: a payment belongs to at
// most one batch for its lifetime, and a failed payment re-enters the queue
// as a fresh payment rather than being re-batched.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	EmployeeID    uuid.UUID       `json:"employee_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	BankCode      string          `json:"bank_code,omitempty"`
	IBAN          string          `json:"iban"`
	AccountNumber string          `json:"account_number,omitempty"`
	BatchID       *uuid.UUID      `json:"batch_id,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// NewPayment creates a payment in READY_FOR_PAYMENT. The IBAN must already be
// in canonical form (unspaced uppercase); validation happens at intake.
func NewPayment(employeeID uuid.UUID, amount decimal.Decimal, iban, accountNumber, bankCode string) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if iban == "" {
		return nil, ErrEmptyIBAN
	}

	return &Payment{
		ID:            uuid.New(),
		EmployeeID:    employeeID,
		Amount:        amount,
		Currency:      Currency,
		Status:        StatusReadyForPayment,
		BankCode:      bankCode,
		IBAN:          iban,
		AccountNumber: accountNumber,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// InBatch reports whether the payment has been claimed by a batch
func (p *Payment) InBatch() bool {
	return p.BatchID != nil
}
