package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidOutcome = errors.New("invalid payment outcome")
	ErrEmptyOutcomes  = errors.New("bank result carries no outcomes")
)

// Outcome is the bank's verdict on a single payment
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Valid reports whether o is a known outcome
func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// PaymentOutcome is one per-payment line of a bank confirmation result
type PaymentOutcome struct {
	PaymentID    uuid.UUID `json:"payment_id"`
	Outcome      Outcome   `json:"outcome"`
	Reference    string    `json:"reference,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// BankResultMessage defines a Kafka message carrying a bank's confirmation
// results for a batch. Partial responses are expected: payments the bank has
// not yet decided on are simply absent from Outcomes.
type BankResultMessage struct {
	BatchID       uuid.UUID        `json:"batch_id"`
	BankCode      string           `json:"bank_code"`
	Outcomes      []PaymentOutcome `json:"outcomes"`
	CorrelationID string           `json:"correlation_id"`
	ReceivedAt    time.Time        `json:"received_at"`
}
