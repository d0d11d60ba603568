// Package dispatch implements the transactional outbox handing settlement
// file descriptors to the external banking channel. Messages are written in
// the same database transaction that claims the batch's payments, then
// published to Kafka by a poller.
package dispatch

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payroll-settlement-service/internal/domain/batch"
)

// MessageStatus defines outbox publishing states
type MessageStatus string

const (
	MessageStatusPending         MessageStatus = "PENDING"
	MessageStatusProcessed       MessageStatus = "PROCESSED"
	MessageStatusFailedToPublish MessageStatus = "FAILED_TO_PUBLISH"
)

// FileDescriptor is the bank-consumable handoff payload. Actual file byte
// generation is delegated to the formatting collaborator listening on the
// dispatch topic.
type FileDescriptor struct {
	BatchID          uuid.UUID       `json:"batch_id"`
	BankCode         string          `json:"bank_code"`
	FileFormat       string          `json:"file_format"`
	FileReference    string          `json:"file_reference"`
	PaymentCount     int             `json:"payment_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	DeferredDispatch bool            `json:"deferred_dispatch"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// Message stores a file descriptor for reliable publishing
type Message struct {
	ID            int64           `json:"id"`
	BatchID       uuid.UUID       `json:"batch_id"`
	BankCode      string          `json:"bank_code"`
	Payload       json.RawMessage `json:"payload"`
	Status        MessageStatus   `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage builds an outbox message carrying the batch's file descriptor
func NewMessage(b *batch.Batch, fileFormat, currency string) (*Message, error) {
	descriptor := FileDescriptor{
		BatchID:          b.ID,
		BankCode:         b.BankCode,
		FileFormat:       fileFormat,
		FileReference:    b.FileReference,
		PaymentCount:     b.PaymentCount(),
		TotalAmount:      b.TotalAmount,
		Currency:         currency,
		DeferredDispatch: b.DeferredDispatch,
		ExpiresAt:        b.ExpiresAt,
	}

	payload, err := json.Marshal(descriptor)
	if err != nil {
		return nil, err
	}

	return &Message{
		BatchID:   b.ID,
		BankCode:  b.BankCode,
		Payload:   payload,
		Status:    MessageStatusPending,
		Attempts:  0,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GetFileDescriptor extracts the descriptor from the payload
func (m *Message) GetFileDescriptor() (*FileDescriptor, error) {
	var d FileDescriptor
	if err := json.Unmarshal(m.Payload, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
