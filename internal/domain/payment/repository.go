package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines payment persistence operations
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Payment, error)
	GetByBatchID(ctx context.Context, batchID uuid.UUID) ([]*Payment, error)
	UpdateStatus(ctx context.Context, p *Payment) error

	// ClaimForBatch atomically assigns the payment to a batch using a
	// compare-and-set on (status = READY_FOR_PAYMENT, batch_id IS NULL).
	// Returns ErrAlreadyClaimed when another batch won the payment.
	ClaimForBatch(ctx context.Context, paymentID, batchID uuid.UUID) error

	// HasDuplicateCandidate reports whether another payment with the same
	// employee, amount and creation date is already claimed by a
	// non-terminal batch.
	HasDuplicateCandidate(ctx context.Context, excludeID, employeeID uuid.UUID, amount decimal.Decimal, day time.Time) (bool, error)

	WithTx(tx pgx.Tx) Repository
}

// TimelineRepository manages the append-only payment timeline
type TimelineRepository interface {
	Append(ctx context.Context, event *TimelineEvent) error
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*TimelineEvent, error)
}
