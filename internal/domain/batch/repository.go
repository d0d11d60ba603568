package batch

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines batch persistence operations
type Repository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	WithTx(tx pgx.Tx) Repository
}
