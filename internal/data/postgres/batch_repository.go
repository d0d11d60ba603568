package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/platform/persistence"
)

// BatchRepository implements the batch.Repository interface for PostgreSQL
type BatchRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBatchRepository creates a new PostgreSQL batch repository
func NewBatchRepository(logger *slog.Logger, db *persistence.PostgresDB) batch.Repository {
	return &BatchRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so batch creation is atomic
// with payment claims and the dispatch outbox write.
func (r *BatchRepository) WithTx(tx pgx.Tx) batch.Repository {
	return &BatchRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new batch. The payment id list is persisted on the batch
// row itself: the batch owns membership exclusively.
func (r *BatchRepository) Create(ctx context.Context, b *batch.Batch) error {
	query := `
		INSERT INTO batches (id, bank_code, payment_ids, status, total_amount, file_reference, deferred_dispatch, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.BankCode,
		b.PaymentIDs,
		b.Status,
		b.TotalAmount,
		b.FileReference,
		b.DeferredDispatch,
		b.CreatedAt,
		b.ExpiresAt,
	)
	if err != nil {
		r.logger.Error("Failed to create batch", "batch_id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch by its ID
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	query := `
		SELECT id, bank_code, payment_ids, status, total_amount, file_reference, deferred_dispatch, created_at, expires_at
		FROM batches
		WHERE id = $1
	`

	var b batch.Batch
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.BankCode,
		&b.PaymentIDs,
		&b.Status,
		&b.TotalAmount,
		&b.FileReference,
		&b.DeferredDispatch,
		&b.CreatedAt,
		&b.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, batch.ErrBatchNotFound{BatchID: id}
		}
		r.logger.Error("Failed to get batch", "batch_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &b, nil
}

// UpdateStatus persists a batch status change
func (r *BatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status batch.Status) error {
	query := `
		UPDATE batches
		SET status = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update batch status", "batch_id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return batch.ErrBatchNotFound{BatchID: id}
	}

	return nil
}
