package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/payroll-settlement-service/internal/domain/dispatch"
	"github.com/payroll-settlement-service/internal/platform/persistence"
)

// DispatchRepository implements the dispatch.Repository interface for PostgreSQL
type DispatchRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDispatchRepository creates a new PostgreSQL dispatch outbox repository
func NewDispatchRepository(logger *slog.Logger, db *persistence.PostgresDB) dispatch.Repository {
	return &DispatchRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. This ensures descriptor
// creation is atomic with the batch insert and payment claims.
func (r *DispatchRepository) WithTx(tx pgx.Tx) dispatch.Repository {
	return &DispatchRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new dispatch message in pending status.
// The message will be picked up by the dispatch poller for publishing.
func (r *DispatchRepository) Create(ctx context.Context, message *dispatch.Message) error {
	query := `
		INSERT INTO dispatch_outbox (batch_id, bank_code, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.BatchID,
		message.BankCode,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)

	if err != nil {
		r.logger.Error("Failed to create dispatch message",
			"batch_id", message.BatchID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create dispatch message: %w", err)
	}

	return nil
}

// GetPending retrieves a batch of pending dispatch messages ordered by
// creation time so the poller publishes file descriptors in FIFO order.
func (r *DispatchRepository) GetPending(ctx context.Context, limit int) ([]*dispatch.Message, error) {
	query := `
		SELECT id, batch_id, bank_code, payload, status, attempts, created_at, last_attempt_at
		FROM dispatch_outbox
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, dispatch.MessageStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending dispatch messages", "error", err)
		return nil, fmt.Errorf("failed to get pending dispatch messages: %w", err)
	}
	defer rows.Close()

	var messages []*dispatch.Message
	for rows.Next() {
		var message dispatch.Message
		err := rows.Scan(
			&message.ID,
			&message.BatchID,
			&message.BankCode,
			&message.Payload,
			&message.Status,
			&message.Attempts,
			&message.CreatedAt,
			&message.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan dispatch message", "error", err)
			return nil, fmt.Errorf("failed to scan dispatch message: %w", err)
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over dispatch messages", "error", err)
		return nil, fmt.Errorf("error iterating over dispatch messages: %w", err)
	}

	return messages, nil
}

// UpdateStatus updates the message status and last attempt timestamp.
// Returns ErrMessageNotFound if the message doesn't exist.
func (r *DispatchRepository) UpdateStatus(ctx context.Context, id int64, status dispatch.MessageStatus) error {
	query := `
		UPDATE dispatch_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update dispatch message status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update dispatch message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dispatch.ErrMessageNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts increments the retry counter and updates last attempt time
func (r *DispatchRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE dispatch_outbox
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to increment dispatch message attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment dispatch message attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dispatch.ErrMessageNotFound{ID: id}
	}

	return nil
}

// GetByBatchID retrieves the dispatch message for a batch
func (r *DispatchRepository) GetByBatchID(ctx context.Context, batchID uuid.UUID) (*dispatch.Message, error) {
	query := `
		SELECT id, batch_id, bank_code, payload, status, attempts, created_at, last_attempt_at
		FROM dispatch_outbox
		WHERE batch_id = $1
	`

	var message dispatch.Message
	err := r.querier.QueryRow(ctx, query, batchID).Scan(
		&message.ID,
		&message.BatchID,
		&message.BankCode,
		&message.Payload,
		&message.Status,
		&message.Attempts,
		&message.CreatedAt,
		&message.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get dispatch message by batch", "batch_id", batchID.String(), "error", err)
		return nil, fmt.Errorf("failed to get dispatch message by batch: %w", err)
	}

	return &message, nil
}
