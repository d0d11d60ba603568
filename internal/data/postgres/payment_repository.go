// Package postgres provides PostgreSQL implementations of the domain
// repositories. Payments and batches live here as the source of truth for
// settlement state and batch membership.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/platform/persistence"
)

// PaymentRepository implements the payment.Repository interface for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const paymentColumns = `id, employee_id, amount, currency, status, bank_code, iban, account_number, batch_id, error_message, created_at, processed_at, completed_at`

// Create stores a new payment
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (id, employee_id, amount, currency, status, bank_code, iban, account_number, batch_id, error_message, created_at, processed_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.EmployeeID,
		p.Amount,
		p.Currency,
		p.Status,
		p.BankCode,
		p.IBAN,
		p.AccountNumber,
		p.BatchID,
		p.ErrorMessage,
		p.CreatedAt,
		p.ProcessedAt,
		p.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", "payment_id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *PaymentRepository) scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID,
		&p.EmployeeID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.BankCode,
		&p.IBAN,
		&p.AccountNumber,
		&p.BatchID,
		&p.ErrorMessage,
		&p.CreatedAt,
		&p.ProcessedAt,
		&p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a payment by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := r.scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{PaymentID: id}
		}
		r.logger.Error("Failed to get payment", "payment_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// GetByIDs retrieves the payments matching the given ids, ordered oldest
// first by creation time. Missing ids are silently absent from the result.
func (r *PaymentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = ANY($1)
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to get payments by ids", "error", err)
		return nil, fmt.Errorf("failed to get payments by ids: %w", err)
	}
	defer rows.Close()

	return r.collectPayments(rows)
}

// GetByBatchID retrieves all payments claimed by the given batch
func (r *PaymentRepository) GetByBatchID(ctx context.Context, batchID uuid.UUID) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE batch_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, batchID)
	if err != nil {
		r.logger.Error("Failed to get payments by batch", "batch_id", batchID.String(), "error", err)
		return nil, fmt.Errorf("failed to get payments by batch: %w", err)
	}
	defer rows.Close()

	return r.collectPayments(rows)
}

func (r *PaymentRepository) collectPayments(rows pgx.Rows) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment", "error", err)
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payments", "error", err)
		return nil, fmt.Errorf("error iterating over payments: %w", err)
	}

	return payments, nil
}

// UpdateStatus persists the payment's current status and lifecycle fields
func (r *PaymentRepository) UpdateStatus(ctx context.Context, p *payment.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, batch_id = $2, error_message = $3, processed_at = $4, completed_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		p.Status,
		p.BatchID,
		p.ErrorMessage,
		p.ProcessedAt,
		p.CompletedAt,
		p.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update payment status", "payment_id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrPaymentNotFound{PaymentID: p.ID}
	}

	return nil
}

// ClaimForBatch atomically assigns the payment to a batch. The claim is a
// compare-and-set: it succeeds only while the payment is still unassigned and
// READY_FOR_PAYMENT, so concurrently created batches can never claim
// overlapping payment sets.
func (r *PaymentRepository) ClaimForBatch(ctx context.Context, paymentID, batchID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $1, batch_id = $2
		WHERE id = $3 AND status = $4 AND batch_id IS NULL
	`

	result, err := r.querier.Exec(ctx, query,
		payment.StatusBankFileGenerated,
		batchID,
		paymentID,
		payment.StatusReadyForPayment,
	)
	if err != nil {
		r.logger.Error("Failed to claim payment for batch",
			"payment_id", paymentID.String(),
			"batch_id", batchID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to claim payment for batch: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrAlreadyClaimed
	}

	return nil
}

// HasDuplicateCandidate reports whether another payment with the same
// employee, amount and creation date is already claimed by a non-terminal
// batch. Guards against double submission of the same salary run.
func (r *PaymentRepository) HasDuplicateCandidate(ctx context.Context, excludeID, employeeID uuid.UUID, amount decimal.Decimal, day time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM payments p
			JOIN batches b ON b.id = p.batch_id
			WHERE p.id <> $1
			  AND p.employee_id = $2
			  AND p.amount = $3
			  AND p.created_at::date = $4::date
			  AND b.status NOT IN ('COMPLETED', 'FAILED')
		)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, excludeID, employeeID, amount, day).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check duplicate candidate", "employee_id", employeeID.String(), "error", err)
		return false, fmt.Errorf("failed to check duplicate candidate: %w", err)
	}

	return exists, nil
}
