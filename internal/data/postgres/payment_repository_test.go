package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payroll-settlement-service/internal/domain/payment"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestPayment() *payment.Payment {
	return &payment.Payment{
		ID:            uuid.New(),
		EmployeeID:    uuid.New(),
		Amount:        decimal.NewFromInt(4500),
		Currency:      payment.Currency,
		Status:        payment.StatusReadyForPayment,
		BankCode:      "RJHI",
		IBAN:          "SA0380000000608010167519",
		AccountNumber: "000000608010167519",
		CreatedAt:     time.Now(),
	}
}

func TestPaymentRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	p := newTestPayment()

	query := `
		INSERT INTO payments \(id, employee_id, amount, currency, status, bank_code, iban, account_number, batch_id, error_message, created_at, processed_at, completed_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.EmployeeID, p.Amount, p.Currency, p.Status, p.BankCode, p.IBAN, p.AccountNumber, p.BatchID, p.ErrorMessage, p.CreatedAt, p.ProcessedAt, p.CompletedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(p.ID, p.EmployeeID, p.Amount, p.Currency, p.Status, p.BankCode, p.IBAN, p.AccountNumber, p.BatchID, p.ErrorMessage, p.CreatedAt, p.ProcessedAt, p.CompletedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create payment")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	p := newTestPayment()

	query := `SELECT id, employee_id, amount, currency, status, bank_code, iban, account_number, batch_id, error_message, created_at, processed_at, completed_at FROM payments WHERE id = \$1`

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "employee_id", "amount", "currency", "status", "bank_code", "iban", "account_number", "batch_id", "error_message", "created_at", "processed_at", "completed_at"}).
			AddRow(p.ID, p.EmployeeID, p.Amount, p.Currency, p.Status, p.BankCode, p.IBAN, p.AccountNumber, p.BatchID, p.ErrorMessage, p.CreatedAt, p.ProcessedAt, p.CompletedAt)

		mock.ExpectQuery(query).WithArgs(p.ID).WillReturnRows(rows)

		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, payment.StatusReadyForPayment, got.Status)
		assert.True(t, p.Amount.Equal(got.Amount))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missingID := uuid.New()
		mock.ExpectQuery(query).WithArgs(missingID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, missingID)
		assert.Nil(t, got)
		var notFound payment.ErrPaymentNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, missingID, notFound.PaymentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_ClaimForBatch(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	paymentID := uuid.New()
	batchID := uuid.New()

	query := `
		UPDATE payments
		SET status = \$1, batch_id = \$2
		WHERE id = \$3 AND status = \$4 AND batch_id IS NULL
	`

	t.Run("claim succeeds", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(payment.StatusBankFileGenerated, batchID, paymentID, payment.StatusReadyForPayment).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.ClaimForBatch(ctx, paymentID, batchID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already claimed by another batch", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(payment.StatusBankFileGenerated, batchID, paymentID, payment.StatusReadyForPayment).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.ClaimForBatch(ctx, paymentID, batchID)
		assert.ErrorIs(t, err, payment.ErrAlreadyClaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	p := newTestPayment()
	p.Status = payment.StatusBankProcessing
	now := time.Now()
	p.ProcessedAt = &now

	query := `
		UPDATE payments
		SET status = \$1, batch_id = \$2, error_message = \$3, processed_at = \$4, completed_at = \$5
		WHERE id = \$6
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.Status, p.BatchID, p.ErrorMessage, p.ProcessedAt, p.CompletedAt, p.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payment missing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.Status, p.BatchID, p.ErrorMessage, p.ProcessedAt, p.CompletedAt, p.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, p)
		var notFound payment.ErrPaymentNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_HasDuplicateCandidate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	excludeID := uuid.New()
	employeeID := uuid.New()
	amount := decimal.NewFromInt(4500)
	day := time.Now().Truncate(24 * time.Hour)

	t.Run("duplicate exists", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(excludeID, employeeID, amount, day).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.HasDuplicateCandidate(ctx, excludeID, employeeID, amount, day)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no duplicate", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(excludeID, employeeID, amount, day).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.HasDuplicateCandidate(ctx, excludeID, employeeID, amount, day)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_WithTx(t *testing.T) {
	repo := &PaymentRepository{querier: nil, logger: newTestLogger()}

	txRepo := repo.WithTx(nil)
	require.NotNil(t, txRepo)
	assert.IsType(t, &PaymentRepository{}, txRepo)
}
