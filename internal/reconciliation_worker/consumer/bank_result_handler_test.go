package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/shared"
	"github.com/payroll-settlement-service/internal/reconciliation_worker/service"
)

// MockReconciliationService for testing
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) ApplyBankResult(ctx context.Context, batchID uuid.UUID, outcomes []shared.PaymentOutcome) (*service.ReconciliationSummary, error) {
	args := m.Called(ctx, batchID, outcomes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconciliationSummary), args.Error(1)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func validResult() shared.BankResultMessage {
	return shared.BankResultMessage{
		BatchID:  uuid.New(),
		BankCode: "RJHI",
		Outcomes: []shared.PaymentOutcome{
			{PaymentID: uuid.New(), Outcome: shared.OutcomeSuccess, Reference: "RJHI-REF-1"},
			{PaymentID: uuid.New(), Outcome: shared.OutcomeFailure, ErrorMessage: "account closed"},
		},
		CorrelationID: "corr1",
		ReceivedAt:    time.Now(),
	}
}

func TestHandleMessage(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	t.Run("SuccessfulReconciliation", func(t *testing.T) {
		mockService := &MockReconciliationService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewBankResultHandler(logger, mockService, mockDLQ)

		message := validResult()
		value, err := json.Marshal(message)
		assert.NoError(t, err)

		mockService.On("ApplyBankResult", mock.Anything, message.BatchID, message.Outcomes).Return(&service.ReconciliationSummary{
			BatchID:     message.BatchID,
			Completed:   1,
			Failed:      1,
			BatchStatus: batch.StatusFailed,
		}, nil).Once()

		err = handler.HandleMessage(ctx, []byte(message.BatchID.String()), value)
		assert.NoError(t, err)

		mockService.AssertExpectations(t)
		mockDLQ.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MalformedMessageGoesToDLQ", func(t *testing.T) {
		mockService := &MockReconciliationService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewBankResultHandler(logger, mockService, mockDLQ)

		value := []byte(`{"batch_id": not json`)
		mockDLQ.On("PublishToDLQ", mock.Anything, "key1", value, mock.Anything).Return(nil).Once()

		err := handler.HandleMessage(ctx, []byte("key1"), value)
		assert.NoError(t, err, "DLQ-routed message should commit the offset")

		mockDLQ.AssertExpectations(t)
		mockService.AssertNotCalled(t, "ApplyBankResult", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingBatchIDGoesToDLQ", func(t *testing.T) {
		mockService := &MockReconciliationService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewBankResultHandler(logger, mockService, mockDLQ)

		message := validResult()
		message.BatchID = uuid.Nil
		value, err := json.Marshal(message)
		assert.NoError(t, err)

		mockDLQ.On("PublishToDLQ", mock.Anything, "key1", value, mock.Anything).Return(nil).Once()

		err = handler.HandleMessage(ctx, []byte("key1"), value)
		assert.NoError(t, err)
		mockDLQ.AssertExpectations(t)
	})

	t.Run("EmptyOutcomesGoToDLQ", func(t *testing.T) {
		mockService := &MockReconciliationService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewBankResultHandler(logger, mockService, mockDLQ)

		message := validResult()
		message.Outcomes = nil
		value, err := json.Marshal(message)
		assert.NoError(t, err)

		mockDLQ.On("PublishToDLQ", mock.Anything, "key1", value, mock.MatchedBy(func(reason string) bool {
			return reason != ""
		})).Return(nil).Once()

		err = handler.HandleMessage(ctx, []byte("key1"), value)
		assert.NoError(t, err)
		mockDLQ.AssertExpectations(t)
	})

	t.Run("DLQFailureReturnsError", func(t *testing.T) {
		mockService := &MockReconciliationService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewBankResultHandler(logger, mockService, mockDLQ)

		value := []byte(`{"batch_id": not json`)
		mockDLQ.On("PublishToDLQ", mock.Anything, "key1", value, mock.Anything).Return(errors.New("kafka down")).Once()

		err := handler.HandleMessage(ctx, []byte("key1"), value)
		assert.Error(t, err, "an unroutable poison message must stay uncommitted")
	})

	t.Run("WithoutDLQPoisonMessageReturnsError", func(t *testing.T) {
		mockService := &MockReconciliationService{}
		handler := NewBankResultHandler(logger, mockService, nil)

		err := handler.HandleMessage(ctx, []byte("key1"), []byte(`{"batch_id": not json`))
		assert.Error(t, err)
	})

	t.Run("ReconciliationErrorStaysUncommitted", func(t *testing.T) {
		mockService := &MockReconciliationService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewBankResultHandler(logger, mockService, mockDLQ)

		message := validResult()
		value, err := json.Marshal(message)
		assert.NoError(t, err)

		mockService.On("ApplyBankResult", mock.Anything, message.BatchID, message.Outcomes).Return(nil, errors.New("db down")).Once()

		err = handler.HandleMessage(ctx, []byte(message.BatchID.String()), value)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), message.BatchID.String())

		mockDLQ.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
