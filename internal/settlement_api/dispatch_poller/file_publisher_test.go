package dispatch_poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/dispatch"
)

// MockDispatchRepo for testing
type MockDispatchRepo struct {
	mock.Mock
}

func (m *MockDispatchRepo) Create(ctx context.Context, message *dispatch.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockDispatchRepo) GetPending(ctx context.Context, limit int) ([]*dispatch.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dispatch.Message), args.Error(1)
}

func (m *MockDispatchRepo) UpdateStatus(ctx context.Context, id int64, status dispatch.MessageStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDispatchRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDispatchRepo) GetByBatchID(ctx context.Context, batchID uuid.UUID) (*dispatch.Message, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Message), args.Error(1)
}

func (m *MockDispatchRepo) WithTx(tx pgx.Tx) dispatch.Repository {
	args := m.Called(tx)
	return args.Get(0).(dispatch.Repository)
}

// MockBatchRepo for testing
type MockBatchRepo struct {
	mock.Mock
}

func (m *MockBatchRepo) Create(ctx context.Context, b *batch.Batch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockBatchRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status batch.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBatchRepo) WithTx(tx pgx.Tx) batch.Repository {
	args := m.Called(tx)
	return args.Get(0).(batch.Repository)
}

// MockProducer for testing
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newPendingMessage(t *testing.T, batchID uuid.UUID) *dispatch.Message {
	t.Helper()

	descriptor := dispatch.FileDescriptor{
		BatchID:       batchID,
		BankCode:      "RJHI",
		FileFormat:    "csv",
		FileReference: "RJHI-" + batchID.String() + ".csv",
		PaymentCount:  2,
		TotalAmount:   decimal.NewFromInt(9000),
		Currency:      "SAR",
		ExpiresAt:     time.Now().Add(48 * time.Hour),
	}
	payload, err := json.Marshal(descriptor)
	require.NoError(t, err)

	return &dispatch.Message{
		ID:        1,
		BatchID:   batchID,
		BankCode:  "RJHI",
		Payload:   payload,
		Status:    dispatch.MessageStatusPending,
		CreatedAt: time.Now(),
	}
}

func TestFilePublisher_PublishFile(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()
	batchID := uuid.New()

	t.Run("publishes descriptor and advances batch", func(t *testing.T) {
		mockDispatchRepo := &MockDispatchRepo{}
		mockBatchRepo := &MockBatchRepo{}
		mockProducer := &MockProducer{}
		publisher := NewFilePublisher(mockDispatchRepo, mockBatchRepo, mockProducer, logger)

		msg := newPendingMessage(t, batchID)

		mockProducer.On("Publish", ctx, batchID.String(), mock.MatchedBy(func(d *dispatch.FileDescriptor) bool {
			return d.BatchID == batchID && d.BankCode == "RJHI"
		})).Return(nil).Once()
		mockBatchRepo.On("GetByID", ctx, batchID).Return(&batch.Batch{ID: batchID, Status: batch.StatusCreated}, nil).Once()
		mockBatchRepo.On("UpdateStatus", ctx, batchID, batch.StatusFileGenerated).Return(nil).Once()
		mockDispatchRepo.On("UpdateStatus", ctx, int64(1), dispatch.MessageStatusProcessed).Return(nil).Once()

		err := publisher.PublishFile(ctx, msg)
		require.NoError(t, err)

		mockProducer.AssertExpectations(t)
		mockBatchRepo.AssertExpectations(t)
		mockDispatchRepo.AssertExpectations(t)
	})

	t.Run("leaves batch status untouched on republish", func(t *testing.T) {
		mockDispatchRepo := &MockDispatchRepo{}
		mockBatchRepo := &MockBatchRepo{}
		mockProducer := &MockProducer{}
		publisher := NewFilePublisher(mockDispatchRepo, mockBatchRepo, mockProducer, logger)

		msg := newPendingMessage(t, batchID)

		mockProducer.On("Publish", ctx, batchID.String(), mock.Anything).Return(nil).Once()
		mockBatchRepo.On("GetByID", ctx, batchID).Return(&batch.Batch{ID: batchID, Status: batch.StatusSentToBank}, nil).Once()
		mockDispatchRepo.On("UpdateStatus", ctx, int64(1), dispatch.MessageStatusProcessed).Return(nil).Once()

		err := publisher.PublishFile(ctx, msg)
		require.NoError(t, err)

		mockBatchRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		mockDispatchRepo.AssertExpectations(t)
	})

	t.Run("malformed payload marked FAILED_TO_PUBLISH", func(t *testing.T) {
		mockDispatchRepo := &MockDispatchRepo{}
		mockBatchRepo := &MockBatchRepo{}
		mockProducer := &MockProducer{}
		publisher := NewFilePublisher(mockDispatchRepo, mockBatchRepo, mockProducer, logger)

		msg := &dispatch.Message{
			ID:      7,
			BatchID: batchID,
			Payload: json.RawMessage(`{not json`),
			Status:  dispatch.MessageStatusPending,
		}

		mockDispatchRepo.On("UpdateStatus", ctx, int64(7), dispatch.MessageStatusFailedToPublish).Return(nil).Once()

		err := publisher.PublishFile(ctx, msg)
		assert.Error(t, err)
		mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		mockDispatchRepo.AssertExpectations(t)
	})

	t.Run("publish failure propagates without status change", func(t *testing.T) {
		mockDispatchRepo := &MockDispatchRepo{}
		mockBatchRepo := &MockBatchRepo{}
		mockProducer := &MockProducer{}
		publisher := NewFilePublisher(mockDispatchRepo, mockBatchRepo, mockProducer, logger)

		msg := newPendingMessage(t, batchID)
		publishErr := errors.New("broker unavailable")

		mockProducer.On("Publish", ctx, batchID.String(), mock.Anything).Return(publishErr).Once()

		err := publisher.PublishFile(ctx, msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, publishErr)
		mockDispatchRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		mockBatchRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}
