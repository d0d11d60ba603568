package dispatch_poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/payroll-settlement-service/internal/config"
	"github.com/payroll-settlement-service/internal/domain/dispatch"
)

// MockFilePublisher for testing
type MockFilePublisher struct {
	mock.Mock
}

func (m *MockFilePublisher) PublishFile(ctx context.Context, message *dispatch.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	logger := slog.Default()

	cfg := &config.DispatchConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	message1 := &dispatch.Message{
		ID:        1,
		BatchID:   uuid.New(),
		Status:    dispatch.MessageStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}

	message2 := &dispatch.Message{
		ID:        2,
		BatchID:   uuid.New(),
		Status:    dispatch.MessageStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func(repo *MockDispatchRepo, publisher *MockFilePublisher)
		expectedError error
	}{
		{
			name: "successful processing of pending messages",
			setupMocks: func(repo *MockDispatchRepo, publisher *MockFilePublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*dispatch.Message{message1, message2}, nil).Once()

				publisher.On("PublishFile", mock.Anything, message1).Return(nil).Once()
				publisher.On("PublishFile", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error getting pending messages",
			setupMocks: func(repo *MockDispatchRepo, publisher *MockFilePublisher) {
				repo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to get pending dispatch messages"),
		},
		{
			name: "no pending messages",
			setupMocks: func(repo *MockDispatchRepo, publisher *MockFilePublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*dispatch.Message{}, nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error publishing one message",
			setupMocks: func(repo *MockDispatchRepo, publisher *MockFilePublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*dispatch.Message{message1, message2}, nil).Once()

				publisher.On("PublishFile", mock.Anything, message1).Return(errors.New("publish error")).Once()

				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()

				publisher.On("PublishFile", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "max retry attempts reached",
			setupMocks: func(repo *MockDispatchRepo, publisher *MockFilePublisher) {
				maxAttemptsMessage := &dispatch.Message{
					ID:        3,
					BatchID:   uuid.New(),
					Status:    dispatch.MessageStatusPending,
					Attempts:  2,
					CreatedAt: time.Now(),
				}

				repo.On("GetPending", mock.Anything, 10).Return([]*dispatch.Message{maxAttemptsMessage}, nil).Once()

				publisher.On("PublishFile", mock.Anything, maxAttemptsMessage).Return(errors.New("publish error")).Once()

				repo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()

				repo.On("UpdateStatus", mock.Anything, int64(3), dispatch.MessageStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDispatchRepo := &MockDispatchRepo{}
			mockFilePublisher := &MockFilePublisher{}
			poller := NewPoller(cfg, mockDispatchRepo, mockFilePublisher, logger)

			tt.setupMocks(mockDispatchRepo, mockFilePublisher)
			ctx := context.Background()

			err := poller.processPendingMessages(ctx)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockDispatchRepo.AssertExpectations(t)
			mockFilePublisher.AssertExpectations(t)
		})
	}
}

func TestPoller_Start(t *testing.T) {
	mockDispatchRepo := &MockDispatchRepo{}
	mockFilePublisher := &MockFilePublisher{}
	logger := slog.Default()

	cfg := &config.DispatchConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	poller := NewPoller(cfg, mockDispatchRepo, mockFilePublisher, logger)

	mockDispatchRepo.On("GetPending", mock.Anything, 10).Return([]*dispatch.Message{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go poller.Start(ctx)

	<-ctx.Done()

	assert.True(t, true)
}
