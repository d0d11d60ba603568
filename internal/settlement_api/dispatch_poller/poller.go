package dispatch_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/payroll-settlement-service/internal/config"
	"github.com/payroll-settlement-service/internal/domain/dispatch"
)

// Poller processes pending dispatch outbox messages
type Poller struct {
	dispatchRepo     dispatch.Repository
	filePublisher    FilePublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.DispatchConfig,
	dispatchRepo dispatch.Repository,
	filePublisher FilePublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		dispatchRepo:     dispatchRepo,
		filePublisher:    filePublisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Dispatch Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Dispatch Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Dispatch Poller tick: processing pending messages")
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending dispatch messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.dispatchRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending dispatch messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending dispatch messages found.")
		return nil
	}

	p.logger.Info("Fetched pending dispatch messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger.With("batch_id", msg.BatchID.String())

		err := p.filePublisher.PublishFile(ctx, msg)
		if err != nil {
			logger.Error("Failed to publish dispatch message",
				"outbox_id", msg.ID, "current_attempts", msg.Attempts, "error", err,
			)

			// Increment attempt count
			if errInc := p.dispatchRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				logger.Error("Failed to increment attempts for dispatch message", "outbox_id", msg.ID, "error", errInc)
				// Continue to next message if increment fails
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				logger.Warn("Max retry attempts reached for dispatch message, marking as FAILED_TO_PUBLISH",
					"outbox_id", msg.ID, "attempts_made", msg.Attempts+1,
				)
				if errUpdate := p.dispatchRepo.UpdateStatus(ctx, msg.ID, dispatch.MessageStatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to update dispatch status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", errUpdate)
				}
			}
			continue
		}
		logger.Info("Successfully processed and published dispatch message", "outbox_id", msg.ID)
	}
	return nil
}
