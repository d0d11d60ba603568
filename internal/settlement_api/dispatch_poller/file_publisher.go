package dispatch_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/dispatch"
	"github.com/payroll-settlement-service/internal/platform/messaging/producers"
)

// FilePublisher publishes outbox file descriptors to the dispatch topic
type FilePublisher interface {
	PublishFile(ctx context.Context, message *dispatch.Message) error
}

// FilePublisherImpl implements FilePublisher
type FilePublisherImpl struct {
	dispatchRepo dispatch.Repository
	batchRepo    batch.Repository
	producer     producers.MessagePublisher
	logger       *slog.Logger
}

// NewFilePublisher creates a new publisher
func NewFilePublisher(
	dispatchRepo dispatch.Repository,
	batchRepo batch.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) FilePublisher {
	return &FilePublisherImpl{
		dispatchRepo: dispatchRepo,
		batchRepo:    batchRepo,
		producer:     producer,
		logger:       logger,
	}
}

// PublishFile publishes a file descriptor to the dispatch topic and advances
// the owning batch to FILE_GENERATED. Malformed payloads are marked
// FAILED_TO_PUBLISH immediately since retrying cannot fix them.
func (p *FilePublisherImpl) PublishFile(ctx context.Context, message *dispatch.Message) error {
	descriptor, err := message.GetFileDescriptor()
	if err != nil {
		p.logger.Error("Failed to unmarshal file descriptor from outbox payload",
			"outbox_id", message.ID, "batch_id", message.BatchID.String(), "error", err,
		)
		if updateErr := p.dispatchRepo.UpdateStatus(ctx, message.ID, dispatch.MessageStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger.With("batch_id", message.BatchID.String(), "file_reference", descriptor.FileReference)
	logger.Info("Attempting to publish file descriptor to dispatch topic", "outbox_id", message.ID)

	if err := p.producer.Publish(ctx, message.BatchID.String(), descriptor); err != nil {
		return fmt.Errorf("failed to publish file descriptor for batch %s: %w", message.BatchID, err)
	}

	b, err := p.batchRepo.GetByID(ctx, message.BatchID)
	if err != nil {
		logger.Error("Failed to load batch after publishing file descriptor", "error", err)
		return fmt.Errorf("failed to load batch %s after publish: %w", message.BatchID, err)
	}

	if b.Status == batch.StatusCreated {
		if err := p.batchRepo.UpdateStatus(ctx, b.ID, batch.StatusFileGenerated); err != nil {
			logger.Error("Failed to advance batch to FILE_GENERATED", "error", err)
			return fmt.Errorf("failed to advance batch %s to FILE_GENERATED: %w", b.ID, err)
		}
		logger.Info("Batch advanced to FILE_GENERATED")
	} else {
		// Republish after a partial failure: the batch already moved on.
		logger.Info("Batch already past CREATED, leaving status untouched", "status", string(b.Status))
	}

	// Mark outbox message as processed
	if err := p.dispatchRepo.UpdateStatus(ctx, message.ID, dispatch.MessageStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "error", err,
		)
		return fmt.Errorf("publish for batch %s OK, but failed to mark outbox %d as PROCESSED: %w", message.BatchID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID)
	return nil
}
