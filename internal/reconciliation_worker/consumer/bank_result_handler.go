package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/payroll-settlement-service/internal/domain/shared"
	"github.com/payroll-settlement-service/internal/platform/messaging/producers"
	"github.com/payroll-settlement-service/internal/reconciliation_worker/service"
)

// BankResultHandler handles incoming bank confirmation messages from Kafka
type BankResultHandler struct {
	reconciliationService service.ReconciliationService
	producer              producers.DeadLetterPublisher
	logger                *slog.Logger
}

// NewBankResultHandler creates a new handler
func NewBankResultHandler(
	logger *slog.Logger,
	reconciliationService service.ReconciliationService,
	producer producers.DeadLetterPublisher,
) *BankResultHandler {
	return &BankResultHandler{
		reconciliationService: reconciliationService,
		producer:              producer,
		logger:                logger,
	}
}

// HandleMessage processes Kafka messages. Poison messages go to the DLQ so
// the partition keeps moving; transient failures return an error so the
// offset stays uncommitted and Kafka redelivers.
func (h *BankResultHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var message shared.BankResultMessage
	if err := json.Unmarshal(value, &message); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal bank result from Kafka message", err)
	}
	if message.BatchID == uuid.Nil {
		return h.deadLetter(ctx, key, value, "Bank result carries no batch id", nil)
	}
	if len(message.Outcomes) == 0 {
		return h.deadLetter(ctx, key, value, "Bank result carries no outcomes", shared.ErrEmptyOutcomes)
	}

	// Add correlation ID to logger
	logger := h.logger
	if message.CorrelationID != "" {
		logger = h.logger.With("correlation_id", message.CorrelationID)
	}

	logger.Info("Received bank result for reconciliation",
		"batch_id", message.BatchID.String(),
		"bank_code", message.BankCode,
		"outcome_count", len(message.Outcomes),
	)

	summary, err := h.reconciliationService.ApplyBankResult(ctx, message.BatchID, message.Outcomes)
	if err != nil {
		logger.Error("Failed to reconcile bank result",
			"batch_id", message.BatchID.String(),
			"error", err,
		)
		return fmt.Errorf("reconciling batch %s failed: %w", message.BatchID.String(), err)
	}

	logger.Info("Successfully reconciled bank result",
		"batch_id", summary.BatchID.String(),
		"batch_status", string(summary.BatchStatus),
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"already_final", summary.AlreadyFinal,
		"pending", summary.Pending,
	)
	return nil // Success, commit offset
}

// deadLetter routes an unprocessable message to the DLQ. Without a DLQ
// producer the error is returned so Kafka retries.
func (h *BankResultHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	h.logger.Error(reason,
		"error", cause,
		"message_key", string(key),
	)

	if h.producer == nil {
		if cause != nil {
			return fmt.Errorf("%s: %w", reason, cause)
		}
		return fmt.Errorf("%s", reason)
	}

	dlqReason := reason
	if cause != nil {
		dlqReason = fmt.Sprintf("%s: %s", reason, cause.Error())
	}
	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"message_key", string(key),
		)
		if cause != nil {
			return fmt.Errorf("%s: %w", reason, cause)
		}
		return fmt.Errorf("%s", reason)
	}

	h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
	// Message handled, commit offset
	return nil
}
