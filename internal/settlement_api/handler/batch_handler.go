package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/payroll-settlement-service/internal/domain/bank"
	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/settlement_api/service"
)

// BatchHandler handles HTTP requests for settlement batch operations
type BatchHandler struct {
	batchService service.BatchService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(logger *slog.Logger, batchService service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// Create builds a settlement batch from the candidate payments
func (h *BatchHandler) Create(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	paymentIDs := make([]uuid.UUID, 0, len(req.PaymentIDs))
	for _, raw := range req.PaymentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid payment ID: "+raw)
			return
		}
		paymentIDs = append(paymentIDs, id)
	}

	result, err := h.batchService.CreateBatch(c.Request.Context(), req.BankCode, paymentIDs)
	if err != nil {
		if errors.Is(err, bank.ErrBankNotFound) {
			RespondBadRequest(c, "Unknown bank code: "+req.BankCode)
			return
		}
		if errors.Is(err, batch.ErrEmptyBatch) {
			RespondUnprocessable(c, "EMPTY_BATCH", "No eligible payments for batch")
			return
		}
		var partial batch.PartialAssignmentError
		if errors.As(err, &partial) {
			h.logger.Warn("Batch creation lost a payment claim race",
				"payment_id", partial.PaymentID.String(),
				"error", err,
			)
			RespondConflict(c, "Payment "+partial.PaymentID.String()+" was claimed by another batch")
			return
		}
		h.logger.Error("Failed to create batch", "bank_code", req.BankCode, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, CreateBatchResponse{
		Batch:         mapBatchToResponse(result.Batch),
		DeferredCount: result.DeferredCount,
		Excluded:      result.Excluded,
	})
}

// GetByID retrieves a batch by its ID, returning 404 if not found
func (h *BatchHandler) GetByID(c *gin.Context) {
	id, ok := parseBatchID(c, h.logger)
	if !ok {
		return
	}

	b, err := h.batchService.GetBatchByID(c.Request.Context(), id)
	if err != nil {
		h.respondBatchError(c, id, err)
		return
	}

	RespondOK(c, mapBatchToResponse(b))
}

// GetPayments retrieves the payments claimed by a batch
func (h *BatchHandler) GetPayments(c *gin.Context) {
	id, ok := parseBatchID(c, h.logger)
	if !ok {
		return
	}

	payments, err := h.batchService.GetBatchPayments(c.Request.Context(), id)
	if err != nil {
		h.respondBatchError(c, id, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		responses = append(responses, mapPaymentToResponse(p))
	}

	RespondOK(c, gin.H{"batch_id": id.String(), "payments": responses})
}

// Dispatch records the handoff of the settlement file to the bank
func (h *BatchHandler) Dispatch(c *gin.Context) {
	h.advance(c, h.batchService.DispatchBatch)
}

// Acknowledge records the bank's receipt confirmation
func (h *BatchHandler) Acknowledge(c *gin.Context) {
	h.advance(c, h.batchService.AcknowledgeBatch)
}

// advance runs a batch lifecycle operation, mapping state machine rejections
// to 409 Conflict
func (h *BatchHandler) advance(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*batch.Batch, error)) {
	id, ok := parseBatchID(c, h.logger)
	if !ok {
		return
	}

	b, err := op(c.Request.Context(), id)
	if err != nil {
		var illegalBatch batch.ErrIllegalBatchTransition
		if errors.As(err, &illegalBatch) {
			RespondConflict(c, "Batch cannot move from "+string(illegalBatch.From)+" to "+string(illegalBatch.To))
			return
		}
		var illegalPayment payment.IllegalTransitionError
		if errors.As(err, &illegalPayment) {
			RespondConflict(c, "Payment "+illegalPayment.PaymentID+" cannot move to "+string(illegalPayment.To))
			return
		}
		h.respondBatchError(c, id, err)
		return
	}

	RespondOK(c, mapBatchToResponse(b))
}

func parseBatchID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid batch ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid batch ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *BatchHandler) respondBatchError(c *gin.Context, id uuid.UUID, err error) {
	var notFound batch.ErrBatchNotFound
	if errors.As(err, &notFound) {
		RespondNotFound(c, "Batch not found")
		return
	}
	h.logger.Error("Batch operation failed", "id", id.String(), "error", err)
	RespondInternalError(c)
}
