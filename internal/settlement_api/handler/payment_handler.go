package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/settlement_api/service"
)

// PaymentHandler handles HTTP requests for payment operations
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Create registers a new salary payment. The IBAN is validated at intake;
// structural failures return 422 with the validation codes.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		h.logger.Error("Invalid employee ID", "employee_id", req.EmployeeID, "error", err)
		RespondBadRequest(c, "Invalid employee ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.logger.Error("Invalid amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "Invalid amount")
		return
	}
	if !amount.IsPositive() {
		RespondBadRequest(c, "Amount must be positive")
		return
	}

	p, result, err := h.paymentService.CreatePayment(c.Request.Context(), employeeID, amount, req.IBAN)
	if err != nil {
		h.logger.Error("Failed to create payment", "error", err)
		RespondInternalError(c)
		return
	}
	if p == nil {
		RespondWithData(c, http.StatusUnprocessableEntity, result)
		return
	}

	RespondCreated(c, mapPaymentToResponse(p))
}

// GetByID retrieves a payment by its ID, returning 404 if not found
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := parsePaymentID(c, h.logger)
	if !ok {
		return
	}

	p, err := h.paymentService.GetPaymentByID(c.Request.Context(), id)
	if err != nil {
		var notFound payment.ErrPaymentNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Payment not found")
			return
		}
		h.logger.Error("Failed to get payment", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapPaymentToResponse(p))
}

// GetTimeline retrieves the payment's audit timeline in chronological order
func (h *PaymentHandler) GetTimeline(c *gin.Context) {
	id, ok := parsePaymentID(c, h.logger)
	if !ok {
		return
	}

	events, err := h.paymentService.GetTimeline(c.Request.Context(), id)
	if err != nil {
		var notFound payment.ErrPaymentNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Payment not found")
			return
		}
		h.logger.Error("Failed to get payment timeline", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"payment_id": id.String(), "events": events})
}

// Cancel cancels a payment from any non-terminal state, returning 409 when
// the payment has already reached a terminal state
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, ok := parsePaymentID(c, h.logger)
	if !ok {
		return
	}

	p, err := h.paymentService.CancelPayment(c.Request.Context(), id)
	if err != nil {
		var notFound payment.ErrPaymentNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Payment not found")
			return
		}
		var illegal payment.IllegalTransitionError
		if errors.As(err, &illegal) {
			RespondConflict(c, "Payment cannot be cancelled from status "+string(illegal.From))
			return
		}
		h.logger.Error("Failed to cancel payment", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapPaymentToResponse(p))
}

func parsePaymentID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid payment ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid payment ID")
		return uuid.Nil, false
	}
	return id, true
}
