package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/payroll-settlement-service/internal/settlement_api/service"
)

// IBANHandler handles standalone IBAN validation requests
type IBANHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewIBANHandler creates a new IBAN validation handler
func NewIBANHandler(logger *slog.Logger, paymentService service.PaymentService) *IBANHandler {
	return &IBANHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Validate runs the IBAN validator and returns the full validation result.
// The response is 200 regardless of validity; the result carries the codes.
func (h *IBANHandler) Validate(c *gin.Context) {
	var req ValidateIBANRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result := h.paymentService.ValidateIBAN(req.IBAN)
	RespondOK(c, result)
}
