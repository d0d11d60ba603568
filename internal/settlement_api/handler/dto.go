package handler

import (
	"time"

	"github.com/payroll-settlement-service/internal/domain/batch"
	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/settlement_api/service"
)

// CreatePaymentRequest represents a request to register a salary payment
type CreatePaymentRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	Amount     string `json:"amount" binding:"required"`
	IBAN       string `json:"iban" binding:"required"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	BankCode      string `json:"bank_code,omitempty"`
	IBAN          string `json:"iban"`
	AccountNumber string `json:"account_number,omitempty"`
	BatchID       string `json:"batch_id,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
	ProcessedAt   string `json:"processed_at,omitempty"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

// ValidateIBANRequest represents a request to validate an IBAN
type ValidateIBANRequest struct {
	IBAN string `json:"iban"`
}

// CreateBatchRequest represents a request to build a settlement batch
type CreateBatchRequest struct {
	BankCode   string   `json:"bank_code" binding:"required"`
	PaymentIDs []string `json:"payment_ids" binding:"required,min=1,dive,uuid"`
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID               string `json:"id"`
	BankCode         string `json:"bank_code"`
	Status           string `json:"status"`
	PaymentCount     int    `json:"payment_count"`
	TotalAmount      string `json:"total_amount"`
	FileReference    string `json:"file_reference"`
	DeferredDispatch bool   `json:"deferred_dispatch"`
	CreatedAt        string `json:"created_at"`
	ExpiresAt        string `json:"expires_at"`
}

// CreateBatchResponse represents the outcome of a batch creation
type CreateBatchResponse struct {
	Batch         BatchResponse             `json:"batch"`
	DeferredCount int                       `json:"deferred_count"`
	Excluded      []service.ExcludedPayment `json:"excluded,omitempty"`
}

// mapPaymentToResponse maps a payment entity to a payment response DTO
func mapPaymentToResponse(p *payment.Payment) PaymentResponse {
	response := PaymentResponse{
		ID:            p.ID.String(),
		EmployeeID:    p.EmployeeID.String(),
		Amount:        p.Amount.String(),
		Currency:      p.Currency,
		Status:        string(p.Status),
		BankCode:      p.BankCode,
		IBAN:          p.IBAN,
		AccountNumber: p.AccountNumber,
		ErrorMessage:  p.ErrorMessage,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}

	if p.BatchID != nil {
		response.BatchID = p.BatchID.String()
	}
	if p.ProcessedAt != nil {
		response.ProcessedAt = p.ProcessedAt.Format(time.RFC3339)
	}
	if p.CompletedAt != nil {
		response.CompletedAt = p.CompletedAt.Format(time.RFC3339)
	}

	return response
}

// mapBatchToResponse maps a batch entity to a batch response DTO
func mapBatchToResponse(b *batch.Batch) BatchResponse {
	return BatchResponse{
		ID:               b.ID.String(),
		BankCode:         b.BankCode,
		Status:           string(b.Status),
		PaymentCount:     b.PaymentCount(),
		TotalAmount:      b.TotalAmount.String(),
		FileReference:    b.FileReference,
		DeferredDispatch: b.DeferredDispatch,
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
		ExpiresAt:        b.ExpiresAt.Format(time.RFC3339),
	}
}
