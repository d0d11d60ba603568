package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payroll-settlement-service/internal/domain/payment"
	"github.com/payroll-settlement-service/internal/validation"
)

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	paymentRepo   payment.Repository
	timelineRepo  payment.TimelineRepository
	ibanValidator *validation.IBANValidator
	actor         string
	logger        *slog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	logger *slog.Logger,
	paymentRepo payment.Repository,
	timelineRepo payment.TimelineRepository,
	ibanValidator *validation.IBANValidator,
	actor string,
) PaymentService {
	return &PaymentServiceImpl{
		paymentRepo:   paymentRepo,
		timelineRepo:  timelineRepo,
		ibanValidator: ibanValidator,
		actor:         actor,
		logger:        logger,
	}
}

// CreatePayment validates the IBAN, canonicalizes it and stores the payment
// in READY_FOR_PAYMENT. A payment with an unknown bank prefix is stored with
// an empty bank code; it stays out of batches until the registry learns the
// prefix.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, employeeID uuid.UUID, amount decimal.Decimal, iban string) (*payment.Payment, *validation.Result, error) {
	result := s.ibanValidator.Validate(iban)
	if !result.IsValid {
		s.logger.Info("Payment rejected at intake: IBAN validation failed",
			"employee_id", employeeID.String(),
			"codes", result.Errors,
		)
		return nil, result, nil
	}

	p, err := payment.NewPayment(employeeID, amount, result.IBAN, result.AccountNumber, result.BankCode)
	if err != nil {
		return nil, result, err
	}

	if err := s.paymentRepo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to store payment",
			"payment_id", p.ID.String(),
			"employee_id", employeeID.String(),
			"error", err,
		)
		return nil, result, err
	}

	s.logger.Info("Payment created",
		"payment_id", p.ID.String(),
		"employee_id", employeeID.String(),
		"bank_code", p.BankCode,
		"amount", p.Amount.String(),
	)
	return p, result, nil
}

// GetPaymentByID retrieves a payment by its ID
func (s *PaymentServiceImpl) GetPaymentByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

// GetTimeline retrieves the payment's audit timeline in chronological order.
// The payment must exist; the timeline itself may be empty.
func (s *PaymentServiceImpl) GetTimeline(ctx context.Context, paymentID uuid.UUID) ([]*payment.TimelineEvent, error) {
	if _, err := s.paymentRepo.GetByID(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.timelineRepo.GetByPaymentID(ctx, paymentID)
}

// CancelPayment cancels a payment from any non-terminal state
func (s *PaymentServiceImpl) CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event, err := p.Cancel(s.actor)
	if err != nil {
		s.logger.Info("Cancel rejected", "payment_id", id.String(), "status", string(p.Status))
		return nil, err
	}

	if err := s.paymentRepo.UpdateStatus(ctx, p); err != nil {
		return nil, err
	}

	if err := s.timelineRepo.Append(ctx, event); err != nil {
		// Audit write is best-effort; the cancellation itself is committed.
		s.logger.Error("Failed to append cancellation timeline event",
			"payment_id", id.String(),
			"error", err,
		)
	}

	s.logger.Info("Payment cancelled", "payment_id", id.String())
	return p, nil
}

// ValidateIBAN runs the IBAN validator without touching any payment
func (s *PaymentServiceImpl) ValidateIBAN(iban string) *validation.Result {
	return s.ibanValidator.Validate(iban)
}
