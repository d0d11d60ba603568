package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payroll-settlement-service/internal/domain/bank"
	"github.com/payroll-settlement-service/internal/domain/payment"
)

// DuplicateChecker reports whether another payment with the same employee,
// amount and creation date is already claimed by a non-terminal batch. It
// guards against accidental double submission of the same salary run.
type DuplicateChecker interface {
	HasDuplicateCandidate(ctx context.Context, excludeID, employeeID uuid.UUID, amount decimal.Decimal, day time.Time) (bool, error)
}

// EligibilityValidator runs the business-rule checks a payment must pass
// before batch inclusion. A failing payment is excluded from candidacy but
// left in READY_FOR_PAYMENT so it can be corrected and resubmitted.
type EligibilityValidator struct {
	ibanValidator *IBANValidator
	registry      *bank.Registry
	duplicates    DuplicateChecker
}

// NewEligibilityValidator creates an eligibility validator
func NewEligibilityValidator(ibanValidator *IBANValidator, registry *bank.Registry, duplicates DuplicateChecker) *EligibilityValidator {
	return &EligibilityValidator{
		ibanValidator: ibanValidator,
		registry:      registry,
		duplicates:    duplicates,
	}
}

// Check validates the payment for inclusion in a batch of batchSize payments.
// Checks run in order and short-circuit on structural IBAN failure. The
// returned error reports infrastructure failure only; rule outcomes are
// carried in the Result.
func (e *EligibilityValidator) Check(ctx context.Context, p *payment.Payment, batchSize int) (*Result, error) {
	result := e.ibanValidator.Validate(p.IBAN)
	if !result.IsValid {
		return result, nil
	}

	if p.Status != payment.StatusReadyForPayment {
		result.addError(CodePaymentNotReady)
	}
	if !p.Amount.IsPositive() {
		result.addError(CodeAmountNotPositive)
	}

	if batchSize > 1 && result.BankCode != "" {
		def, err := e.registry.Lookup(result.BankCode)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bank %s: %w", result.BankCode, err)
		}
		if !def.SupportsBulk {
			result.addError(CodeBulkNotSupported)
		}
	}

	day := p.CreatedAt.UTC().Truncate(24 * time.Hour)
	duplicate, err := e.duplicates.HasDuplicateCandidate(ctx, p.ID, p.EmployeeID, p.Amount, day)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed for payment %s: %w", p.ID, err)
	}
	if duplicate {
		result.addError(CodeDuplicateCandidate)
	}

	return result, nil
}
