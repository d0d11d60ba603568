package payment

import "fmt"

// Status defines the payment settlement states
type Status string

const (
	StatusReadyForPayment   Status = "READY_FOR_PAYMENT"
	StatusBankFileGenerated Status = "BANK_FILE_GENERATED"
	StatusSentToBank        Status = "SENT_TO_BANK"
	StatusBankProcessing    Status = "BANK_PROCESSING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
	StatusCancelled         Status = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible from s
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the seven known payment states
func (s Status) Valid() bool {
	switch s {
	case StatusReadyForPayment, StatusBankFileGenerated, StatusSentToBank,
		StatusBankProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IllegalTransitionError indicates a state machine contract violation.
// It is treated as a caller defect, not a validation outcome.
type IllegalTransitionError struct {
	PaymentID string
	From      Status
	To        Status
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal payment transition %s -> %s for payment %s", e.From, e.To, e.PaymentID)
}
