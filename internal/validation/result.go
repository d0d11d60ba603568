// Package validation implements the IBAN validation engine and the
// per-payment eligibility checks that gate batch candidacy. Validation
// outcomes are always returned as data, never as errors: a malformed input
// yields a Result with IsValid=false and populated error codes.
package validation

// Error and warning codes returned in a Result
const (
	CodeIBANEmpty            = "IBAN_EMPTY"
	CodeIBANInvalidLength    = "IBAN_INVALID_LENGTH"
	CodeIBANInvalidCountry   = "IBAN_INVALID_COUNTRY"
	CodeIBANInvalidCharacter = "IBAN_INVALID_CHARACTER"
	CodeIBANChecksumFailed   = "IBAN_CHECKSUM_FAILED"
	CodeUnknownBankPrefix    = "UNKNOWN_BANK_PREFIX"
	CodePaymentNotReady      = "PAYMENT_NOT_READY"
	CodeAmountNotPositive    = "AMOUNT_NOT_POSITIVE"
	CodeBulkNotSupported     = "BULK_NOT_SUPPORTED"
	CodeDuplicateCandidate   = "DUPLICATE_CANDIDATE"
)

// Result is the outcome of a validation call. It is transient: produced per
// call and never persisted.
type Result struct {
	IsValid       bool     `json:"is_valid"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
	BankCode      string   `json:"bank_code,omitempty"`
	IBAN          string   `json:"iban,omitempty"` // canonical form: unspaced uppercase
	AccountNumber string   `json:"account_number,omitempty"`
}

func (r *Result) addError(code string) {
	r.IsValid = false
	r.Errors = append(r.Errors, code)
}

func (r *Result) addWarning(code string) {
	r.Warnings = append(r.Warnings, code)
}
