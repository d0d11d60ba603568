package validation

import (
	"strings"

	"github.com/payroll-settlement-service/internal/domain/bank"
)

const (
	countryCode = "SA"
	ibanLength  = 24 // 2 country + 2 check digits + 20 BBAN (Saudi format)

	// bank identifier occupies positions 5-6 of the canonical IBAN
	bankPrefixStart = 4
	bankPrefixEnd   = 6
)

// IBANValidator performs structural and checksum validation of Saudi-format
// IBANs and resolves the embedded bank identifier against the registry.
type IBANValidator struct {
	registry *bank.Registry
}

// NewIBANValidator creates a validator backed by the given bank registry
func NewIBANValidator(registry *bank.Registry) *IBANValidator {
	return &IBANValidator{registry: registry}
}

// Normalize strips all whitespace and uppercases the input. The canonical
// stored form of an IBAN is unspaced uppercase.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Validate checks the raw IBAN and resolves its bank. It never returns an
// error value: malformed input produces a Result with IsValid=false.
func (v *IBANValidator) Validate(raw string) *Result {
	result := &Result{IsValid: true}

	iban := Normalize(raw)
	result.IBAN = iban

	if iban == "" {
		result.addError(CodeIBANEmpty)
		return result
	}
	if len(iban) != ibanLength {
		result.addError(CodeIBANInvalidLength)
		return result
	}
	if !strings.HasPrefix(iban, countryCode) {
		result.addError(CodeIBANInvalidCountry)
		return result
	}
	for i := 2; i < len(iban); i++ {
		c := iban[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			result.addError(CodeIBANInvalidCharacter)
			return result
		}
	}

	if mod97(rearrange(iban)) != 1 {
		result.addError(CodeIBANChecksumFailed)
		return result
	}

	prefix := iban[bankPrefixStart:bankPrefixEnd]
	result.AccountNumber = iban[bankPrefixEnd:]

	def, err := v.registry.LookupByPrefix(prefix)
	if err != nil {
		// Structurally valid but unrecognized bank: a warning, not a failure
		result.addWarning(CodeUnknownBankPrefix)
		result.Suggestions = v.suggestPrefix(prefix)
		return result
	}

	result.BankCode = def.Code
	return result
}

// rearrange moves the country code and check digits to the end and expands
// letters to their base-36 numeric value (A=10 .. Z=35), producing the digit
// string checked by ISO 7064 MOD-97-10.
func rearrange(iban string) string {
	rotated := iban[4:] + iban[:4]
	var b strings.Builder
	b.Grow(len(rotated) * 2)
	for i := 0; i < len(rotated); i++ {
		c := rotated[i]
		if c >= 'A' && c <= 'Z' {
			n := int(c-'A') + 10
			b.WriteByte(byte('0' + n/10))
			b.WriteByte(byte('0' + n%10))
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// mod97 computes the MOD-97 remainder of a decimal digit string, consuming
// it left to right in fixed-size chunks so the running value never leaves
// int64 range. For each chunk of k digits: rem = (rem*10^k + chunk) mod 97.
func mod97(digits string) int64 {
	const chunkSize = 9

	var rem int64
	for start := 0; start < len(digits); start += chunkSize {
		end := start + chunkSize
		if end > len(digits) {
			end = len(digits)
		}
		chunk := digits[start:end]

		var value int64
		for i := 0; i < len(chunk); i++ {
			value = value*10 + int64(chunk[i]-'0')
		}

		scale := int64(1)
		for i := 0; i < len(chunk); i++ {
			scale *= 10
		}

		rem = (rem*scale + value) % 97
	}
	return rem
}

// suggestPrefix finds known bank prefixes within a single-digit edit of the
// unrecognized one ("did you mean bank X").
func (v *IBANValidator) suggestPrefix(prefix string) []string {
	var suggestions []string
	for _, known := range v.registry.Prefixes() {
		if len(known) != len(prefix) {
			continue
		}
		diff := 0
		for i := 0; i < len(known); i++ {
			if known[i] != prefix[i] {
				diff++
			}
		}
		if diff == 1 {
			if def, err := v.registry.LookupByPrefix(known); err == nil {
				suggestions = append(suggestions, "did you mean bank "+def.Name+" (prefix "+known+")")
			}
		}
	}
	return suggestions
}
