package bank

import "errors"

var ErrBankNotFound = errors.New("bank not found in registry")

// FileFormat defines the settlement file format a bank consumes
type FileFormat string

const (
	FileFormatCSV   FileFormat = "CSV"
	FileFormatExcel FileFormat = "XLSX"
	FileFormatXML   FileFormat = "XML"
)

// Extension returns the file name extension for the format
func (f FileFormat) Extension() string {
	switch f {
	case FileFormatCSV:
		return "csv"
	case FileFormatExcel:
		return "xlsx"
	case FileFormatXML:
		return "xml"
	default:
		return "dat"
	}
}

// Definition describes a bank's routing and bulk-settlement parameters.
// Instances are immutable reference data owned by the Registry.
type Definition struct {
	Code                 string
	Name                 string
	IBANPrefix           string // 2-digit bank identifier at positions 5-6 of the IBAN
	AccountNumberLengths []int
	MaxBulkPayments      int
	CutoffTime           string // "HH:MM", local bank time
	FileFormat           FileFormat
	SupportsBulk         bool
}

// AcceptsAccountNumberLength reports whether the bank allows the given BBAN length
func (d *Definition) AcceptsAccountNumberLength(n int) bool {
	for _, l := range d.AccountNumberLengths {
		if l == n {
			return true
		}
	}
	return false
}
