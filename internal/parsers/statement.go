// Package parsers turns raw input into model types: the statement normalizer
// converts bank statement text into bank transactions, and the ledger parser
// loads ledger entry CSV files for the command-line collaborator.
//
// The two sides have opposite failure policies. Statement rows come from a
// user upload and are never rejected; malformed fields degrade to zero values
// and the row stays in the run. Ledger rows come from the internal ledger
// store and are parsed strictly, because bad data there is a defect.
package parsers

import (
	"fmt"
	"strings"

	"bank-reconciliation-core/internal/models"
)

// StatementLayout describes the shape of a statement file. The column order
// is fixed to Date, Description, Amount, Balance; only the delimiter and the
// presence of a header line vary.
//
// Known limitation: rows are split naively on the delimiter, with no quoting
// or escaping. A delimiter inside a description field corrupts the column
// alignment of that row. This matches the upstream statement exports and is
// documented rather than fixed.
type StatementLayout struct {
	// Delimiter separates columns within a row.
	Delimiter string `json:"delimiter" mapstructure:"delimiter"`

	// HasHeader indicates the first line is a header to discard.
	HasHeader bool `json:"has_header" mapstructure:"has_header"`
}

// DefaultStatementLayout returns the layout of the supported statement
// format: comma-delimited with a header line.
func DefaultStatementLayout() *StatementLayout {
	return &StatementLayout{
		Delimiter: ",",
		HasHeader: true,
	}
}

// Validate checks that the layout is usable.
func (sl *StatementLayout) Validate() error {
	if sl.Delimiter == "" {
		return fmt.Errorf("statement delimiter cannot be empty")
	}
	return nil
}

// Column positions in a statement row.
const (
	columnDate = iota
	columnDescription
	columnAmount
	columnBalance
	columnCount
)

// NormalizeStatement converts raw statement text into bank transactions,
// one per data row, in input order.
//
// No row is ever rejected. Missing fields become empty strings, malformed
// amounts and balances become zero, and unparseable dates become the zero
// time (which never matches any ledger entry). Row IDs are "bank_<index>",
// stable within the run only.
func NormalizeStatement(content string, layout *StatementLayout) ([]*models.BankTransaction, error) {
	if layout == nil {
		layout = DefaultStatementLayout()
	}

	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statement layout: %w", err)
	}

	lines := strings.Split(content, "\n")
	if layout.HasHeader && len(lines) > 0 {
		lines = lines[1:]
	}

	transactions := []*models.BankTransaction{}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitRow(line, layout.Delimiter)

		transactions = append(transactions, &models.BankTransaction{
			ID:          fmt.Sprintf("bank_%d", len(transactions)),
			Date:        models.ParseDateLenient(fields[columnDate]),
			Description: fields[columnDescription],
			Amount:      models.ParseAmountLenient(fields[columnAmount]),
			Balance:     models.ParseAmountLenient(fields[columnBalance]),
			Matched:     false,
		})
	}

	return transactions, nil
}

// splitRow splits a statement row on the delimiter, trims every field, and
// pads short rows with empty strings so callers can index columns directly.
func splitRow(line, delimiter string) []string {
	parts := strings.Split(line, delimiter)

	fields := make([]string, columnCount)
	for i := range fields {
		if i < len(parts) {
			fields[i] = strings.TrimSpace(parts[i])
		}
	}
	return fields
}
