package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"bank-reconciliation-core/internal/models"

	apperrors "bank-reconciliation-core/pkg/errors"

	"github.com/shopspring/decimal"
)

// ledgerHeaderAliases maps ledger CSV header names to entry fields. The
// reference export uses lower camel case headers; aliases cover the common
// variants.
var ledgerHeaderAliases = map[string]string{
	"id":             "id",
	"entry_id":       "id",
	"date":           "date",
	"entry_date":     "date",
	"description":    "description",
	"memo":           "description",
	"debitaccount":   "debitAccount",
	"debit_account":  "debitAccount",
	"debit":          "debitAccount",
	"creditaccount":  "creditAccount",
	"credit_account": "creditAccount",
	"credit":         "creditAccount",
	"amount":         "amount",
	"amt":            "amount",
}

// LedgerParser loads ledger entries from CSV files on behalf of the CLI.
// It stands in for the ledger store the reconciliation core normally receives
// entries from; the core itself never reads files.
//
// Unlike statement normalization, ledger parsing is strict: a row that cannot
// be parsed fails the whole load with a categorized error.
type LedgerParser struct {
	delimiter rune
}

// NewLedgerParser creates a ledger CSV parser.
func NewLedgerParser() *LedgerParser {
	return &LedgerParser{delimiter: ','}
}

// ParseFile loads ledger entries from a CSV file, in file order.
func (lp *LedgerParser) ParseFile(path string) ([]*models.LedgerEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileUnreadable, path, err)
	}
	defer file.Close()

	entries, err := lp.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger file %s: %w", path, err)
	}
	return entries, nil
}

// Parse loads ledger entries from a CSV stream. The first record must be a
// header naming at least id, date, debit account, credit account, and amount
// columns; description is optional.
func (lp *LedgerParser) Parse(r io.Reader) ([]*models.LedgerEntry, error) {
	reader := csv.NewReader(r)
	reader.Comma = lp.delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []*models.LedgerEntry{}, nil
		}
		return nil, apperrors.ParseError(apperrors.CodeInvalidFormat, 1, "failed to read ledger header", err)
	}

	columns, err := resolveLedgerColumns(header)
	if err != nil {
		return nil, err
	}

	entries := []*models.LedgerEntry{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, apperrors.ParseError(apperrors.CodeInvalidFormat, line, "failed to read ledger record", err)
		}

		entry, err := lp.entryFromRecord(record, columns, line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// resolveLedgerColumns maps header names to field positions using the alias
// table. Missing required columns fail the load.
func resolveLedgerColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if field, ok := ledgerHeaderAliases[key]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}

	for _, required := range []string{"id", "date", "debitAccount", "creditAccount", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, apperrors.ParseError(apperrors.CodeMissingColumn, 1,
				fmt.Sprintf("ledger header is missing required column %q", required), nil)
		}
	}

	return columns, nil
}

func (lp *LedgerParser) entryFromRecord(record []string, columns map[string]int, line int) (*models.LedgerEntry, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id := field("id")
	if id == "" {
		return nil, apperrors.ParseError(apperrors.CodeInvalidData, line, "ledger entry id cannot be empty", nil)
	}

	date, ok := models.ParseDate(field("date"))
	if !ok {
		return nil, apperrors.ParseError(apperrors.CodeInvalidData, line,
			fmt.Sprintf("unparseable ledger date %q", field("date")), nil)
	}

	amountStr := field("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, apperrors.ParseError(apperrors.CodeInvalidData, line,
			fmt.Sprintf("unparseable ledger amount %q", amountStr), err)
	}
	if amount.IsNegative() {
		return nil, apperrors.ParseError(apperrors.CodeInvalidData, line,
			fmt.Sprintf("ledger amounts are unsigned magnitudes, got %q", amountStr), nil)
	}

	return &models.LedgerEntry{
		ID:            id,
		Date:          date,
		Description:   field("description"),
		DebitAccount:  field("debitAccount"),
		CreditAccount: field("creditAccount"),
		Amount:        amount,
	}, nil
}
