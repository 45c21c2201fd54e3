// Package models defines the data types exchanged between the reconciliation
// components: bank transactions produced from statement rows, ledger entries
// supplied by the external ledger store, and the report the session assembles.
//
// Parsing helpers in this package follow a deliberate "never block the user"
// policy for statement data: malformed numeric fields become zero and
// unparseable dates become the zero time instead of raising errors. A row with
// a zero date simply never matches any ledger entry.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction represents one row of an externally supplied bank statement.
//
// Instances are created by the statement normalizer and mutated only by the
// matcher, which sets Matched and MatchedEntryID. The ID is stable within a
// single reconciliation run ("bank_<row index>") but not globally unique.
type BankTransaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`

	Matched        bool   `json:"matched"`
	MatchedEntryID string `json:"matchedEntryId,omitempty"`
}

// AbsAmount returns the unsigned magnitude of the transaction amount.
// Statement amounts are signed (negative for outflows); ledger entry amounts
// are unsigned, so comparisons always use the absolute value.
func (bt *BankTransaction) AbsAmount() decimal.Decimal {
	return bt.Amount.Abs()
}

// HasValidDate reports whether the statement row carried a parseable date.
func (bt *BankTransaction) HasValidDate() bool {
	return !bt.Date.IsZero()
}

// SameRow reports whether another transaction is an exact repeat of this one:
// identical date, amount, and description. Used by duplicate detection.
func (bt *BankTransaction) SameRow(other *BankTransaction) bool {
	if other == nil {
		return false
	}
	return bt.Date.Equal(other.Date) &&
		bt.Amount.Equal(other.Amount) &&
		bt.Description == other.Description
}

// LedgerEntry is an internally recorded double-entry bookkeeping record.
// Entries are owned by the external ledger store and are read-only to the
// reconciliation core; the core must never mutate the supplied collection.
type LedgerEntry struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	DebitAccount  string          `json:"debitAccount"`
	CreditAccount string          `json:"creditAccount"`
	Amount        decimal.Decimal `json:"amount"`
}

// TouchesAccount reports whether the entry's debit or credit account contains
// any of the given keywords as a case-insensitive substring. The cash/bank
// keyword set lives in the matching policy, not here.
func (le *LedgerEntry) TouchesAccount(keywords []string) bool {
	debit := strings.ToLower(le.DebitAccount)
	credit := strings.ToLower(le.CreditAccount)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(debit, kw) || strings.Contains(credit, kw) {
			return true
		}
	}
	return false
}

// AmountDiscrepancy pairs a matched bank transaction with its ledger entry
// when their amounts differ by more than the configured tolerance.
type AmountDiscrepancy struct {
	Transaction *BankTransaction `json:"bank"`
	Entry       *LedgerEntry     `json:"ledger"`
	Difference  decimal.Decimal  `json:"difference"`
}

// ReconciliationReport is the derived, read-only result of one reconciliation
// run. It is built once by the session and immutable after completion.
//
// MatchedTransactions holds every statement row in input order with its match
// fields populated; the consumer presents the matched/unmatched split from
// this single list.
type ReconciliationReport struct {
	MatchedTransactions []*BankTransaction  `json:"matchedTransactions"`
	Duplicates          []*BankTransaction  `json:"duplicates"`
	MissingEntries      []*LedgerEntry      `json:"missingEntries"`
	AmountDiscrepancies []AmountDiscrepancy `json:"amountDiscrepancies"`
}

// statementDateFormats are the layouts attempted, in order, when parsing
// statement and ledger dates.
var statementDateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
}

// ParseAmountLenient parses a decimal amount from a statement field. Currency
// symbols and thousands separators are stripped first. Any parse failure
// yields decimal.Zero rather than an error; a malformed amount must not cause
// the row to be rejected.
func ParseAmountLenient(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDateLenient parses a date from a statement field, trying the common
// layouts in order. Failure yields the zero time; such a row surfaces as
// unmatched instead of erroring.
func ParseDateLenient(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range statementDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseDate parses a ledger date strictly, trying the same layouts as
// ParseDateLenient but reporting failure to the caller. The ledger store is
// internal data; a bad date there is a defect, not user input to tolerate.
func ParseDate(s string) (time.Time, bool) {
	t := ParseDateLenient(s)
	return t, !t.IsZero()
}

// AmountsWithinEpsilon reports whether an unsigned ledger amount and a signed
// bank amount describe the same value: |entry - |bank|| < epsilon. The bound
// is strictly open; a difference exactly equal to epsilon does not match.
func AmountsWithinEpsilon(entryAmount, bankAmount, epsilon decimal.Decimal) bool {
	diff := entryAmount.Sub(bankAmount.Abs()).Abs()
	return diff.LessThan(epsilon)
}

// DatesWithinWindow reports whether two dates are at most window apart as an
// absolute duration. The bound is closed: exactly window apart still matches.
// A zero time on either side never matches.
func DatesWithinWindow(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}
