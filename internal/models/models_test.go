package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmountLenient(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain amount", "120.00", "120"},
		{"negative amount", "-500", "-500"},
		{"currency symbol", "$1,234.56", "1234.56"},
		{"surrounding whitespace", "  42.50  ", "42.5"},
		{"empty string", "", "0"},
		{"garbage", "not-a-number", "0"},
		{"partial number", "12.3.4", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmountLenient(tt.input)
			expected := decimal.RequireFromString(tt.expected)
			if !got.Equal(expected) {
				t.Errorf("ParseAmountLenient(%q) = %s, want %s", tt.input, got, expected)
			}
		})
	}
}

func TestParseDateLenient(t *testing.T) {
	got := ParseDateLenient("2024-07-01")
	want := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDateLenient(2024-07-01) = %v, want %v", got, want)
	}

	if !ParseDateLenient("not a date").IsZero() {
		t.Error("Expected zero time for unparseable date")
	}

	if !ParseDateLenient("").IsZero() {
		t.Error("Expected zero time for empty date")
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := ParseDate("2024-07-01"); !ok {
		t.Error("Expected valid date to parse")
	}

	if _, ok := ParseDate("bogus"); ok {
		t.Error("Expected unparseable date to report failure")
	}
}

func TestAmountsWithinEpsilon(t *testing.T) {
	epsilon := decimal.RequireFromString("0.01")

	tests := []struct {
		name      string
		entry     string
		bank      string
		wantMatch bool
	}{
		{"exact", "120.00", "-120.00", true},
		{"just inside tolerance", "120.0099", "-120.00", true},
		{"exactly at tolerance", "120.0100", "-120.00", false},
		{"outside tolerance", "120.02", "-120.00", false},
		{"positive bank amount", "120.00", "120.00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := decimal.RequireFromString(tt.entry)
			bank := decimal.RequireFromString(tt.bank)
			if got := AmountsWithinEpsilon(entry, bank, epsilon); got != tt.wantMatch {
				t.Errorf("AmountsWithinEpsilon(%s, %s) = %t, want %t", tt.entry, tt.bank, got, tt.wantMatch)
			}
		})
	}
}

func TestDatesWithinWindow(t *testing.T) {
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	if !DatesWithinWindow(base, base, window) {
		t.Error("Expected identical dates to be within window")
	}

	// The bound is closed: exactly 24h apart still matches.
	if !DatesWithinWindow(base, base.Add(24*time.Hour), window) {
		t.Error("Expected dates exactly 24h apart to be within window")
	}

	if DatesWithinWindow(base, base.Add(24*time.Hour+time.Millisecond), window) {
		t.Error("Expected dates 24h+1ms apart to be outside window")
	}

	if !DatesWithinWindow(base.Add(24*time.Hour), base, window) {
		t.Error("Expected window to be symmetric")
	}

	if DatesWithinWindow(time.Time{}, base, window) {
		t.Error("Expected zero time to never be within window")
	}
}

func TestBankTransaction_SameRow(t *testing.T) {
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("-500")

	a := &BankTransaction{ID: "bank_0", Date: date, Description: "Rent", Amount: amount}
	b := &BankTransaction{ID: "bank_1", Date: date, Description: "Rent", Amount: amount}

	if !a.SameRow(b) {
		t.Error("Expected rows with identical date, amount, description to be the same row")
	}

	c := &BankTransaction{ID: "bank_2", Date: date, Description: "Rent deposit", Amount: amount}
	if a.SameRow(c) {
		t.Error("Expected differing descriptions to not be the same row")
	}

	if a.SameRow(nil) {
		t.Error("Expected nil to not be the same row")
	}
}

func TestLedgerEntry_TouchesAccount(t *testing.T) {
	entry := &LedgerEntry{
		DebitAccount:  "Office Expenses",
		CreditAccount: "Bank Account",
	}

	if !entry.TouchesAccount([]string{"cash", "bank"}) {
		t.Error("Expected credit account 'Bank Account' to match keyword 'bank'")
	}

	if !entry.TouchesAccount([]string{"BANK"}) {
		t.Error("Expected keyword matching to be case-insensitive")
	}

	internal := &LedgerEntry{
		DebitAccount:  "Office Expenses",
		CreditAccount: "Accounts Payable",
	}
	if internal.TouchesAccount([]string{"cash", "bank"}) {
		t.Error("Expected non-cash entry to not match")
	}

	if entry.TouchesAccount(nil) {
		t.Error("Expected empty keyword set to never match")
	}
}

func TestBankTransaction_AbsAmount(t *testing.T) {
	txn := &BankTransaction{Amount: decimal.RequireFromString("-120.00")}
	if !txn.AbsAmount().Equal(decimal.RequireFromString("120.00")) {
		t.Errorf("AbsAmount() = %s, want 120.00", txn.AbsAmount())
	}
}
