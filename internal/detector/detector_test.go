package detector

import (
	"context"
	"testing"
	"time"

	"bank-reconciliation-core/internal/matcher"
	"bank-reconciliation-core/internal/models"

	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDetector_FindDuplicates_CountsAllButFirst(t *testing.T) {
	d := New(nil)

	// Three identical rent rows: rows 2 and 3 are duplicates, never row 1.
	transactions := []*models.BankTransaction{
		{ID: "bank_0", Date: day(1), Description: "Rent", Amount: amount("-500")},
		{ID: "bank_1", Date: day(1), Description: "Rent", Amount: amount("-500")},
		{ID: "bank_2", Date: day(1), Description: "Rent", Amount: amount("-500")},
	}

	duplicates := d.FindDuplicates(transactions)

	if len(duplicates) != 2 {
		t.Fatalf("Expected exactly 2 duplicates for 3 identical rows, got %d", len(duplicates))
	}
	if duplicates[0].ID != "bank_1" || duplicates[1].ID != "bank_2" {
		t.Errorf("Expected bank_1 and bank_2 flagged, got %s and %s", duplicates[0].ID, duplicates[1].ID)
	}
	for _, dup := range duplicates {
		if dup.ID == "bank_0" {
			t.Error("The first occurrence must never be flagged")
		}
	}
}

func TestDetector_FindDuplicates_RequiresAllThreeFieldsEqual(t *testing.T) {
	d := New(nil)

	transactions := []*models.BankTransaction{
		{ID: "bank_0", Date: day(1), Description: "Rent", Amount: amount("-500")},
		{ID: "bank_1", Date: day(2), Description: "Rent", Amount: amount("-500")},   // different date
		{ID: "bank_2", Date: day(1), Description: "Rent", Amount: amount("-500.5")}, // different amount
		{ID: "bank_3", Date: day(1), Description: "Rent 2", Amount: amount("-500")}, // different description
	}

	if duplicates := d.FindDuplicates(transactions); len(duplicates) != 0 {
		t.Errorf("Expected no duplicates, got %d", len(duplicates))
	}
}

func TestDetector_FindMissingEntries(t *testing.T) {
	transactions := []*models.BankTransaction{
		{ID: "bank_0", Matched: true, MatchedEntryID: "e1"},
	}
	entries := []*models.LedgerEntry{
		{ID: "e1", DebitAccount: "Office Expenses", CreditAccount: "Bank Account"},
		{ID: "e2", DebitAccount: "Office Expenses", CreditAccount: "Accounts Payable"},
		{ID: "e3", DebitAccount: "Cash", CreditAccount: "Revenue"},
	}

	// Unrestricted: every unreferenced entry is missing.
	unrestricted := New(matcher.DefaultMatchingPolicy())
	missing := unrestricted.FindMissingEntries(transactions, entries)
	if len(missing) != 2 {
		t.Fatalf("Expected 2 missing entries unrestricted, got %d", len(missing))
	}

	// Restricted: the non-cash entry e2 is excluded, the cash entry e3 stays.
	policy := matcher.DefaultMatchingPolicy()
	policy.RestrictMissingToCashAccounts = true
	restricted := New(policy)

	missing = restricted.FindMissingEntries(transactions, entries)
	if len(missing) != 1 {
		t.Fatalf("Expected 1 missing entry restricted, got %d", len(missing))
	}
	if missing[0].ID != "e3" {
		t.Errorf("Expected e3, got %s", missing[0].ID)
	}
}

func TestDetector_FindAmountDiscrepancies_EmptyWithSharedPolicy(t *testing.T) {
	// Consistency property: with one policy driving matcher and detector, a
	// matched pair can never differ by more than the epsilon. A failure here
	// means two tolerance constants drifted apart.
	policy := matcher.DefaultMatchingPolicy()
	engine := matcher.NewEngine(policy)
	d := New(policy)

	transactions := []*models.BankTransaction{
		{ID: "bank_0", Date: day(1), Amount: amount("-120.005")},
		{ID: "bank_1", Date: day(2), Amount: amount("350.00")},
	}
	entries := []*models.LedgerEntry{
		{ID: "e1", Date: day(1), Amount: amount("120.00")},
		{ID: "e2", Date: day(2), Amount: amount("350.00")},
	}

	if err := engine.Match(transactions, entries); err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if discrepancies := d.FindAmountDiscrepancies(transactions, entries); len(discrepancies) != 0 {
		t.Errorf("Expected no discrepancies with shared policy, got %d", len(discrepancies))
	}
}

func TestDetector_FindAmountDiscrepancies_FlagsDrift(t *testing.T) {
	// Simulate tolerance drift: the pair was matched under a looser epsilon
	// than the detector uses.
	loose := matcher.DefaultMatchingPolicy()
	loose.AmountEpsilon = amount("1.00")
	engine := matcher.NewEngine(loose)

	transactions := []*models.BankTransaction{
		{ID: "bank_0", Date: day(1), Amount: amount("-120.50")},
	}
	entries := []*models.LedgerEntry{
		{ID: "e1", Date: day(1), Amount: amount("120.00")},
	}

	if err := engine.Match(transactions, entries); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !transactions[0].Matched {
		t.Fatal("Expected loose policy to match the pair")
	}

	strict := New(matcher.DefaultMatchingPolicy())
	discrepancies := strict.FindAmountDiscrepancies(transactions, entries)

	if len(discrepancies) != 1 {
		t.Fatalf("Expected 1 discrepancy, got %d", len(discrepancies))
	}
	if !discrepancies[0].Difference.Equal(amount("0.50")) {
		t.Errorf("Expected difference 0.50, got %s", discrepancies[0].Difference)
	}
}

func TestDetector_Detect(t *testing.T) {
	policy := matcher.DefaultMatchingPolicy()
	d := New(policy)

	transactions := []*models.BankTransaction{
		{ID: "bank_0", Date: day(1), Description: "Rent", Amount: amount("-500"), Matched: true, MatchedEntryID: "e1"},
		{ID: "bank_1", Date: day(1), Description: "Rent", Amount: amount("-500")},
	}
	entries := []*models.LedgerEntry{
		{ID: "e1", Date: day(1), DebitAccount: "Rent Expense", CreditAccount: "Bank Account", Amount: amount("500")},
		{ID: "e2", Date: day(2), DebitAccount: "Office Expenses", CreditAccount: "Bank Account", Amount: amount("75")},
	}

	findings, err := d.Detect(context.Background(), transactions, entries)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(findings.Duplicates) != 1 {
		t.Errorf("Expected 1 duplicate, got %d", len(findings.Duplicates))
	}
	if len(findings.MissingEntries) != 1 || findings.MissingEntries[0].ID != "e2" {
		t.Errorf("Expected e2 missing, got %+v", findings.MissingEntries)
	}
	if len(findings.AmountDiscrepancies) != 0 {
		t.Errorf("Expected no discrepancies, got %d", len(findings.AmountDiscrepancies))
	}
}

func TestDetector_Detect_Canceled(t *testing.T) {
	d := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Detect(ctx, nil, nil); err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestDetector_Detect_EmptyInputs(t *testing.T) {
	d := New(nil)

	findings, err := d.Detect(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(findings.Duplicates) != 0 || len(findings.MissingEntries) != 0 || len(findings.AmountDiscrepancies) != 0 {
		t.Error("Expected empty findings for empty inputs")
	}
}
