// Package detector classifies anomalies in an already-matched transaction
// set: duplicate statement rows, ledger entries no transaction claimed, and
// amount mismatches among matched pairs.
//
// The three checks are independent passes over in-memory slices. They share
// the matcher's MatchingPolicy, so the mismatch check uses the same amount
// epsilon the matcher used; as long as one policy instance drives both, the
// mismatch section is provably empty and exists as a consistency check.
package detector

import (
	"context"

	"bank-reconciliation-core/internal/matcher"
	"bank-reconciliation-core/internal/models"
)

// Detector runs the anomaly passes. Duplicate flags it produces are advisory:
// two genuinely identical small payments on the same day are flagged exactly
// like an accidental double import, and only a human can tell them apart.
type Detector struct {
	policy *matcher.MatchingPolicy
}

// New creates a detector. A nil policy selects the default, but callers
// should pass the same policy instance the matcher used.
func New(policy *matcher.MatchingPolicy) *Detector {
	if policy == nil {
		policy = matcher.DefaultMatchingPolicy()
	}
	return &Detector{policy: policy}
}

// Findings aggregates the results of the three anomaly passes.
type Findings struct {
	Duplicates          []*models.BankTransaction
	MissingEntries      []*models.LedgerEntry
	AmountDiscrepancies []models.AmountDiscrepancy
}

// Detect runs all three passes. Cancellation is coarse-grained: the context
// is checked between passes, never per row, since a single pass over one
// statement period completes quickly.
func (d *Detector) Detect(ctx context.Context, transactions []*models.BankTransaction, entries []*models.LedgerEntry) (*Findings, error) {
	findings := &Findings{}

	findings.Duplicates = d.FindDuplicates(transactions)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	findings.MissingEntries = d.FindMissingEntries(transactions, entries)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	findings.AmountDiscrepancies = d.FindAmountDiscrepancies(transactions, entries)

	return findings, nil
}

// FindDuplicates flags every transaction for which an earlier transaction in
// the same statement has identical date, amount, and description. The first
// occurrence is canonical and never flagged, so N identical rows produce N-1
// duplicates. The scan is O(n^2) with index-of-first semantics, acceptable at
// statement scale.
func (d *Detector) FindDuplicates(transactions []*models.BankTransaction) []*models.BankTransaction {
	duplicates := []*models.BankTransaction{}

	for i, txn := range transactions {
		for _, earlier := range transactions[:i] {
			if txn.SameRow(earlier) {
				duplicates = append(duplicates, txn)
				break
			}
		}
	}

	return duplicates
}

// FindMissingEntries returns ledger entries referenced by no transaction's
// MatchedEntryID. When the policy restricts missing entries to cash accounts,
// entries touching neither a cash nor a bank account are excluded, so purely
// internal bookkeeping entries are not flagged as reconciliation gaps.
func (d *Detector) FindMissingEntries(transactions []*models.BankTransaction, entries []*models.LedgerEntry) []*models.LedgerEntry {
	referenced := make(map[string]bool, len(transactions))
	for _, txn := range transactions {
		if txn.MatchedEntryID != "" {
			referenced[txn.MatchedEntryID] = true
		}
	}

	missing := []*models.LedgerEntry{}
	for _, entry := range entries {
		if referenced[entry.ID] {
			continue
		}
		if d.policy.RestrictMissingToCashAccounts && !entry.TouchesAccount(d.policy.CashKeywords) {
			continue
		}
		missing = append(missing, entry)
	}

	return missing
}

// FindAmountDiscrepancies returns matched pairs whose amounts differ by more
// than the policy epsilon. The matcher already enforces a strictly smaller
// difference with the same epsilon, so a non-empty result signals that two
// different tolerance constants leaked into the system.
func (d *Detector) FindAmountDiscrepancies(transactions []*models.BankTransaction, entries []*models.LedgerEntry) []models.AmountDiscrepancy {
	byID := make(map[string]*models.LedgerEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}

	discrepancies := []models.AmountDiscrepancy{}
	for _, txn := range transactions {
		if !txn.Matched {
			continue
		}

		entry, ok := byID[txn.MatchedEntryID]
		if !ok {
			continue
		}

		diff := entry.Amount.Sub(txn.AbsAmount()).Abs()
		if diff.GreaterThan(d.policy.AmountEpsilon) {
			discrepancies = append(discrepancies, models.AmountDiscrepancy{
				Transaction: txn,
				Entry:       entry,
				Difference:  diff,
			})
		}
	}

	return discrepancies
}
