// Package matcher decides, for each bank transaction, whether a corresponding
// ledger entry exists.
//
// The match predicate combines a date window, an amount tolerance, and an
// optional account-relevance check, all carried by an explicit MatchingPolicy
// rather than package-level constants. The anomaly detector shares the same
// policy so the matcher and detector can never drift apart on tolerances.
//
// Example usage:
//
//	policy := matcher.DefaultMatchingPolicy()
//	policy.RequireCashAccount = true
//
//	engine := matcher.NewEngine(policy)
//	engine.Match(transactions, entries)
package matcher

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MatchingPolicy holds every tunable of the matching predicate and of the
// anomaly checks that depend on it. A single policy instance is passed to both
// the matcher and the detector; the amount epsilon in particular must exist
// exactly once.
type MatchingPolicy struct {
	// DateWindowHours is the maximum absolute difference between a ledger
	// entry date and a bank transaction date, in hours. The bound is closed:
	// exactly DateWindowHours apart still matches.
	DateWindowHours int `json:"date_window_hours" mapstructure:"date_window_hours"`

	// AmountEpsilon is the currency-minor-unit tolerance for amount
	// comparison. The bound is open: a difference of exactly AmountEpsilon
	// does not match.
	AmountEpsilon decimal.Decimal `json:"amount_epsilon" mapstructure:"amount_epsilon"`

	// CashKeywords is the keyword set used for account relevance, matched
	// case-insensitively as substrings against debit and credit accounts.
	CashKeywords []string `json:"cash_keywords" mapstructure:"cash_keywords"`

	// RequireCashAccount, when set, additionally requires that a candidate
	// entry's debit or credit account contains a cash keyword. Both settings
	// are valid designs; neither is hard-coded.
	RequireCashAccount bool `json:"require_cash_account" mapstructure:"require_cash_account"`

	// RestrictMissingToCashAccounts limits the missing-entries report to
	// entries touching a cash account, so non-cash bookkeeping entries are
	// not flagged as reconciliation gaps.
	RestrictMissingToCashAccounts bool `json:"restrict_missing_to_cash_accounts" mapstructure:"restrict_missing_to_cash_accounts"`

	// ExclusiveAssignment removes a matched ledger entry from the candidate
	// pool before the next bank transaction is processed, so an entry is
	// claimed by at most one transaction. First bank transaction wins; that
	// tie-break is a policy choice, not an algorithmic necessity. When false,
	// the historical non-exclusive first-fit behavior is preserved and the
	// same entry may back several transactions.
	ExclusiveAssignment bool `json:"exclusive_assignment" mapstructure:"exclusive_assignment"`
}

// DefaultMatchingPolicy returns the policy used by the reconciliation screens:
// one calendar day of date tolerance, a one-cent amount epsilon, the standard
// cash/bank keyword set, and exclusive entry assignment.
func DefaultMatchingPolicy() *MatchingPolicy {
	return &MatchingPolicy{
		DateWindowHours:               24,
		AmountEpsilon:                 decimal.New(1, -2), // 0.01
		CashKeywords:                  []string{"cash", "bank"},
		RequireCashAccount:            false,
		RestrictMissingToCashAccounts: false,
		ExclusiveAssignment:           true,
	}
}

// CompatibilityMatchingPolicy returns a policy reproducing the original
// screen behavior exactly: non-exclusive first-fit assignment, no account
// relevance requirement.
func CompatibilityMatchingPolicy() *MatchingPolicy {
	policy := DefaultMatchingPolicy()
	policy.ExclusiveAssignment = false
	return policy
}

// Validate checks that the policy is usable.
func (mp *MatchingPolicy) Validate() error {
	if mp.DateWindowHours < 0 {
		return fmt.Errorf("date window hours cannot be negative: %d", mp.DateWindowHours)
	}

	if mp.AmountEpsilon.IsNegative() {
		return fmt.Errorf("amount epsilon cannot be negative: %s", mp.AmountEpsilon.String())
	}

	if mp.RequireCashAccount && len(mp.CashKeywords) == 0 {
		return fmt.Errorf("cash keywords are required when account relevance is enabled")
	}

	if mp.RestrictMissingToCashAccounts && len(mp.CashKeywords) == 0 {
		return fmt.Errorf("cash keywords are required when missing entries are restricted to cash accounts")
	}

	return nil
}

// Clone creates a deep copy of the policy.
func (mp *MatchingPolicy) Clone() *MatchingPolicy {
	if mp == nil {
		return nil
	}

	keywords := make([]string, len(mp.CashKeywords))
	copy(keywords, mp.CashKeywords)

	return &MatchingPolicy{
		DateWindowHours:               mp.DateWindowHours,
		AmountEpsilon:                 mp.AmountEpsilon,
		CashKeywords:                  keywords,
		RequireCashAccount:            mp.RequireCashAccount,
		RestrictMissingToCashAccounts: mp.RestrictMissingToCashAccounts,
		ExclusiveAssignment:           mp.ExclusiveAssignment,
	}
}

// DateWindow returns the date tolerance as a duration.
func (mp *MatchingPolicy) DateWindow() time.Duration {
	return time.Duration(mp.DateWindowHours) * time.Hour
}

// String returns a human-readable description of the policy.
func (mp *MatchingPolicy) String() string {
	return fmt.Sprintf("MatchingPolicy{DateWindow: %dh, AmountEpsilon: %s, CashKeywords: %v, RequireCashAccount: %t, Exclusive: %t}",
		mp.DateWindowHours, mp.AmountEpsilon.String(), mp.CashKeywords, mp.RequireCashAccount, mp.ExclusiveAssignment)
}
