package matcher

import (
	"fmt"

	"bank-reconciliation-core/internal/models"
)

// Engine matches bank transactions against ledger entries according to a
// MatchingPolicy. It is the only component allowed to mutate bank
// transactions, and even then only their Matched and MatchedEntryID fields.
// The ledger entry slice is read-only input and is never modified.
type Engine struct {
	policy   *MatchingPolicy
	strategy AssignmentStrategy
}

// NewEngine creates a matching engine. A nil policy selects the default.
func NewEngine(policy *MatchingPolicy) *Engine {
	if policy == nil {
		policy = DefaultMatchingPolicy()
	}

	return &Engine{
		policy:   policy,
		strategy: GreedyFirstFit{},
	}
}

// NewEngineWithStrategy creates a matching engine with an explicit assignment
// strategy. This is the extension point for alternative assignment modes such
// as min-cost bipartite matching; only the greedy strategy ships today.
func NewEngineWithStrategy(policy *MatchingPolicy, strategy AssignmentStrategy) *Engine {
	engine := NewEngine(policy)
	if strategy != nil {
		engine.strategy = strategy
	}
	return engine
}

// Policy returns a copy of the engine's policy.
func (e *Engine) Policy() *MatchingPolicy {
	return e.policy.Clone()
}

// Matches evaluates the match predicate between a ledger entry and a bank
// transaction:
//
//  1. The dates are at most the policy's window apart (closed bound).
//  2. The unsigned amounts differ by less than the epsilon (open bound).
//  3. If account relevance is enabled, the entry touches a cash account.
//
// A transaction whose date failed to parse has a zero date and fails the
// first clause, so it can never match.
func (e *Engine) Matches(entry *models.LedgerEntry, txn *models.BankTransaction) bool {
	if !models.DatesWithinWindow(entry.Date, txn.Date, e.policy.DateWindow()) {
		return false
	}

	if !models.AmountsWithinEpsilon(entry.Amount, txn.Amount, e.policy.AmountEpsilon) {
		return false
	}

	if e.policy.RequireCashAccount && !entry.TouchesAccount(e.policy.CashKeywords) {
		return false
	}

	return true
}

// Match assigns ledger entries to bank transactions in place. Transactions
// are processed in input order and ledger entries are scanned in their given
// order; the first entry satisfying the predicate wins. The result depends
// only on input order and content, so re-running on identical input yields
// identical assignments.
//
// Complexity is O(transactions x entries), acceptable for one statement
// period of at most a few thousand rows.
func (e *Engine) Match(transactions []*models.BankTransaction, entries []*models.LedgerEntry) error {
	if err := e.policy.Validate(); err != nil {
		return fmt.Errorf("invalid matching policy: %w", err)
	}

	return e.strategy.Assign(e, transactions, entries)
}

// AssignmentStrategy decides which candidate entry each transaction claims.
// Implementations must preserve the engine's determinism guarantee: identical
// input yields identical assignments.
type AssignmentStrategy interface {
	Assign(engine *Engine, transactions []*models.BankTransaction, entries []*models.LedgerEntry) error
}

// GreedyFirstFit is the shipping assignment strategy: scan entries in order,
// claim the first one satisfying the predicate. With exclusive assignment a
// claimed entry leaves the candidate pool before the next transaction is
// processed (first bank transaction wins); without it, the entry remains
// available and may back several transactions.
type GreedyFirstFit struct{}

// Assign implements AssignmentStrategy.
func (GreedyFirstFit) Assign(engine *Engine, transactions []*models.BankTransaction, entries []*models.LedgerEntry) error {
	available := newAvailableIndex(len(entries))

	for _, txn := range transactions {
		txn.Matched = false
		txn.MatchedEntryID = ""

		for i, entry := range entries {
			if engine.policy.ExclusiveAssignment && !available.has(i) {
				continue
			}

			if !engine.Matches(entry, txn) {
				continue
			}

			txn.Matched = true
			txn.MatchedEntryID = entry.ID
			if engine.policy.ExclusiveAssignment {
				available.remove(i)
			}
			break
		}
	}

	return nil
}

// availableIndex tracks which ledger entry positions have not yet been
// claimed. Entry order is preserved by iterating positions, not the set.
type availableIndex struct {
	claimed []bool
}

func newAvailableIndex(n int) *availableIndex {
	return &availableIndex{claimed: make([]bool, n)}
}

func (ai *availableIndex) has(i int) bool {
	return !ai.claimed[i]
}

func (ai *availableIndex) remove(i int) {
	ai.claimed[i] = true
}
