// Package session owns the reconciliation state machine. A session processes
// exactly one statement: it starts pending, moves to processing when the
// parsed statement arrives, runs matching and the three anomaly passes, and
// finishes completed with an immutable report.
//
// Failure is an explicit terminal state rather than an unrepresented case:
// any internal error, including a panic in a pass, transitions the session to
// failed with the cause retained for diagnostics. A failed session stays
// inspectable and never silently reverts to pending.
package session

import (
	"context"
	"fmt"

	"bank-reconciliation-core/internal/detector"
	"bank-reconciliation-core/internal/matcher"
	"bank-reconciliation-core/internal/models"
	"bank-reconciliation-core/pkg/logger"

	apperrors "bank-reconciliation-core/pkg/errors"

	"github.com/google/uuid"
)

// State is the lifecycle state of a reconciliation session.
type State string

const (
	// StatePending means no statement has been processed yet.
	StatePending State = "pending"

	// StateProcessing means normalization output is being matched and the
	// anomaly passes are running.
	StateProcessing State = "processing"

	// StateCompleted means the report is available and immutable.
	StateCompleted State = "completed"

	// StateFailed means an internal error occurred; the cause is retained.
	StateFailed State = "failed"
)

// Session runs one reconciliation and holds its outcome. Sessions are not
// safe for concurrent use; the pipeline is single-threaded by design and one
// statement is processed per session with no overlap.
type Session struct {
	id       string
	policy   *matcher.MatchingPolicy
	engine   *matcher.Engine
	detector *detector.Detector
	log      logger.Logger

	state  State
	report *models.ReconciliationReport
	err    error
}

// Option configures a session.
type Option func(*Session)

// WithLogger attaches a logger to the session.
func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithAssignmentStrategy overrides the matcher's assignment strategy.
func WithAssignmentStrategy(strategy matcher.AssignmentStrategy) Option {
	return func(s *Session) {
		s.engine = matcher.NewEngineWithStrategy(s.policy, strategy)
	}
}

// New creates a pending session. A nil policy selects the default. The same
// policy instance drives the matcher and the detector, keeping the two on a
// single tolerance constant.
func New(policy *matcher.MatchingPolicy, opts ...Option) *Session {
	if policy == nil {
		policy = matcher.DefaultMatchingPolicy()
	}

	s := &Session{
		id:       uuid.NewString(),
		policy:   policy,
		engine:   matcher.NewEngine(policy),
		detector: detector.New(policy),
		log:      logger.Discard(),
		state:    StatePending,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.WithComponent("session").WithField("session_id", s.id)
	return s
}

// ID returns the session's run identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Err returns the retained failure cause, or nil unless the session failed.
func (s *Session) Err() error {
	return s.err
}

// Report returns the completed report. It errors in any other state; callers
// must treat the returned report as read-only.
func (s *Session) Report() (*models.ReconciliationReport, error) {
	if s.state != StateCompleted {
		return nil, apperrors.SessionError(apperrors.CodeSessionState,
			fmt.Sprintf("report is only available in completed state, session is %s", s.state), nil)
	}
	return s.report, nil
}

// Run processes one parsed statement against the ledger. The transactions
// slice is mutated in place by the matcher (match fields only); the ledger
// entries are read-only input. Degenerate inputs, an empty statement or an
// empty ledger or both, complete normally with empty report sections.
//
// Run may be called once per session. Calling it again, in any state, is a
// state error.
func (s *Session) Run(ctx context.Context, transactions []*models.BankTransaction, entries []*models.LedgerEntry) (report *models.ReconciliationReport, err error) {
	if s.state != StatePending {
		return nil, apperrors.SessionError(apperrors.CodeSessionState,
			fmt.Sprintf("session already ran, state is %s", s.state), nil)
	}

	s.state = StateProcessing
	s.log.WithFields(logger.Fields{
		"transactions": len(transactions),
		"entries":      len(entries),
	}).Info("reconciliation started")

	// A panic anywhere in the pipeline is a defect; surface it through the
	// failed state instead of unwinding into the caller.
	defer func() {
		if r := recover(); r != nil {
			err = s.fail(apperrors.Internal(fmt.Sprintf("panic during reconciliation: %v", r), nil))
			report = nil
		}
	}()

	if err := s.engine.Match(transactions, entries); err != nil {
		return nil, s.fail(apperrors.SessionError(apperrors.CodeProcessingError, "matching failed", err))
	}

	findings, err := s.detector.Detect(ctx, transactions, entries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.fail(apperrors.SessionError(apperrors.CodeSessionCanceled, "reconciliation canceled", err))
		}
		return nil, s.fail(apperrors.SessionError(apperrors.CodeProcessingError, "anomaly detection failed", err))
	}

	s.report = &models.ReconciliationReport{
		MatchedTransactions: transactions,
		Duplicates:          findings.Duplicates,
		MissingEntries:      findings.MissingEntries,
		AmountDiscrepancies: findings.AmountDiscrepancies,
	}
	s.state = StateCompleted

	s.log.WithFields(logger.Fields{
		"duplicates":      len(s.report.Duplicates),
		"missing_entries": len(s.report.MissingEntries),
		"discrepancies":   len(s.report.AmountDiscrepancies),
	}).Info("reconciliation completed")

	return s.report, nil
}

// fail moves the session to the failed terminal state and retains the cause.
func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.err = err
	s.log.WithError(err).Error("reconciliation failed")
	return err
}
