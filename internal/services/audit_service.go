package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger-audit/internal/auditlog"
	"github.com/ruralpay/ledger-audit/internal/metrics"
	"github.com/ruralpay/ledger-audit/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SnapshotSource produces one consistent, read-only view of the ledger.
// Failures must wrap models.ErrSnapshotUnavailable.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// AuditOptions tunes how the checks run.
type AuditOptions struct {
	// Forensic attaches the offending rows to DuplicatePledge violations.
	Forensic bool
	// Concurrent runs the checks in parallel against the same snapshot.
	Concurrent bool
}

type AuditService struct {
	source  SnapshotSource
	events  auditlog.EventLogger
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    AuditOptions
	now     func() time.Time
}

func NewAuditService(source SnapshotSource, events auditlog.EventLogger, m *metrics.Metrics, logger *zap.Logger, opts AuditOptions) *AuditService {
	return &AuditService{
		source:  source,
		events:  events,
		metrics: m,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// RunAudit reads one snapshot and runs every check against it. Data
// violations are returned in the report; the error is reserved for an
// unreadable snapshot or a cancelled context.
func (s *AuditService) RunAudit(ctx context.Context) (*models.Report, error) {
	runID := uuid.NewString()
	started := s.now()
	logger := s.logger.With(zap.String("run_id", runID))

	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		s.fail(runID, started, err)
		logger.Error("failed to read ledger snapshot", zap.Error(err))
		return nil, err
	}
	s.events.LogRunStarted(runID, snapshot.Settlement)
	if snapshot.Settlement.IsInProgress() {
		logger.Info("settlement in progress, skipping team balance check",
			zap.String("batch_id", snapshot.Settlement.BatchID))
	}

	violations, err := RunChecks(ctx, snapshot, s.opts)
	if err != nil {
		s.fail(runID, started, err)
		return nil, err
	}

	report := &models.Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: s.now(),
		Settlement: snapshot.Settlement,
		Violations: violations,
	}
	took := report.FinishedAt.Sub(started)
	for _, v := range violations {
		s.events.LogViolation(runID, v)
	}
	s.events.LogRunFinished(runID, len(violations), took)
	s.metrics.RecordReport(report, took)

	logger.Info("audit finished",
		zap.Int("violations", len(violations)),
		zap.Duration("duration", took))
	return report, nil
}

// SelfCheck runs an audit and fails on any violation, for callers that treat
// a dirty ledger as fatal (e.g. before a deploy).
func (s *AuditService) SelfCheck(ctx context.Context) error {
	report, err := s.RunAudit(ctx)
	if err != nil {
		return err
	}
	return report.Err()
}

func (s *AuditService) fail(runID string, started time.Time, err error) {
	s.events.LogError(runID, err)
	s.metrics.RecordError(s.now().Sub(started))
}

type check func(*models.Snapshot, AuditOptions) []models.Violation

// checks lists every rule in report order.
var checks = []check{
	checkBalances,
	checkTeams,
	checkOrphans,
	checkOrphansWithPledges,
	checkDuplicatePledges,
}

// RunChecks runs every check against snapshot and concatenates their
// violations in a fixed order. It never stops at the first failing check.
func RunChecks(ctx context.Context, snapshot *models.Snapshot, opts AuditOptions) ([]models.Violation, error) {
	results := make([][]models.Violation, len(checks))

	if opts.Concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range checks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = c(snapshot, opts)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("audit cancelled: %w", err)
		}
	} else {
		for i, c := range checks {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("audit cancelled: %w", err)
			}
			results[i] = c(snapshot, opts)
		}
	}

	var violations []models.Violation
	for _, r := range results {
		violations = append(violations, r...)
	}
	return violations, nil
}

func checkBalances(s *models.Snapshot, _ AuditOptions) []models.Violation {
	return Reconcile(ExpectedBalances(s.Events()), s.StoredBalances())
}

func checkTeams(s *models.Snapshot, _ AuditOptions) []models.Violation {
	return CheckTeamBalances(s.Payments, s.Settlement)
}

func checkOrphans(s *models.Snapshot, _ AuditOptions) []models.Violation {
	var violations []models.Violation
	for _, identity := range FindOrphans(s.Usernames(), s.ExternalLinks, s.Absorptions) {
		violations = append(violations, models.OrphanIdentity{Identity: identity})
	}
	return violations
}

func checkOrphansWithPledges(s *models.Snapshot, _ AuditOptions) []models.Violation {
	var violations []models.Violation
	for _, identity := range FindOrphansWithActivePledges(CurrentPledges(s.Pledges), s.ExternalLinks) {
		violations = append(violations, models.OrphanWithActivePledge{Identity: identity})
	}
	return violations
}

func checkDuplicatePledges(s *models.Snapshot, opts AuditOptions) []models.Violation {
	rows := DuplicatePledgeRows(s.Pledges)
	if len(rows) == 0 {
		return nil
	}
	v := models.DuplicatePledge{Count: len(rows)}
	if opts.Forensic {
		v.Rows = rows
	}
	return []models.Violation{v}
}
