package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSnapshotUnavailable is wrapped by every failure to read a consistent snapshot.
// It marks infrastructure errors, as opposed to data violations.
var ErrSnapshotUnavailable = errors.New("ledger snapshot unavailable")

// ViolationKind names a class of ledger corruption.
type ViolationKind string

const (
	KindBalanceMismatch        ViolationKind = "balance_mismatch"
	KindTeamBalanceNonZero     ViolationKind = "team_balance_nonzero"
	KindOrphanIdentity         ViolationKind = "orphan_identity"
	KindOrphanWithActivePledge ViolationKind = "orphan_with_active_pledge"
	KindDuplicatePledge        ViolationKind = "duplicate_pledge"
)

// Violation is one of BalanceMismatch, TeamBalanceNonZero, OrphanIdentity,
// OrphanWithActivePledge or DuplicatePledge.
type Violation interface {
	Kind() ViolationKind
	// String renders the violation on a single line as "<kind> key=value ...".
	String() string
}

type BalanceMismatch struct {
	Identity string          `json:"participant"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}

type TeamBalanceNonZero struct {
	Team  string          `json:"team"`
	Delta decimal.Decimal `json:"delta"`
}

type OrphanIdentity struct {
	Identity string `json:"participant"`
}

type OrphanWithActivePledge struct {
	Identity string `json:"participant"`
}

// DuplicatePledge counts pledge rows in excess of one per (source, destination, timestamp).
// Rows is only filled when forensic detail was requested.
type DuplicatePledge struct {
	Count int      `json:"count"`
	Rows  []Pledge `json:"rows,omitempty"`
}

func (BalanceMismatch) Kind() ViolationKind        { return KindBalanceMismatch }
func (TeamBalanceNonZero) Kind() ViolationKind     { return KindTeamBalanceNonZero }
func (OrphanIdentity) Kind() ViolationKind         { return KindOrphanIdentity }
func (OrphanWithActivePledge) Kind() ViolationKind { return KindOrphanWithActivePledge }
func (DuplicatePledge) Kind() ViolationKind        { return KindDuplicatePledge }

func (v BalanceMismatch) String() string {
	return fmt.Sprintf("%s participant=%s expected=%s actual=%s", v.Kind(), v.Identity, v.Expected, v.Actual)
}

func (v TeamBalanceNonZero) String() string {
	return fmt.Sprintf("%s team=%s delta=%s", v.Kind(), v.Team, v.Delta)
}

func (v OrphanIdentity) String() string {
	return fmt.Sprintf("%s participant=%s", v.Kind(), v.Identity)
}

func (v OrphanWithActivePledge) String() string {
	return fmt.Sprintf("%s participant=%s", v.Kind(), v.Identity)
}

func (v DuplicatePledge) String() string {
	return fmt.Sprintf("%s count=%d", v.Kind(), v.Count)
}

// Report is the outcome of one audit run.
type Report struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Settlement SettlementState `json:"settlement"`
	Violations []Violation     `json:"-"`
}

// OK reports whether the audit found nothing wrong.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Err returns an *AuditFailedError when the report holds violations.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &AuditFailedError{Violations: r.Violations}
}

// CountByKind tallies the violations per kind.
func (r *Report) CountByKind() map[ViolationKind]int {
	counts := make(map[ViolationKind]int)
	for _, v := range r.Violations {
		counts[v.Kind()]++
	}
	return counts
}

// Lines renders each violation on its own line, in report order.
func (r *Report) Lines() []string {
	lines := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		lines[i] = v.String()
	}
	return lines
}

type violationJSON struct {
	Kind   ViolationKind `json:"kind"`
	Line   string        `json:"line"`
	Detail Violation     `json:"detail"`
}

func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	violations := make([]violationJSON, len(r.Violations))
	for i, v := range r.Violations {
		violations[i] = violationJSON{Kind: v.Kind(), Line: v.String(), Detail: v}
	}
	return json.Marshal(struct {
		*plain
		OK         bool            `json:"ok"`
		Violations []violationJSON `json:"violations"`
	}{(*plain)(r), r.OK(), violations})
}

// AuditFailedError carries every violation found by a run.
type AuditFailedError struct {
	Violations []Violation
}

func (e *AuditFailedError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("audit failed with %d violation(s): %s", len(e.Violations), strings.Join(lines, "; "))
}
