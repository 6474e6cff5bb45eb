package auditlog

import (
	"time"

	"github.com/ruralpay/ledger-audit/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventLogger records what an audit run did. Implementations must not block.
type EventLogger interface {
	LogRunStarted(runID string, settlement models.SettlementState)
	LogViolation(runID string, violation models.Violation)
	LogRunFinished(runID string, violations int, took time.Duration)
	LogError(runID string, err error)
}

// AuditEvent is one audit record, logged as a nested "event" object.
type AuditEvent struct {
	Timestamp time.Time
	EventType string
	RunID     string
	Status    string
	Details   any
}

func (e AuditEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("event_type", e.EventType)
	enc.AddString("run_id", e.RunID)
	enc.AddString("status", e.Status)
	enc.AddTime("timestamp", e.Timestamp)
	return enc.AddReflected("details", e.Details)
}

// AuditLogger writes audit events as structured zap entries.
type AuditLogger struct {
	logger *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.Named("audit")}
}

func (a *AuditLogger) LogRunStarted(runID string, settlement models.SettlementState) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "RUN_STARTED",
		RunID:     runID,
		Status:    "RUNNING",
		Details:   map[string]string{"settlement": settlement.String()},
	})
}

func (a *AuditLogger) LogViolation(runID string, violation models.Violation) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "VIOLATION",
		RunID:     runID,
		Status:    string(violation.Kind()),
		Details:   map[string]string{"violation": violation.String()},
	})
}

func (a *AuditLogger) LogRunFinished(runID string, violations int, took time.Duration) {
	status := "PASSED"
	if violations > 0 {
		status = "FAILED"
	}
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "RUN_FINISHED",
		RunID:     runID,
		Status:    status,
		Details: map[string]any{
			"violations":  violations,
			"duration_ms": took.Milliseconds(),
		},
	})
}

func (a *AuditLogger) LogError(runID string, err error) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "ERROR",
		RunID:     runID,
		Status:    "ABORTED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	a.logger.Info("AUDIT", zap.Object("event", event))
}
