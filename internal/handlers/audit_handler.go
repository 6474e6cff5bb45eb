package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ruralpay/ledger-audit/internal/database"
	"github.com/ruralpay/ledger-audit/internal/models"
	"go.uber.org/zap"
)

// Auditor runs one audit.
type Auditor interface {
	RunAudit(ctx context.Context) (*models.Report, error)
}

// ReportStore keeps the latest report for operators.
type ReportStore interface {
	Store(ctx context.Context, report *models.Report) error
	Latest(ctx context.Context) ([]byte, error)
}

type AuditHandler struct {
	auditor        Auditor
	store          ReportStore // nil when Redis is unavailable
	validator      *RequestValidator
	logger         *zap.Logger
	defaultTimeout time.Duration
}

func NewAuditHandler(auditor Auditor, store ReportStore, logger *zap.Logger, defaultTimeout time.Duration) *AuditHandler {
	return &AuditHandler{
		auditor:        auditor,
		store:          store,
		validator:      NewRequestValidator(),
		logger:         logger,
		defaultTimeout: defaultTimeout,
	}
}

// RunAuditRequest optionally overrides the server's audit timeout.
type RunAuditRequest struct {
	TimeoutSeconds int `json:"timeoutSeconds" validate:"omitempty,gte=1,lte=3600"`
}

// RunAudit runs an audit and returns its report. A report with violations is
// still a 200; only an unreadable ledger is an error.
// @Summary Run a ledger audit
// @Description Read one ledger snapshot and run every consistency check against it
// @Tags audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RunAuditRequest false "Audit options"
// @Success 200 {object} models.Report
// @Failure 400 {object} ErrorResponse
// @Failure 401 {string} string
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /audits [post]
func (h *AuditHandler) RunAudit(w http.ResponseWriter, r *http.Request) {
	var req RunAuditRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Check(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	timeout := h.defaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	report, err := h.auditor.RunAudit(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, "Audit cancelled", nil)
		return
	case errors.Is(err, models.ErrSnapshotUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Ledger snapshot unavailable", nil)
		return
	case err != nil:
		h.logger.Error("audit run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Audit failed", nil)
		return
	}

	if h.store != nil {
		if err := h.store.Store(r.Context(), report); err != nil {
			h.logger.Warn("failed to cache audit report", zap.String("run_id", report.RunID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// LatestReport returns the most recent cached report.
// @Summary Get the latest audit report
// @Description Return the report of the most recent audit run, as cached
// @Tags audits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Report
// @Failure 401 {string} string
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /audits/latest [get]
func (h *AuditHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Report cache unavailable", nil)
		return
	}

	data, err := h.store.Latest(r.Context())
	if errors.Is(err, database.ErrNoReport) {
		writeError(w, http.StatusNotFound, "No audit has run yet", nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to read cached audit report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read latest report", nil)
		return
	}

	writeRaw(w, data)
}
