// Command audit runs the ledger consistency checks once and prints one line
// per violation. It exits 0 when the ledger is clean, 1 when violations were
// found and 2 when the ledger could not be read.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ruralpay/ledger-audit/internal/auditlog"
	"github.com/ruralpay/ledger-audit/internal/config"
	"github.com/ruralpay/ledger-audit/internal/database"
	"github.com/ruralpay/ledger-audit/internal/metrics"
	"github.com/ruralpay/ledger-audit/internal/models"
	"github.com/ruralpay/ledger-audit/internal/services"
	"go.uber.org/zap"
)

const (
	exitClean      = 0
	exitViolations = 1
	exitError      = 2
)

func main() {
	forensic := flag.Bool("forensic", false, "print the offending rows of duplicate pledges")
	concurrent := flag.Bool("concurrent", false, "run the checks in parallel against the snapshot")
	timeout := flag.Duration("timeout", 0, "abort the audit after this long (default from AUDIT_TIMEOUT)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	code := audit(logger, *forensic, *concurrent, *timeout)
	logger.Sync()
	os.Exit(code)
}

func audit(logger *zap.Logger, forensic, concurrent bool, timeout time.Duration) int {
	config.Init()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return exitError
	}
	if timeout <= 0 {
		timeout = cfg.Audit.Timeout
	}

	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", zap.Error(err))
		return exitError
	}
	defer db.Close()

	opts := services.AuditOptions{
		Forensic:   forensic || cfg.Audit.Forensic,
		Concurrent: concurrent || cfg.Audit.Concurrent,
	}
	svc := services.NewAuditService(
		database.NewPostgresSnapshotSource(db),
		auditlog.NewAuditLogger(logger),
		metrics.New(),
		logger,
		opts,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return run(ctx, svc, os.Stdout, os.Stderr)
}

type auditor interface {
	RunAudit(ctx context.Context) (*models.Report, error)
}

// run executes one audit and writes its violations to out, returning the
// process exit code.
func run(ctx context.Context, a auditor, out, errOut io.Writer) int {
	report, err := a.RunAudit(ctx)
	if err != nil {
		if errors.Is(err, models.ErrSnapshotUnavailable) {
			fmt.Fprintf(errOut, "snapshot unavailable: %v\n", err)
		} else {
			fmt.Fprintf(errOut, "audit aborted: %v\n", err)
		}
		return exitError
	}

	writeReport(out, report)
	if !report.OK() {
		return exitViolations
	}
	return exitClean
}

func writeReport(w io.Writer, report *models.Report) {
	for _, v := range report.Violations {
		fmt.Fprintln(w, v.String())
		if dup, ok := v.(models.DuplicatePledge); ok {
			for _, row := range dup.Rows {
				fmt.Fprintf(w, "duplicate_pledge_row source=%s destination=%s timestamp=%s amount=%s\n",
					row.Source, row.Destination, row.Timestamp.UTC().Format(time.RFC3339Nano), row.Amount)
			}
		}
	}
}
