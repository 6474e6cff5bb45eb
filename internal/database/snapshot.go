package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ruralpay/ledger-audit/internal/models"
)

// PostgresSnapshotSource reads the ledger tables inside one read-only,
// repeatable-read transaction so every check sees the same state.
type PostgresSnapshotSource struct {
	db *sql.DB
}

func NewPostgresSnapshotSource(db *sql.DB) *PostgresSnapshotSource {
	return &PostgresSnapshotSource{db: db}
}

// Snapshot never writes; the transaction is always rolled back.
func (s *PostgresSnapshotSource) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, unavailable("begin snapshot transaction", err)
	}
	defer tx.Rollback()

	return ReadSnapshot(ctx, tx)
}

// ReadSnapshot reads a snapshot through a transaction owned by the caller.
func ReadSnapshot(ctx context.Context, tx *sql.Tx) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	var err error

	if snap.Exchanges, err = listExchanges(ctx, tx); err != nil {
		return nil, unavailable("list exchanges", err)
	}
	if snap.Transfers, err = listTransfers(ctx, tx); err != nil {
		return nil, unavailable("list transfers", err)
	}
	if snap.Payments, err = listPayments(ctx, tx); err != nil {
		return nil, unavailable("list payments", err)
	}
	if snap.Participants, err = listParticipants(ctx, tx); err != nil {
		return nil, unavailable("list participants", err)
	}
	if snap.Settlement, err = settlementState(ctx, tx); err != nil {
		return nil, unavailable("read settlement state", err)
	}
	if snap.Pledges, err = listPledges(ctx, tx); err != nil {
		return nil, unavailable("list pledges", err)
	}
	if snap.ExternalLinks, err = listExternalLinks(ctx, tx); err != nil {
		return nil, unavailable("list external links", err)
	}
	if snap.Absorptions, err = listAbsorptions(ctx, tx); err != nil {
		return nil, unavailable("list absorptions", err)
	}
	return snap, nil
}

func unavailable(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrSnapshotUnavailable, step, err)
}

func listExchanges(ctx context.Context, tx *sql.Tx) ([]models.Exchange, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT participant, amount, COALESCE(fee, 0), status
		FROM exchanges
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []models.Exchange
	for rows.Next() {
		var (
			e      models.Exchange
			status sql.NullString
		)
		if err := rows.Scan(&e.Participant, &e.Amount, &e.Fee, &status); err != nil {
			return nil, err
		}
		if status.Valid {
			e.Status = models.ExchangeStatus(status.String)
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

func listTransfers(ctx context.Context, tx *sql.Tx) ([]models.Transfer, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tipper, tippee, amount
		FROM transfers
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		var t models.Transfer
		if err := rows.Scan(&t.Tipper, &t.Tippee, &t.Amount); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func listPayments(ctx context.Context, tx *sql.Tx) ([]models.Payment, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT participant, team, amount, direction
		FROM payments
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.Participant, &p.Team, &p.Amount, &p.Direction); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func listParticipants(ctx context.Context, tx *sql.Tx) ([]models.Participant, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT username, balance, claimed_time, is_closed
		FROM participants
		ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.Username, &p.Balance, &p.ClaimedTime, &p.IsClosed); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// settlementState maps an open payday (ts_end still before ts_start) to an
// in-progress settlement named after the payday id.
func settlementState(ctx context.Context, tx *sql.Tx) (models.SettlementState, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id
		FROM paydays
		WHERE ts_end < ts_start
		ORDER BY ts_start DESC
		LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Idle(), nil
	}
	if err != nil {
		return models.SettlementState{}, err
	}
	return models.InProgress(strconv.FormatInt(id, 10)), nil
}

// listPledges returns tips in insertion order, which the duplicate detector
// relies on to keep the earliest row of a key.
func listPledges(ctx context.Context, tx *sql.Tx) ([]models.Pledge, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tipper, tippee, amount, mtime
		FROM tips
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pledges []models.Pledge
	for rows.Next() {
		var p models.Pledge
		if err := rows.Scan(&p.Source, &p.Destination, &p.Amount, &p.Timestamp); err != nil {
			return nil, err
		}
		pledges = append(pledges, p)
	}
	return pledges, rows.Err()
}

func listExternalLinks(ctx context.Context, tx *sql.Tx) (map[string][]models.ExternalLink, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT participant, platform, user_id
		FROM elsewhere
		ORDER BY participant, platform`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string][]models.ExternalLink)
	for rows.Next() {
		var l models.ExternalLink
		if err := rows.Scan(&l.Participant, &l.Platform, &l.UserID); err != nil {
			return nil, err
		}
		links[l.Participant] = append(links[l.Participant], l)
	}
	return links, rows.Err()
}

func listAbsorptions(ctx context.Context, tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT archived_as FROM absorptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	absorbed := make(map[string]struct{})
	for rows.Next() {
		var archivedAs string
		if err := rows.Scan(&archivedAs); err != nil {
			return nil, err
		}
		absorbed[archivedAs] = struct{}{}
	}
	return absorbed, rows.Err()
}
