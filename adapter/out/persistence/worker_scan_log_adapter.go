package persistence

import (
	"context"
	"errors"
	"fmt"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScanLogAdapter implements out.ScanRunRepository on gmail_scan_logs.
type ScanLogAdapter struct {
	db *pgxpool.Pool
}

func NewScanLogAdapter(db *pgxpool.Pool) *ScanLogAdapter {
	return &ScanLogAdapter{db: db}
}

const scanLogColumns = `id, user_id, status, triggered_by, emails_scanned, subscriptions_found, error_message, started_at, completed_at`

func scanRun(row pgx.Row) (*domain.ScanRun, error) {
	var run domain.ScanRun
	var status, trigger string
	if err := row.Scan(
		&run.ID, &run.UserID, &status, &trigger, &run.EmailsScanned, &run.SubscriptionsFound,
		&run.ErrorMessage, &run.StartedAt, &run.CompletedAt,
	); err != nil {
		return nil, err
	}
	run.Status = domain.ScanStatus(status)
	run.Trigger = domain.ScanTrigger(trigger)
	return &run, nil
}

// Create inserts a running row unless one already exists for the user.
// uq_gmail_scan_logs_running (partial unique index on user_id WHERE status = 'running')
// rejects the insert when two statements race past the NOT EXISTS check.
func (a *ScanLogAdapter) Create(ctx context.Context, run *domain.ScanRun) error {
	query := `
		INSERT INTO gmail_scan_logs (user_id, status, triggered_by, started_at)
		SELECT $1, $2, $3, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM gmail_scan_logs WHERE user_id = $1 AND status = $2
		)
		RETURNING id, started_at`

	run.Status = domain.ScanRunning
	err := a.db.QueryRow(ctx, query, run.UserID, string(run.Status), string(run.Trigger)).
		Scan(&run.ID, &run.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return out.ErrRunActive
	}
	if err != nil {
		return fmt.Errorf("failed to create scan log: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Finish writes the terminal state of a run.
func (a *ScanLogAdapter) Finish(ctx context.Context, run *domain.ScanRun) error {
	query := `
		UPDATE gmail_scan_logs
		SET status = $1, emails_scanned = $2, subscriptions_found = $3, error_message = $4,
		    completed_at = COALESCE($5, NOW())
		WHERE id = $6`

	if _, err := a.db.Exec(ctx, query,
		string(run.Status), run.EmailsScanned, run.SubscriptionsFound, run.ErrorMessage, run.CompletedAt, run.ID,
	); err != nil {
		return fmt.Errorf("failed to finish scan log: %w", err)
	}
	return nil
}

// GetRunning returns the newest running row, or nil.
func (a *ScanLogAdapter) GetRunning(ctx context.Context, userID uuid.UUID) (*domain.ScanRun, error) {
	query := `SELECT ` + scanLogColumns + ` FROM gmail_scan_logs
		WHERE user_id = $1 AND status = 'running'
		ORDER BY started_at DESC LIMIT 1`

	run, err := scanRun(a.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running scan: %w", err)
	}
	return run, nil
}

func (a *ScanLogAdapter) GetLatest(ctx context.Context, userID uuid.UUID) (*domain.ScanRun, error) {
	query := `SELECT ` + scanLogColumns + ` FROM gmail_scan_logs
		WHERE user_id = $1
		ORDER BY started_at DESC LIMIT 1`

	run, err := scanRun(a.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan: %w", err)
	}
	return run, nil
}

func (a *ScanLogAdapter) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ScanRun, error) {
	query := `SELECT ` + scanLogColumns + ` FROM gmail_scan_logs
		WHERE user_id = $1
		ORDER BY started_at DESC LIMIT $2`

	rows, err := a.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ScanRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

var _ out.ScanRunRepository = (*ScanLogAdapter)(nil)
