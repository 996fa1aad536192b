package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ganot/taskmirror/internal/domain/syncer"
	"github.com/ganot/taskmirror/internal/repository"
)

// SyncStatusRepository implements repository.SyncStatusRepository for SQLite
type SyncStatusRepository struct {
	db *DB
}

// NewSyncStatusRepository creates a new SyncStatusRepository
func NewSyncStatusRepository(db *DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// TryStart claims the in_progress flag for an email in a single upsert. The
// conditional update makes it a compare-and-set: concurrent callers race on
// one statement and only the winner sees an affected row.
func (r *SyncStatusRepository) TryStart(ctx context.Context, email string, startedAt time.Time) (bool, error) {
	query := `
		INSERT INTO sync_status (email, in_progress, last_started)
		VALUES (?, 1, ?)
		ON CONFLICT(email) DO UPDATE SET
			in_progress = 1,
			last_started = excluded.last_started,
			last_error = NULL
		WHERE sync_status.in_progress = 0
	`

	result, err := r.db.ExecContext(ctx, query, email, startedAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim sync flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// FinishSuccess releases the flag and records a completed run.
func (r *SyncStatusRepository) FinishSuccess(ctx context.Context, email string, completedAt time.Time, totalFound int) error {
	query := `
		UPDATE sync_status
		SET in_progress = 0, last_completed = ?, last_error = NULL, total_found = ?
		WHERE email = ?
	`

	result, err := r.db.ExecContext(ctx, query, completedAt, totalFound, email)
	if err != nil {
		return fmt.Errorf("failed to finish sync: %w", err)
	}
	return requireRow(result)
}

// FinishFailure releases the flag and records the error. last_completed and
// total_found keep their previous values.
func (r *SyncStatusRepository) FinishFailure(ctx context.Context, email, message string) error {
	query := `
		UPDATE sync_status
		SET in_progress = 0, last_error = ?
		WHERE email = ?
	`

	result, err := r.db.ExecContext(ctx, query, message, email)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return requireRow(result)
}

// Get retrieves the sync status row for an email.
func (r *SyncStatusRepository) Get(ctx context.Context, email string) (*syncer.Status, error) {
	query := `
		SELECT email, in_progress, last_started, last_completed, last_error, total_found
		FROM sync_status
		WHERE email = ?
	`

	var (
		status                     syncer.Status
		inProgress                 int
		lastStarted, lastCompleted sql.NullTime
		lastError                  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&status.Email,
		&inProgress,
		&lastStarted,
		&lastCompleted,
		&lastError,
		&status.TotalFound,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	status.InProgress = inProgress != 0
	if lastStarted.Valid {
		t := lastStarted.Time
		status.LastStarted = &t
	}
	if lastCompleted.Valid {
		t := lastCompleted.Time
		status.LastCompleted = &t
	}
	if lastError.Valid {
		msg := lastError.String
		status.LastError = &msg
	}

	return &status, nil
}

// ListStale returns emails that are idle and whose last completed run is
// older than the cutoff or missing.
func (r *SyncStatusRepository) ListStale(ctx context.Context, olderThan time.Time) ([]string, error) {
	query := `
		SELECT email
		FROM sync_status
		WHERE in_progress = 0
		  AND (last_completed IS NULL OR last_completed < ?)
		ORDER BY email ASC
	`

	rows, err := r.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale statuses: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan stale status: %w", err)
		}
		emails = append(emails, email)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale statuses: %w", err)
	}

	return emails, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
