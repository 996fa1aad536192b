package repository

import (
	"context"
	"time"

	"github.com/ganot/taskmirror/internal/domain/syncer"
	"github.com/ganot/taskmirror/internal/domain/task"
)

// SnapshotRepository manages the per-email task snapshots. A snapshot is
// only ever replaced wholesale; there is no partial mutation path.
type SnapshotRepository interface {
	// Replace swaps the entire snapshot for email in one transaction.
	// Readers see either the old snapshot or the new one, never a mix.
	Replace(ctx context.Context, email string, tasks []task.Task, syncedAt time.Time) error
	// ListByEmail returns the last successfully written snapshot in write
	// order. An email with no snapshot yields an empty list, not an error.
	ListByEmail(ctx context.Context, email string) ([]task.Task, error)
}

// SyncStatusRepository manages the per-email sync status rows.
type SyncStatusRepository interface {
	// TryStart atomically transitions in_progress false→true and records
	// startedAt, clearing last_error. It reports false when another
	// caller already holds the flag; concurrent callers cannot both win.
	TryStart(ctx context.Context, email string, startedAt time.Time) (bool, error)
	// FinishSuccess clears in_progress and records a completed run.
	FinishSuccess(ctx context.Context, email string, completedAt time.Time, totalFound int) error
	// FinishFailure clears in_progress and records the error message,
	// leaving last_completed untouched.
	FinishFailure(ctx context.Context, email, message string) error
	// Get returns the status row for email.
	Get(ctx context.Context, email string) (*syncer.Status, error)
	// ListStale returns emails with no refresh running whose last
	// completion is older than the cutoff or missing entirely.
	ListStale(ctx context.Context, olderThan time.Time) ([]string, error)
}
