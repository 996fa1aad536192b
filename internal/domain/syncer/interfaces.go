package syncer

import (
	"context"
	"time"

	"github.com/ganot/taskmirror/internal/domain/task"
)

// Aggregator performs the rate-limited live aggregation a refresh runs.
type Aggregator interface {
	GetUserTasks(ctx context.Context, email string) ([]task.Task, error)
}

// SnapshotRepository replaces cached snapshots wholesale.
type SnapshotRepository interface {
	Replace(ctx context.Context, email string, tasks []task.Task, syncedAt time.Time) error
}

// StatusRepository manages the per-email sync status rows.
type StatusRepository interface {
	TryStart(ctx context.Context, email string, startedAt time.Time) (bool, error)
	FinishSuccess(ctx context.Context, email string, completedAt time.Time, totalFound int) error
	FinishFailure(ctx context.Context, email, message string) error
	Get(ctx context.Context, email string) (*Status, error)
	ListStale(ctx context.Context, olderThan time.Time) ([]string, error)
}

// Notifier is told about completed refreshes. Implementations must tolerate
// being called from background goroutines; errors are logged and ignored.
type Notifier interface {
	NotifySyncComplete(ctx context.Context, email string, count int) error
	NotifySyncFailed(ctx context.Context, email, reason string) error
}
