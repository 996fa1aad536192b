package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ganot/taskmirror/internal/domain/task"
)

// SnapshotReader reads the last-known-good task snapshot for an email.
type SnapshotReader interface {
	ListByEmail(ctx context.Context, email string) ([]task.Task, error)
}

// Filters selects which due-date buckets a cached read includes.
type Filters struct {
	IncludeOverdue  bool
	IncludeDueToday bool
	IncludeUpcoming bool
}

// All returns filters that include every bucket.
func All() Filters {
	return Filters{IncludeOverdue: true, IncludeDueToday: true, IncludeUpcoming: true}
}

// Service reads cached task snapshots. It never touches the network; it
// returns whatever the last successful sync wrote, which may be stale.
type Service struct {
	snapshots SnapshotReader
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a cache read service. now is the clock used for bucket
// classification; nil means time.Now.
func NewService(snapshots SnapshotReader, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return &Service{snapshots: snapshots, now: now, logger: logger}
}

// Read returns the cached tasks for email, classified into exactly one of
// the overdue / due-today / upcoming buckets, filtered per the flags,
// sorted by the canonical order, and truncated to maxCount (0 means no
// limit).
func (s *Service) Read(ctx context.Context, email string, filters Filters, maxCount int) ([]task.Task, error) {
	email = task.NormalizeEmail(email)
	if email == "" {
		return nil, task.ErrInvalidInput
	}

	cached, err := s.snapshots.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	now := s.now()
	selected := make([]task.Task, 0, len(cached))
	for _, tk := range cached {
		switch task.Classify(tk, now) {
		case task.BucketOverdue:
			if filters.IncludeOverdue {
				selected = append(selected, tk)
			}
		case task.BucketDueToday:
			if filters.IncludeDueToday {
				selected = append(selected, tk)
			}
		case task.BucketUpcoming:
			if filters.IncludeUpcoming {
				selected = append(selected, tk)
			}
		}
	}

	task.SortTasks(selected)
	if maxCount > 0 && len(selected) > maxCount {
		selected = selected[:maxCount]
	}
	return selected, nil
}
