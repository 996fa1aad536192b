package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ganot/taskmirror/internal/domain/task"
)

// Service coordinates background cache refreshes. The sync_status row's
// in_progress flag is the only shared mutable state; its compare-and-set
// transition guarantees at most one in-flight refresh per email. A failed
// refresh records its error and leaves the previous snapshot untouched.
type Service struct {
	aggregator Aggregator
	snapshots  SnapshotRepository
	statuses   StatusRepository
	notifier   Notifier
	logger     *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
	wg    sync.WaitGroup
}

// NewService creates a sync coordinator. notifier may be nil.
func NewService(
	aggregator Aggregator,
	snapshots SnapshotRepository,
	statuses StatusRepository,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return &Service{
		aggregator: aggregator,
		snapshots:  snapshots,
		statuses:   statuses,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// StartSync claims the refresh flag for email and, on success, schedules the
// refresh in the background; the caller never blocks on completion. A
// refused claim ({Started: false}) is the expected no-op when a refresh is
// already running, not an error. onComplete, if non-nil, runs after the
// background refresh finishes, with its error.
func (s *Service) StartSync(ctx context.Context, email string, onComplete func(error)) (StartResult, error) {
	email = task.NormalizeEmail(email)
	if email == "" {
		return StartResult{}, task.ErrInvalidInput
	}

	started, err := s.statuses.TryStart(ctx, email, s.now())
	if err != nil {
		return StartResult{}, fmt.Errorf("claiming sync flag: %w", err)
	}
	if !started {
		return StartResult{Started: false}, nil
	}

	runID := uuid.NewString()
	s.logger.Info("sync started", "email", email, "run_id", runID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The refresh outlives the request that triggered it.
		err := s.refresh(context.Background(), email, runID)
		if onComplete != nil {
			onComplete(err)
		}
	}()

	return StartResult{Started: true}, nil
}

// refresh runs the rate-limited aggregation and commits the outcome. The
// snapshot is only written on success; any failure path records the error on
// the status row and preserves whatever snapshot existed before.
func (s *Service) refresh(ctx context.Context, email, runID string) error {
	tasks, err := s.aggregator.GetUserTasks(ctx, email)
	if err != nil {
		s.fail(ctx, email, runID, err)
		return err
	}

	// The aggregator already drops terminal tasks; filter again so a bad
	// upstream payload can never park a finished task in the cache.
	kept := tasks[:0:0]
	for _, tk := range tasks {
		if task.IsTerminalState(tk.State.Name) {
			continue
		}
		kept = append(kept, tk)
	}

	if err := s.snapshots.Replace(ctx, email, kept, s.now()); err != nil {
		err = fmt.Errorf("replacing snapshot: %w", err)
		s.fail(ctx, email, runID, err)
		return err
	}

	if err := s.statuses.FinishSuccess(ctx, email, s.now(), len(kept)); err != nil {
		s.logger.Error("recording sync success failed", "email", email, "run_id", runID, "error", err)
		return err
	}

	s.logger.Info("sync completed", "email", email, "run_id", runID, "total_found", len(kept))
	if s.notifier != nil {
		if err := s.notifier.NotifySyncComplete(ctx, email, len(kept)); err != nil {
			s.logger.Warn("sync notification failed", "email", email, "error", err)
		}
	}
	return nil
}

func (s *Service) fail(ctx context.Context, email, runID string, cause error) {
	s.logger.Warn("sync failed", "email", email, "run_id", runID, "error", cause)

	if err := s.statuses.FinishFailure(ctx, email, cause.Error()); err != nil {
		s.logger.Error("recording sync failure failed", "email", email, "run_id", runID, "error", err)
	}
	if s.notifier != nil {
		if err := s.notifier.NotifySyncFailed(ctx, email, cause.Error()); err != nil {
			s.logger.Warn("sync notification failed", "email", email, "error", err)
		}
	}
}

// Status returns the sync status row for email. An email that has never
// been synced surfaces as the repository's not-found error.
func (s *Service) Status(ctx context.Context, email string) (*Status, error) {
	return s.statuses.Get(ctx, task.NormalizeEmail(email))
}

// SweepStale starts a refresh for every idle email whose last completed sync
// is older than staleness or missing, spacing the starts to avoid bursting
// the rate-limited remote. It returns how many refreshes were started.
func (s *Service) SweepStale(ctx context.Context, staleness, spacing time.Duration) (int, error) {
	cutoff := s.now().Add(-staleness)
	emails, err := s.statuses.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing stale syncs: %w", err)
	}

	started := 0
	for i, email := range emails {
		if i > 0 && spacing > 0 {
			s.sleep(spacing)
		}
		result, err := s.StartSync(ctx, email, nil)
		if err != nil {
			s.logger.Warn("stale sweep start failed", "email", email, "error", err)
			continue
		}
		if result.Started {
			started++
		}
	}
	return started, nil
}

// Wait blocks until every in-flight background refresh has finished. Used
// on shutdown and by tests.
func (s *Service) Wait() {
	s.wg.Wait()
}
