package mocks

import (
	"context"
	"time"

	"github.com/ganot/taskmirror/internal/domain/syncer"
	"github.com/ganot/taskmirror/internal/domain/task"
	"github.com/stretchr/testify/mock"
)

// SnapshotRepository is a mock for repository.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) Replace(ctx context.Context, email string, tasks []task.Task, syncedAt time.Time) error {
	args := m.Called(ctx, email, tasks, syncedAt)
	return args.Error(0)
}

func (m *SnapshotRepository) ListByEmail(ctx context.Context, email string) ([]task.Task, error) {
	args := m.Called(ctx, email)
	if list, ok := args.Get(0).([]task.Task); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SyncStatusRepository is a mock for repository.SyncStatusRepository.
type SyncStatusRepository struct {
	mock.Mock
}

func (m *SyncStatusRepository) TryStart(ctx context.Context, email string, startedAt time.Time) (bool, error) {
	args := m.Called(ctx, email, startedAt)
	return args.Bool(0), args.Error(1)
}

func (m *SyncStatusRepository) FinishSuccess(ctx context.Context, email string, completedAt time.Time, totalFound int) error {
	args := m.Called(ctx, email, completedAt, totalFound)
	return args.Error(0)
}

func (m *SyncStatusRepository) FinishFailure(ctx context.Context, email, message string) error {
	args := m.Called(ctx, email, message)
	return args.Error(0)
}

func (m *SyncStatusRepository) Get(ctx context.Context, email string) (*syncer.Status, error) {
	args := m.Called(ctx, email)
	if status, ok := args.Get(0).(*syncer.Status); ok {
		return status, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SyncStatusRepository) ListStale(ctx context.Context, olderThan time.Time) ([]string, error) {
	args := m.Called(ctx, olderThan)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
