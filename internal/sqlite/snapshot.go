package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ganot/taskmirror/internal/domain/task"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Replace swaps the whole snapshot for an email inside one transaction, so
// a concurrent reader sees either the previous snapshot or the new one.
func (r *SnapshotRepository) Replace(ctx context.Context, email string, tasks []task.Task, syncedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_snapshots WHERE email = ?`, email); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	insert := `
		INSERT INTO task_snapshots (
			email, task_id, position,
			project_id, project_name, project_identifier,
			title, description, priority,
			state_id, state_name, state_group,
			due_date, sequence_no, assignees_json,
			created_at, updated_at, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, tk := range tasks {
		assignees, err := json.Marshal(tk.Assignees)
		if err != nil {
			return fmt.Errorf("failed to encode assignees: %w", err)
		}

		var dueDate any
		if tk.DueDate != nil {
			dueDate = *tk.DueDate
		}

		_, err = tx.ExecContext(ctx, insert,
			email, tk.ID, i,
			tk.Project.ID, tk.Project.Name, tk.Project.Identifier,
			tk.Title, tk.Description, string(tk.Priority),
			tk.State.ID, tk.State.Name, tk.State.Group,
			dueDate, tk.SequenceNo, string(assignees),
			tk.CreatedAt, tk.UpdatedAt, syncedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// ListByEmail returns the cached snapshot for an email in the order it was
// written. No snapshot yields an empty list.
func (r *SnapshotRepository) ListByEmail(ctx context.Context, email string) ([]task.Task, error) {
	query := `
		SELECT task_id,
		       project_id, project_name, project_identifier,
		       title, description, priority,
		       state_id, state_name, state_group,
		       due_date, sequence_no, assignees_json,
		       created_at, updated_at
		FROM task_snapshots
		WHERE email = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var (
			tk                   task.Task
			priority             string
			dueDate              sql.NullTime
			createdAt, updatedAt sql.NullTime
			assigneesJSON        string
		)
		err := rows.Scan(
			&tk.ID,
			&tk.Project.ID, &tk.Project.Name, &tk.Project.Identifier,
			&tk.Title, &tk.Description, &priority,
			&tk.State.ID, &tk.State.Name, &tk.State.Group,
			&dueDate, &tk.SequenceNo, &assigneesJSON,
			&createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		tk.Priority = task.Priority(priority)
		if dueDate.Valid {
			due := dueDate.Time
			tk.DueDate = &due
		}
		if createdAt.Valid {
			tk.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			tk.UpdatedAt = updatedAt.Time
		}
		if err := json.Unmarshal([]byte(assigneesJSON), &tk.Assignees); err != nil {
			return nil, fmt.Errorf("failed to decode assignees: %w", err)
		}

		tasks = append(tasks, tk)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return tasks, nil
}
