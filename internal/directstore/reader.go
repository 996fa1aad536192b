// Package directstore reads open tasks straight from the tracker's backing
// database, bypassing the rate-limited HTTP API. It is read-only and returns
// results in the same canonical order as the live aggregation.
package directstore

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ganot/taskmirror/internal/domain/task"
)

// Placeholder selects the bind-parameter syntax for the underlying driver.
type Placeholder int

const (
	// PlaceholderQuestion is the `?` style used by sqlite.
	PlaceholderQuestion Placeholder = iota
	// PlaceholderDollar is the `$1` style used by PostgreSQL.
	PlaceholderDollar
)

// rebind rewrites `?` placeholders to `$n` when the driver needs them.
func (p Placeholder) rebind(query string) string {
	if p != PlaceholderDollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const issuesQuery = `
SELECT i.id, i.title, i.description, i.priority, i.due_date, i.sequence_no,
       i.created_at, i.updated_at,
       p.id, p.name, p.identifier,
       s.id, s.name, s."group"
FROM issues i
JOIN projects p ON p.id = i.project_id
JOIN states s ON s.id = i.state_id
WHERE lower(s.name) NOT IN ('done', 'completed', 'cancelled', 'canceled')
  AND EXISTS (
    SELECT 1
    FROM issue_assignees ia
    JOIN users u ON u.id = ia.user_id
    WHERE ia.issue_id = i.id AND lower(u.email) = ?
  )`

const assigneesQuery = `
SELECT ia.issue_id, u.id, u.email, u.display_name
FROM issue_assignees ia
JOIN users u ON u.id = ia.user_id
WHERE ia.issue_id IN (
  SELECT ia2.issue_id
  FROM issue_assignees ia2
  JOIN users u2 ON u2.id = ia2.user_id
  WHERE lower(u2.email) = ?
)`

// Reader queries the tracker database directly.
type Reader struct {
	db          *sql.DB
	placeholder Placeholder
	logger      *slog.Logger
}

// NewReader creates a direct-store reader over db.
func NewReader(db *sql.DB, placeholder Placeholder, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return &Reader{db: db, placeholder: placeholder, logger: logger}
}

// GetUserTasks returns all open tasks assigned to email across every
// project, sorted by the canonical order. An email with no assignments
// yields an empty list; the store has no member directory to distinguish
// unknown users from idle ones.
func (r *Reader) GetUserTasks(ctx context.Context, email string) ([]task.Task, error) {
	email = task.NormalizeEmail(email)
	if email == "" {
		return nil, task.ErrInvalidInput
	}

	tasks, err := r.queryIssues(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return []task.Task{}, nil
	}

	assignees, err := r.queryAssignees(ctx, email)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Assignees = assignees[tasks[i].ID]
	}

	task.SortTasks(tasks)
	return tasks, nil
}

func (r *Reader) queryIssues(ctx context.Context, email string) ([]task.Task, error) {
	rows, err := r.db.QueryContext(ctx, r.placeholder.rebind(issuesQuery), email)
	if err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var (
			tk          task.Task
			description sql.NullString
			priority    sql.NullString
			dueDate     sql.NullTime
			createdAt   sql.NullTime
			updatedAt   sql.NullTime
		)
		err := rows.Scan(
			&tk.ID, &tk.Title, &description, &priority, &dueDate, &tk.SequenceNo,
			&createdAt, &updatedAt,
			&tk.Project.ID, &tk.Project.Name, &tk.Project.Identifier,
			&tk.State.ID, &tk.State.Name, &tk.State.Group,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning issue row: %w", err)
		}
		tk.Description = description.String
		if priority.Valid && priority.String != "" {
			tk.Priority = task.Priority(strings.ToLower(priority.String))
		} else {
			tk.Priority = task.PriorityNone
		}
		if dueDate.Valid {
			d := dueDate.Time
			tk.DueDate = &d
		}
		tk.CreatedAt = createdAt.Time
		tk.UpdatedAt = updatedAt.Time
		tasks = append(tasks, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading issue rows: %w", err)
	}
	return tasks, nil
}

func (r *Reader) queryAssignees(ctx context.Context, email string) (map[string][]task.AssigneeRef, error) {
	rows, err := r.db.QueryContext(ctx, r.placeholder.rebind(assigneesQuery), email)
	if err != nil {
		return nil, fmt.Errorf("querying assignees: %w", err)
	}
	defer rows.Close()

	byIssue := make(map[string][]task.AssigneeRef)
	for rows.Next() {
		var (
			issueID string
			ref     task.AssigneeRef
			name    sql.NullString
		)
		if err := rows.Scan(&issueID, &ref.ID, &ref.Email, &name); err != nil {
			return nil, fmt.Errorf("scanning assignee row: %w", err)
		}
		ref.Name = name.String
		byIssue[issueID] = append(byIssue[issueID], ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading assignee rows: %w", err)
	}
	return byIssue, nil
}
