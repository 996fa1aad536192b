package task

import (
	"strings"
	"time"
)

// Priority represents the urgency level assigned to a task.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Rank returns the sort rank of a priority; lower is more urgent.
// Unknown or unset priorities rank last, together with "none".
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// StateRef identifies the workflow state a task is in.
type StateRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

// ProjectRef identifies the project owning a task.
type ProjectRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier,omitempty"`
}

// AssigneeRef is the canonical assignee record, regardless of which of the
// remote API's representations it was resolved from.
type AssigneeRef struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Task is a work item owned by the remote tracker.
type Task struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Priority    Priority      `json:"priority"`
	State       StateRef      `json:"state"`
	Project     ProjectRef    `json:"project"`
	Assignees   []AssigneeRef `json:"assignees,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	SequenceNo  int           `json:"sequence_no"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsOverdue reports whether the task's due date falls on a calendar day
// before now. Tasks without a due date are never overdue.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return dateOf(*t.DueDate).Before(dateOf(now))
}

// IsDueToday reports whether the task's due date falls on the same calendar
// day as now.
func (t Task) IsDueToday(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return dateOf(*t.DueDate).Equal(dateOf(now))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// terminalStateNames are resolved state names that exclude a task from every
// read path.
var terminalStateNames = map[string]struct{}{
	"done":      {},
	"completed": {},
	"cancelled": {},
	"canceled":  {},
}

// IsTerminalState reports whether a workflow state name marks a task as
// finished or abandoned.
func IsTerminalState(name string) bool {
	_, ok := terminalStateNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// NormalizeEmail canonicalizes an email for identity comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
