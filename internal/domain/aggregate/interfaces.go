package aggregate

import (
	"context"

	"github.com/ganot/taskmirror/internal/tracker"
)

// Catalog lists projects and their workflow states.
type Catalog interface {
	ListProjects(ctx context.Context) ([]tracker.Project, error)
	GetWorkflowStates(ctx context.Context, projectID string) (map[string]tracker.WorkflowState, error)
}

// Directory lists workspace members.
type Directory interface {
	ListWorkspaceMembers(ctx context.Context) ([]tracker.Member, error)
}

// IssueSource lists a project's issues with assignees and state expanded.
type IssueSource interface {
	ListProjectIssues(ctx context.Context, projectID string) ([]tracker.Issue, error)
}
