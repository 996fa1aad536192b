package aggregate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ganot/taskmirror/internal/domain/task"
	"github.com/ganot/taskmirror/internal/tracker"
)

// defaultMaxInFlight bounds concurrent per-project fetches so aggregate
// concurrency never exceeds a fixed ceiling regardless of workspace size.
const defaultMaxInFlight = 50

// Service aggregates a user's open tasks across every project in the
// workspace. It holds no state; each call fans out fresh against the
// tracker.
type Service struct {
	catalog     Catalog
	directory   Directory
	issues      IssueSource
	maxInFlight int
	logger      *slog.Logger
}

// NewService creates a new task aggregation service. maxInFlight bounds the
// per-project fan-out; zero or negative means the default of 50.
func NewService(catalog Catalog, directory Directory, issues IssueSource, maxInFlight int, logger *slog.Logger) *Service {
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return &Service{
		catalog:     catalog,
		directory:   directory,
		issues:      issues,
		maxInFlight: maxInFlight,
		logger:      logger,
	}
}

// GetUserTasks returns every non-terminal task assigned to the given email,
// sorted by the canonical order. An email that matches no workspace member
// fails with task.ErrEmailNotRecognized so callers can tell "unknown user"
// apart from "no tasks". Catalog and member listing failures abort the whole
// call; a failure scoped to one project only empties that project's
// contribution.
func (s *Service) GetUserTasks(ctx context.Context, email string) ([]task.Task, error) {
	projects, err := s.catalog.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	if len(projects) == 0 {
		return []task.Task{}, nil
	}

	members, err := s.directory.ListWorkspaceMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing workspace members: %w", err)
	}

	want := task.NormalizeEmail(email)
	idToEmail := make(map[string]string, len(members))
	known := false
	for _, m := range members {
		normalized := task.NormalizeEmail(m.Email)
		idToEmail[m.ID] = normalized
		if normalized != "" && normalized == want {
			known = true
		}
	}
	if !known {
		return nil, fmt.Errorf("%q: %w", email, task.ErrEmailNotRecognized)
	}

	perProject := make([][]task.Task, len(projects))

	g := &errgroup.Group{}
	g.SetLimit(s.maxInFlight)
	for i, proj := range projects {
		i, proj := i, proj
		g.Go(func() error {
			matched := s.collectProject(ctx, proj, want, idToEmail)
			perProject[i] = matched
			return nil
		})
	}
	// Workers swallow their own errors, so Wait only synchronizes.
	_ = g.Wait()

	var merged []task.Task
	for _, tasks := range perProject {
		merged = append(merged, tasks...)
	}
	task.SortTasks(merged)
	if merged == nil {
		merged = []task.Task{}
	}
	return merged, nil
}

// collectProject fetches and filters one project's issues. All failures are
// logged and degrade to an empty contribution; they never abort the overall
// aggregation.
func (s *Service) collectProject(ctx context.Context, proj tracker.Project, want string, idToEmail map[string]string) []task.Task {
	issues, err := s.issues.ListProjectIssues(ctx, proj.ID)
	if err != nil {
		s.logger.Warn("skipping project after issue fetch error",
			"project_id", proj.ID, "project", proj.Name, "error", err)
		return nil
	}

	// States are only fetched when some issue came back without an inline
	// state, at most once per project.
	var states map[string]tracker.WorkflowState
	statesErr := false

	var matched []task.Task
	for _, issue := range issues {
		state := issue.State
		if state == nil && issue.StateID != "" && !statesErr {
			if states == nil {
				states, err = s.catalog.GetWorkflowStates(ctx, proj.ID)
				if err != nil {
					s.logger.Warn("workflow state lookup failed",
						"project_id", proj.ID, "error", err)
					statesErr = true
				}
			}
			if st, ok := states[issue.StateID]; ok {
				state = &task.StateRef{ID: issue.StateID, Name: st.Name, Group: st.Group}
			}
		}
		if state == nil {
			state = &task.StateRef{ID: issue.StateID}
		}

		if task.IsTerminalState(state.Name) {
			continue
		}
		if !issue.HasAssigneeData() {
			continue
		}
		if !matchesAssignee(issue, want, idToEmail) {
			continue
		}

		matched = append(matched, buildTask(issue, proj, *state, idToEmail))
	}
	return matched
}

// matchesAssignee applies the three matching strategies in order, first
// match wins: an inline assignee object carrying the email, a bare assignee
// id resolved through the member map, then the separate assignee_details
// objects. The response shape for assignees varies with how the issue was
// fetched, hence the three paths; contradictions between them are not
// cross-checked.
func matchesAssignee(issue tracker.Issue, want string, idToEmail map[string]string) bool {
	for _, a := range issue.Assignees {
		if a.Email != "" && task.NormalizeEmail(a.Email) == want {
			return true
		}
	}
	for _, a := range issue.Assignees {
		if a.Email == "" && idToEmail[a.ID] == want {
			return true
		}
	}
	for _, d := range issue.AssigneeDetails {
		if task.NormalizeEmail(d.Email) == want {
			return true
		}
	}
	return false
}

func buildTask(issue tracker.Issue, proj tracker.Project, state task.StateRef, idToEmail map[string]string) task.Task {
	assignees := issue.Assignees
	if len(assignees) == 0 {
		assignees = issue.AssigneeDetails
	}

	refs := make([]task.AssigneeRef, 0, len(assignees))
	for _, a := range assignees {
		if a.Email == "" {
			a.Email = idToEmail[a.ID]
		}
		refs = append(refs, a)
	}

	priority := task.Priority(strings.ToLower(issue.Priority))
	if priority == "" {
		priority = task.PriorityNone
	}

	return task.Task{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Priority:    priority,
		State:       state,
		Project: task.ProjectRef{
			ID:         proj.ID,
			Name:       proj.Name,
			Identifier: proj.Identifier,
		},
		Assignees:  refs,
		DueDate:    issue.DueDate,
		SequenceNo: issue.SequenceNo,
		CreatedAt:  issue.CreatedAt,
		UpdatedAt:  issue.UpdatedAt,
	}
}
