package tracker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ganot/taskmirror/internal/domain/task"
)

// Project is a project as returned by the tracker API.
type Project struct {
	ID          string
	Name        string
	Identifier  string
	WorkspaceID string
}

// WorkflowState describes one workflow state of a project.
type WorkflowState struct {
	Name  string
	Color string
	Group string
}

// Member is a deduplicated workspace member.
type Member struct {
	ID          string
	Email       string
	DisplayName string
}

// Comment is a comment on an issue.
type Comment struct {
	ID        string
	IssueID   string
	Text      string
	ActorID   string
	CreatedAt time.Time
}

// Issue is the client's simplified view of a tracker issue. Assignees holds
// whatever the assignees field carried (full objects or bare ids resolved to
// id-only refs); AssigneeDetails holds the separate details objects some
// responses include instead.
type Issue struct {
	ID              string
	ProjectID       string
	Title           string
	Description     string
	Priority        string
	StateID         string
	State           *task.StateRef
	Assignees       []task.AssigneeRef
	AssigneeDetails []task.AssigneeRef
	DueDate         *time.Time
	SequenceNo      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasAssigneeData reports whether the issue carried any assignee information
// in any representation.
func (i Issue) HasAssigneeData() bool {
	return len(i.Assignees) > 0 || len(i.AssigneeDetails) > 0
}

// paginatedResponse is the list envelope every collection endpoint uses.
type paginatedResponse struct {
	Results         []json.RawMessage `json:"results"`
	NextCursor      string            `json:"next_cursor"`
	NextPageResults bool              `json:"next_page_results"`
	TotalResults    int               `json:"total_results"`
}

type projectPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Workspace  string `json:"workspace"`
}

type statePayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Group string `json:"group"`
}

// memberPayload tolerates both the flat member shape and the membership
// shape that nests the user under "member".
type memberPayload struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Member      *memberPayload `json:"member"`
}

func (p memberPayload) toMember() Member {
	if p.Member != nil {
		return p.Member.toMember()
	}
	return Member{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: displayName(p.DisplayName, p.FirstName, p.LastName),
	}
}

type assigneePayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

func (p assigneePayload) ref() task.AssigneeRef {
	return task.AssigneeRef{
		ID:    p.ID,
		Email: p.Email,
		Name:  displayName(p.DisplayName, p.FirstName, p.LastName),
	}
}

func displayName(display, first, last string) string {
	if display != "" {
		return display
	}
	return strings.TrimSpace(first + " " + last)
}

type issuePayload struct {
	ID              string            `json:"id"`
	Project         string            `json:"project"`
	Name            string            `json:"name"`
	Description     string            `json:"description_stripped"`
	Priority        string            `json:"priority"`
	State           json.RawMessage   `json:"state"`
	Assignees       []json.RawMessage `json:"assignees"`
	AssigneeDetails []assigneePayload `json:"assignee_details"`
	TargetDate      string            `json:"target_date"`
	SequenceID      int               `json:"sequence_id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// parseAssignee resolves one assignee entry into the canonical ref. The
// remote API serializes assignees either as full objects or as bare id
// strings depending on how the issue was fetched.
func parseAssignee(raw json.RawMessage) (task.AssigneeRef, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return task.AssigneeRef{}, fmt.Errorf("decode assignee id: %w", err)
		}
		return task.AssigneeRef{ID: id}, nil
	}

	var obj assigneePayload
	if err := json.Unmarshal(raw, &obj); err != nil {
		return task.AssigneeRef{}, fmt.Errorf("decode assignee object: %w", err)
	}
	return obj.ref(), nil
}

func (p issuePayload) toIssue(projectID string) (Issue, error) {
	issue := Issue{
		ID:          p.ID,
		ProjectID:   projectID,
		Title:       p.Name,
		Description: p.Description,
		Priority:    p.Priority,
		SequenceNo:  p.SequenceID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if issue.ProjectID == "" {
		issue.ProjectID = p.Project
	}

	if len(p.State) > 0 {
		trimmed := strings.TrimSpace(string(p.State))
		if strings.HasPrefix(trimmed, `"`) {
			if err := json.Unmarshal(p.State, &issue.StateID); err != nil {
				return Issue{}, fmt.Errorf("decode state id: %w", err)
			}
		} else if trimmed != "null" {
			var st statePayload
			if err := json.Unmarshal(p.State, &st); err != nil {
				return Issue{}, fmt.Errorf("decode state object: %w", err)
			}
			issue.StateID = st.ID
			issue.State = &task.StateRef{ID: st.ID, Name: st.Name, Group: st.Group}
		}
	}

	for _, raw := range p.Assignees {
		ref, err := parseAssignee(raw)
		if err != nil {
			return Issue{}, err
		}
		issue.Assignees = append(issue.Assignees, ref)
	}
	for _, detail := range p.AssigneeDetails {
		issue.AssigneeDetails = append(issue.AssigneeDetails, detail.ref())
	}

	if p.TargetDate != "" {
		due, err := time.Parse("2006-01-02", p.TargetDate)
		if err != nil {
			return Issue{}, fmt.Errorf("parse target date %q: %w", p.TargetDate, err)
		}
		issue.DueDate = &due
	}

	return issue, nil
}

type commentPayload struct {
	ID          string    `json:"id"`
	Issue       string    `json:"issue"`
	CommentHTML string    `json:"comment_html"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p commentPayload) toComment() Comment {
	return Comment{
		ID:        p.ID,
		IssueID:   p.Issue,
		Text:      p.CommentHTML,
		ActorID:   p.Actor,
		CreatedAt: p.CreatedAt,
	}
}
