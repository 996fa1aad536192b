package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ListProjectIssues fetches all issues of a project, asking the API to
// inline assignees and state so most issues need no extra round trips.
func (c *Client) ListProjectIssues(ctx context.Context, projectID string) ([]Issue, error) {
	params := url.Values{}
	params.Set("expand", "assignees,state")

	raws, err := c.listAll(ctx, "/projects/"+projectID+"/issues/", params)
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raws))
	for _, raw := range raws {
		var p issuePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode issue: %w", err)
		}
		issue, err := p.toIssue(projectID)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// UpdateIssueState moves an issue to the given workflow state.
func (c *Client) UpdateIssueState(ctx context.Context, projectID, issueID, stateID string) error {
	endpoint := "/projects/" + projectID + "/issues/" + issueID + "/"
	body := map[string]string{"state": stateID}
	return c.request(ctx, http.MethodPatch, endpoint, nil, body, nil)
}

// SetIssueAssignees replaces an issue's assignee set with the given member
// ids.
func (c *Client) SetIssueAssignees(ctx context.Context, projectID, issueID string, memberIDs []string) error {
	endpoint := "/projects/" + projectID + "/issues/" + issueID + "/"
	body := map[string][]string{"assignees": memberIDs}
	return c.request(ctx, http.MethodPatch, endpoint, nil, body, nil)
}

// CreateComment adds a comment to an issue.
func (c *Client) CreateComment(ctx context.Context, projectID, issueID, commentHTML string) (Comment, error) {
	endpoint := "/projects/" + projectID + "/issues/" + issueID + "/comments/"
	body := map[string]string{"comment_html": commentHTML}

	var p commentPayload
	if err := c.request(ctx, http.MethodPost, endpoint, nil, body, &p); err != nil {
		return Comment{}, err
	}
	return p.toComment(), nil
}

// ListComments returns an issue's comments.
func (c *Client) ListComments(ctx context.Context, projectID, issueID string) ([]Comment, error) {
	endpoint := "/projects/" + projectID + "/issues/" + issueID + "/comments/"

	raws, err := c.listAll(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(raws))
	for _, raw := range raws {
		var p commentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		comments = append(comments, p.toComment())
	}
	return comments, nil
}
