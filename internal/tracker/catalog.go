package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListProjects returns every project in the workspace in the order the
// remote API returned them.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	raws, err := c.listAll(ctx, "/projects/", nil)
	if err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(raws))
	for _, raw := range raws {
		var p projectPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		projects = append(projects, Project{
			ID:          p.ID,
			Name:        p.Name,
			Identifier:  p.Identifier,
			WorkspaceID: p.Workspace,
		})
	}
	return projects, nil
}

// GetWorkflowStates returns a project's workflow states keyed by state id.
// Used as a fallback when an issue's state was not inlined by an expand
// query.
func (c *Client) GetWorkflowStates(ctx context.Context, projectID string) (map[string]WorkflowState, error) {
	endpoint := "/projects/" + projectID + "/states/"

	var page paginatedResponse
	if err := c.request(ctx, http.MethodGet, endpoint, nil, nil, &page); err != nil {
		return nil, err
	}

	states := make(map[string]WorkflowState, len(page.Results))
	for _, raw := range page.Results {
		var st statePayload
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("decode workflow state: %w", err)
		}
		states[st.ID] = WorkflowState{Name: st.Name, Color: st.Color, Group: st.Group}
	}
	return states, nil
}
