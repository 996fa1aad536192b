package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ganot/taskmirror/internal/domain/task"
)

// ListProjectMembers returns the members of one project.
func (c *Client) ListProjectMembers(ctx context.Context, projectID string) ([]Member, error) {
	raws, err := c.listAll(ctx, "/projects/"+projectID+"/members/", nil)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(raws))
	for _, raw := range raws {
		var p memberPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode member: %w", err)
		}
		members = append(members, p.toMember())
	}
	return members, nil
}

// ListWorkspaceMembers builds the workspace member list by unioning every
// project's membership, deduplicated by member id. The API has no
// workspace-level member listing. Projects the key cannot read (403) are
// skipped; a permission failure on one project must never abort the overall
// listing.
func (c *Client) ListWorkspaceMembers(ctx context.Context) ([]Member, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects for member union: %w", err)
	}
	return c.unionMembers(ctx, projects)
}

func (c *Client) unionMembers(ctx context.Context, projects []Project) ([]Member, error) {
	seen := make(map[string]struct{})
	var members []Member

	for _, proj := range projects {
		projMembers, err := c.ListProjectMembers(ctx, proj.ID)
		if err != nil {
			var te *Error
			if errors.As(err, &te) && te.StatusCode == 403 {
				c.logger.Debug("skipping project without member access", "project_id", proj.ID)
				continue
			}
			return nil, fmt.Errorf("listing members of project %s: %w", proj.ID, err)
		}
		for _, m := range projMembers {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			members = append(members, m)
		}
	}
	return members, nil
}

// FindMemberByEmail resolves an email to a workspace member, comparing after
// trim and lowercase. Returns ErrMemberNotFound when no membership carries
// the email; that is a first-class result, not conflated with "zero tasks".
func (c *Client) FindMemberByEmail(ctx context.Context, email string) (Member, error) {
	members, err := c.ListWorkspaceMembers(ctx)
	if err != nil {
		return Member{}, err
	}
	return findByEmail(members, email)
}

func findByEmail(members []Member, email string) (Member, error) {
	want := task.NormalizeEmail(email)
	if want == "" {
		return Member{}, ErrMemberNotFound
	}
	for _, m := range members {
		if task.NormalizeEmail(m.Email) == want {
			return m, nil
		}
	}
	return Member{}, ErrMemberNotFound
}
