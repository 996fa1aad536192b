package tracker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListProjectIssues_RequestsExpand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/workspaces/acme/projects/p1/issues/", r.URL.Path)
		require.Equal(t, "assignees,state", r.URL.Query().Get("expand"))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id":        "i1",
					"name":      "Fix login",
					"priority":  "high",
					"state":     map[string]any{"id": "s1", "name": "In Progress", "group": "started"},
					"assignees": []map[string]any{{"id": "u1", "email": "dev@acme.io"}},
				},
			},
			"next_page_results": false,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())
	issues, err := c.ListProjectIssues(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "p1", issues[0].ProjectID)
	require.Equal(t, "In Progress", issues[0].State.Name)
}

func TestUpdateIssueState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/v1/workspaces/acme/projects/p1/issues/i1/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"state":"s2"}`, string(body))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())
	require.NoError(t, c.UpdateIssueState(context.Background(), "p1", "i1", "s2"))
}

func TestSetIssueAssignees(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"assignees":["u1","u2"]}`, string(body))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())
	require.NoError(t, c.SetIssueAssignees(context.Background(), "p1", "i1", []string{"u1", "u2"}))
}

func TestCreateAndListComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/workspaces/acme/projects/p1/issues/i1/comments/", r.URL.Path)
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			require.JSONEq(t, `{"comment_html":"<p>done</p>"}`, string(body))
			json.NewEncoder(w).Encode(map[string]any{
				"id": "c1", "issue": "i1", "comment_html": "<p>done</p>", "actor": "u1",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": "c1", "issue": "i1", "comment_html": "<p>done</p>", "actor": "u1"},
			},
			"next_page_results": false,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())

	created, err := c.CreateComment(context.Background(), "p1", "i1", "<p>done</p>")
	require.NoError(t, err)
	require.Equal(t, "c1", created.ID)
	require.Equal(t, "i1", created.IssueID)

	comments, err := c.ListComments(context.Background(), "p1", "i1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "<p>done</p>", comments[0].Text)
}
