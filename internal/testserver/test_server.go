// Package testserver runs a fixture-driven fake of the remote tracker API
// for integration tests.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ganot/taskmirror/internal/tracker"
)

const (
	APIKey    = "test-api-key"
	Workspace = "acme"
)

// State is a workflow state fixture.
type State struct {
	ID    string
	Name  string
	Group string
}

// Member is a project member fixture.
type Member struct {
	ID    string
	Email string
	Name  string
}

// Issue is an issue fixture. AssigneeIDs reference Member ids; TargetDate is
// a YYYY-MM-DD string or empty.
type Issue struct {
	ID          string
	Title       string
	Priority    string
	StateID     string
	AssigneeIDs []string
	TargetDate  string
	SequenceNo  int
}

// Project is a project fixture. MembersForbidden makes the members endpoint
// return 403, mimicking a project the API key cannot read.
type Project struct {
	ID               string
	Name             string
	Identifier       string
	MembersForbidden bool
	States           []State
	Members          []Member
	Issues           []Issue
}

// Fixture is the full workspace a test server exposes.
type Fixture struct {
	Projects []Project

	// RateLimitFirst makes the server answer 429 to that many requests
	// before behaving normally, to exercise retry handling end to end.
	RateLimitFirst int
}

// TestServer is a running fake tracker.
type TestServer struct {
	Server  *httptest.Server
	fixture Fixture
	denied  atomic.Int64
}

// New starts a fake tracker serving fixture and registers its shutdown with
// t.Cleanup.
func New(t *testing.T, fixture Fixture) *TestServer {
	t.Helper()

	ts := &TestServer{fixture: fixture}
	ts.denied.Store(int64(fixture.RateLimitFirst))

	r := chi.NewRouter()
	r.Use(ts.requireAPIKey)
	r.Route("/api/v1/workspaces/"+Workspace, func(r chi.Router) {
		r.Get("/projects/", ts.handleProjects)
		r.Get("/projects/{projectID}/members/", ts.handleMembers)
		r.Get("/projects/{projectID}/states/", ts.handleStates)
		r.Get("/projects/{projectID}/issues/", ts.handleIssues)
	})

	ts.Server = httptest.NewServer(r)
	t.Cleanup(ts.Server.Close)
	return ts
}

// ClientConfig returns a tracker client config pointed at this server, with
// retry sleeps disabled so rate-limit tests finish instantly.
func (ts *TestServer) ClientConfig() tracker.Config {
	return tracker.Config{
		BaseURL:   ts.Server.URL,
		APIKey:    APIKey,
		Workspace: Workspace,
		Timeout:   5 * time.Second,
		Retry: tracker.Backoff{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Sleep:       func(time.Duration) {},
		},
	}
}

func (ts *TestServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != APIKey {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
			return
		}
		if ts.denied.Add(-1) >= 0 {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ts *TestServer) project(id string) *Project {
	for i := range ts.fixture.Projects {
		if ts.fixture.Projects[i].ID == id {
			return &ts.fixture.Projects[i]
		}
	}
	return nil
}

func (ts *TestServer) handleProjects(w http.ResponseWriter, _ *http.Request) {
	results := make([]any, 0, len(ts.fixture.Projects))
	for _, p := range ts.fixture.Projects {
		results = append(results, map[string]any{
			"id":         p.ID,
			"name":       p.Name,
			"identifier": p.Identifier,
			"workspace":  Workspace,
		})
	}
	writePage(w, results)
}

func (ts *TestServer) handleMembers(w http.ResponseWriter, r *http.Request) {
	p := ts.project(chi.URLParam(r, "projectID"))
	if p == nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	if p.MembersForbidden {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	results := make([]any, 0, len(p.Members))
	for _, m := range p.Members {
		// Membership rows nest the user under "member".
		results = append(results, map[string]any{
			"id": "membership-" + m.ID,
			"member": map[string]any{
				"id":           m.ID,
				"email":        m.Email,
				"display_name": m.Name,
			},
		})
	}
	writePage(w, results)
}

func (ts *TestServer) handleStates(w http.ResponseWriter, r *http.Request) {
	p := ts.project(chi.URLParam(r, "projectID"))
	if p == nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	results := make([]any, 0, len(p.States))
	for _, s := range p.States {
		results = append(results, map[string]any{
			"id":    s.ID,
			"name":  s.Name,
			"group": s.Group,
		})
	}
	writePage(w, results)
}

func (ts *TestServer) handleIssues(w http.ResponseWriter, r *http.Request) {
	p := ts.project(chi.URLParam(r, "projectID"))
	if p == nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	expanded := r.URL.Query().Get("expand") != ""

	memberByID := make(map[string]Member)
	for _, m := range p.Members {
		memberByID[m.ID] = m
	}
	stateByID := make(map[string]State)
	for _, s := range p.States {
		stateByID[s.ID] = s
	}

	results := make([]any, 0, len(p.Issues))
	for _, issue := range p.Issues {
		payload := map[string]any{
			"id":          issue.ID,
			"project":     p.ID,
			"name":        issue.Title,
			"priority":    issue.Priority,
			"sequence_id": issue.SequenceNo,
		}
		if issue.TargetDate != "" {
			payload["target_date"] = issue.TargetDate
		}

		if expanded {
			if s, ok := stateByID[issue.StateID]; ok {
				payload["state"] = map[string]any{"id": s.ID, "name": s.Name, "group": s.Group}
			}
			assignees := make([]any, 0, len(issue.AssigneeIDs))
			for _, id := range issue.AssigneeIDs {
				m := memberByID[id]
				assignees = append(assignees, map[string]any{
					"id":           id,
					"email":        m.Email,
					"display_name": m.Name,
				})
			}
			payload["assignees"] = assignees
		} else {
			payload["state"] = issue.StateID
			payload["assignees"] = issue.AssigneeIDs
		}

		results = append(results, payload)
	}
	writePage(w, results)
}

func writePage(w http.ResponseWriter, results []any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"results":           results,
		"next_cursor":       "",
		"next_page_results": false,
		"total_results":     len(results),
	})
}
