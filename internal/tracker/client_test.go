package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, retry Backoff) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Workspace: "acme",
		Retry:     retry,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k", Workspace: "w"}, nil)
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "http://x", Workspace: "w"}, nil)
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "http://x", APIKey: "k"}, nil)
	require.Error(t, err)
}

func TestClient_RetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results":[{"id":"p1","name":"One"}],"next_page_results":false}`))
	}))
	defer srv.Close()

	var slept []time.Duration
	retry := Backoff{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	c := newTestClient(t, srv.URL, retry)
	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, 3, calls)
	// Exactly two backoff delays: base*2^0, base*2^1.
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestClient_RateLimitExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	retry := Backoff{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}}
	c := newTestClient(t, srv.URL, retry)

	_, err := c.ListProjects(context.Background())
	require.Error(t, err)
	require.True(t, IsRateLimited(err))
	require.Equal(t, 3, calls)
}

func TestClient_AuthErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Backoff{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}})
	_, err := c.ListProjects(context.Background())
	require.True(t, IsAuth(err))
	require.Equal(t, 1, calls)
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())
	_, err := c.GetWorkflowStates(context.Background(), "missing")
	require.True(t, IsNotFound(err))
}

func TestClient_GenericAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())
	_, err := c.ListProjects(context.Background())
	require.Error(t, err)
	require.False(t, IsAuth(err))
	require.False(t, IsNotFound(err))
	require.False(t, IsRateLimited(err))

	var te *Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, KindAPI, te.Kind)
	require.Equal(t, http.StatusInternalServerError, te.StatusCode)
}

func TestClient_ConnectionErrorWrappedAsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := newTestClient(t, srv.URL, DefaultBackoff())
	_, err := c.ListProjects(context.Background())
	require.Error(t, err)

	var te *Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, KindAPI, te.Kind)
}

func TestClient_Pagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			w.Write([]byte(`{"results":[{"id":"p1","name":"One"}],"next_cursor":"c2","next_page_results":true}`))
			return
		}
		require.Equal(t, "c2", r.URL.Query().Get("cursor"))
		w.Write([]byte(`{"results":[{"id":"p2","name":"Two"}],"next_page_results":false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())
	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	require.Equal(t, "p1", projects[0].ID)
	require.Equal(t, "p2", projects[1].ID)
}

func TestClient_WorkspaceScopedPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"results":[],"next_page_results":false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, DefaultBackoff())
	_, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/api/v1/workspaces/acme/projects/", gotPath)
}
