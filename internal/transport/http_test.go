package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/taskmirror/internal/domain/cache"
	"github.com/ganot/taskmirror/internal/domain/syncer"
	"github.com/ganot/taskmirror/internal/domain/task"
	"github.com/ganot/taskmirror/internal/repository"
)

type stubSource struct {
	tasks []task.Task
	err   error
	email string
}

func (s *stubSource) GetUserTasks(_ context.Context, email string) ([]task.Task, error) {
	s.email = email
	return s.tasks, s.err
}

type stubCache struct {
	tasks   []task.Task
	err     error
	filters cache.Filters
	limit   int
}

func (s *stubCache) Read(_ context.Context, _ string, filters cache.Filters, maxCount int) ([]task.Task, error) {
	s.filters = filters
	s.limit = maxCount
	return s.tasks, s.err
}

type stubSync struct {
	result syncer.StartResult
	status *syncer.Status
	err    error
}

func (s *stubSync) StartSync(_ context.Context, _ string, _ func(error)) (syncer.StartResult, error) {
	return s.result, s.err
}

func (s *stubSync) Status(_ context.Context, _ string) (*syncer.Status, error) {
	return s.status, s.err
}

func newTestServer(t *testing.T, live *stubSource, store TaskSource, cacheReader *stubCache, syncSvc *stubSync, token string) *httptest.Server {
	t.Helper()
	var mw func(http.Handler) http.Handler
	if token != "" {
		mw = AuthMiddleware(token)
	}
	server := httptest.NewServer(NewServer(live, store, cacheReader, syncSvc, mw, nil))
	t.Cleanup(server.Close)
	return server
}

func decodeTasks(t *testing.T, resp *http.Response) []task.Task {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Tasks []task.Task `json:"tasks"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tasks, body.Count)
	return body.Tasks
}

func TestTasks_LiveDefault(t *testing.T) {
	live := &stubSource{tasks: []task.Task{{ID: "t1"}}}
	server := newTestServer(t, live, nil, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks?email=dev@acme.io")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decodeTasks(t, resp), 1)
	require.Equal(t, "dev@acme.io", live.email)
}

func TestTasks_CacheSource(t *testing.T) {
	cacheReader := &stubCache{tasks: []task.Task{{ID: "c1"}, {ID: "c2"}}}
	server := newTestServer(t, &stubSource{}, nil, cacheReader, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks?email=dev@acme.io&source=cache")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decodeTasks(t, resp), 2)
	require.Equal(t, cache.All(), cacheReader.filters)
}

func TestTasks_StoreNotConfigured(t *testing.T) {
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks?email=dev@acme.io&source=store")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestTasks_StoreSource(t *testing.T) {
	store := &stubSource{tasks: []task.Task{{ID: "s1"}}}
	server := newTestServer(t, &stubSource{}, store, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks?email=dev@acme.io&source=store")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decodeTasks(t, resp), 1)
}

func TestTasks_UnknownSource(t *testing.T) {
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks?email=dev@acme.io&source=carrier-pigeon")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTasks_UnknownEmail(t *testing.T) {
	live := &stubSource{err: task.ErrEmailNotRecognized}
	server := newTestServer(t, live, nil, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks?email=ghost@acme.io")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTasks_InvalidInput(t *testing.T) {
	live := &stubSource{err: task.ErrInvalidInput}
	server := newTestServer(t, live, nil, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCachedTasks_FilterFlags(t *testing.T) {
	cacheReader := &stubCache{tasks: []task.Task{}}
	server := newTestServer(t, &stubSource{}, nil, cacheReader, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/cached-tasks?email=dev@acme.io&overdue=true&limit=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, cache.Filters{IncludeOverdue: true}, cacheReader.filters)
	require.Equal(t, 5, cacheReader.limit)
}

func TestCachedTasks_NoFlagsMeansAll(t *testing.T) {
	cacheReader := &stubCache{tasks: []task.Task{}}
	server := newTestServer(t, &stubSource{}, nil, cacheReader, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/cached-tasks?email=dev@acme.io")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, cache.All(), cacheReader.filters)
}

func TestCachedTasks_BadLimit(t *testing.T) {
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/cached-tasks?email=dev@acme.io&limit=lots")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSync_Started(t *testing.T) {
	syncSvc := &stubSync{result: syncer.StartResult{Started: true}}
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, syncSvc, "")

	resp, err := http.Post(server.URL+"/sync?email=dev@acme.io", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestSync_AlreadyRunning(t *testing.T) {
	syncSvc := &stubSync{result: syncer.StartResult{Started: false}}
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, syncSvc, "")

	resp, err := http.Post(server.URL+"/sync?email=dev@acme.io", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	defer resp.Body.Close()
	var result syncer.StartResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.False(t, result.Started)
}

func TestSyncStatus_Found(t *testing.T) {
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	syncSvc := &stubSync{status: &syncer.Status{Email: "dev@acme.io", LastStarted: &started, TotalFound: 4}}
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, syncSvc, "")

	resp, err := http.Get(server.URL + "/sync/status?email=dev@acme.io")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	var status syncer.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, 4, status.TotalFound)
}

func TestSyncStatus_NeverSynced(t *testing.T) {
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, &stubSync{err: repository.ErrNotFound}, "")

	resp, err := http.Get(server.URL + "/sync/status?email=dev@acme.io")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInternalError(t *testing.T) {
	live := &stubSource{err: errors.New("boom")}
	server := newTestServer(t, live, nil, &stubCache{}, &stubSync{}, "")

	resp, err := http.Get(server.URL + "/tasks?email=dev@acme.io")
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	server := newTestServer(t, &stubSource{}, nil, &stubCache{}, &stubSync{}, "secret")

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
