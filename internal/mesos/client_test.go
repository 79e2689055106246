package mesos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tasksJSON = `{
  "type": "GET_TASKS",
  "get_tasks": {
    "tasks": [
      {"name": "db", "task_id": {"value": "db.1"}, "agent_id": {"value": "agent-0"}, "state": "TASK_FINISHED",
       "statuses": [{"container_status": {"container_id": {"value": "old"}}}]},
      {"name": "db", "task_id": {"value": "db.2"}, "agent_id": {"value": "agent-1"}, "state": "TASK_RUNNING",
       "statuses": [{"container_status": {"container_id": {"value": "c-first"}}}, {}, {"container_status": {"container_id": {"value": "c-db"}}}]},
      {"name": "worker", "task_id": {"value": "group_worker.abc"}, "agent_id": {"value": "agent-2"}, "state": "TASK_RUNNING",
       "statuses": []},
      {"name": "sidecar", "task_id": {"value": "group_web.sidecar"}, "agent_id": {"value": "agent-3"}, "state": "TASK_RUNNING",
       "statuses": [{"container_status": {"container_id": {"value": "sidecar-c", "parent": {"value": "executor-c"}}}}]}
    ]
  }
}`

func record(t *testing.T, stream, data string) string {
	t.Helper()
	msg := map[string]any{"type": "DATA", "data": map[string]any{"type": stream, "data": []byte(data)}}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return fmt.Sprintf("%d\n%s", len(raw), raw)
}

func TestFindTaskContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mesos/api/v1", r.URL.Path)
		assert.Equal(t, "token=secret", r.Header.Get("Authorization"))
		var c call
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		assert.Equal(t, "GET_TASKS", c.Type)
		_, _ = w.Write([]byte(tasksJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", 0, time.Second, nil)

	tc, err := c.FindTaskContainer(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, TaskContainer{ContainerID: ContainerID{Value: "c-db"}, AgentID: "agent-1"}, tc)

	_, err = c.FindTaskContainer(context.Background(), "group_worker")
	assert.ErrorIs(t, err, ErrNoContainer)

	_, err = c.FindTaskContainer(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestFindTaskContainer_KeepsParentChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(tasksJSON))
	}))
	defer srv.Close()

	tc, err := NewClient(srv.URL, "", 0, time.Second, nil).FindTaskContainer(context.Background(), "sidecar")
	require.NoError(t, err)
	assert.Equal(t, ContainerID{Value: "sidecar-c", Parent: &ContainerID{Value: "executor-c"}}, tc.ContainerID)
	assert.Equal(t, "agent-3", tc.AgentID)
}

func TestLaunchNestedContainerSession_NestsUnderFullChain(t *testing.T) {
	var launched ContainerID
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c call
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		require.NotNil(t, c.LaunchNestedContainerSession)
		launched = c.LaunchNestedContainerSession.ContainerID
		_, _ = w.Write([]byte(record(t, "STDOUT", "ok")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, time.Second, nil)
	c.newID = func() string { return "session" }

	parent := TaskContainer{ContainerID: ContainerID{Value: "sidecar-c", Parent: &ContainerID{Value: "executor-c"}}, AgentID: "agent-3"}
	_, err := c.LaunchNestedContainerSession(context.Background(), parent, []string{"true"})
	require.NoError(t, err)

	want := ContainerID{Value: "session", Parent: &ContainerID{Value: "sidecar-c", Parent: &ContainerID{Value: "executor-c"}}}
	assert.Equal(t, want, launched)
}

func TestNewClient_NilLoggerDisablesRetryLogging(t *testing.T) {
	assert.Nil(t, NewClient("http://x", "", 0, time.Second, nil).http.Logger)
	assert.NotNil(t, NewClient("http://x", "", 0, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil))).http.Logger)
}

func TestFindTaskContainer_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(tasksJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 2, time.Second, nil)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = time.Millisecond

	_, err := c.FindTaskContainer(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFindTaskContainer_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("", "", 0, time.Second, nil).FindTaskContainer(context.Background(), "db")
	assert.Error(t, err)
}

func TestLaunchNestedContainerSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/slave/agent-1/api/v1", r.URL.Path)
		assert.Equal(t, "application/recordio", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Message-Accept"))

		var c call
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		require.NotNil(t, c.LaunchNestedContainerSession)
		s := c.LaunchNestedContainerSession
		assert.Equal(t, "LAUNCH_NESTED_CONTAINER_SESSION", c.Type)
		assert.Equal(t, "fixed-id", s.ContainerID.Value)
		assert.Equal(t, "c-db", s.ContainerID.Parent.Value)
		assert.Equal(t, "pg_dump", s.Command.Value)
		assert.Equal(t, []string{"pg_dump", "-U", "app"}, s.Command.Arguments)

		_, _ = w.Write([]byte(record(t, "STDOUT", "dumped ") + record(t, "STDERR", "ok\n")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, time.Second, nil)
	c.newID = func() string { return "fixed-id" }

	out, err := c.LaunchNestedContainerSession(context.Background(),
		TaskContainer{ContainerID: ContainerID{Value: "c-db"}, AgentID: "agent-1"}, strings.Fields("pg_dump -U app"))
	require.NoError(t, err)
	assert.Equal(t, "dumped ok\n", out)
}

func TestLaunchNestedContainerSession_NotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "agent unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 3, time.Second, nil)
	_, err := c.LaunchNestedContainerSession(context.Background(), TaskContainer{ContainerID: ContainerID{Value: "c"}, AgentID: "a"}, []string{"true"})
	assert.ErrorContains(t, err, "agent unavailable")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = c.LaunchNestedContainerSession(context.Background(), TaskContainer{}, nil)
	assert.Error(t, err)
}

func TestReadProcessOutput_InvalidHeader(t *testing.T) {
	_, err := readProcessOutput(strings.NewReader("abc\n{}"))
	assert.Error(t, err)

	out, err := readProcessOutput(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, out)
}
