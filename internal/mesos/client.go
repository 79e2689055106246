// Package mesos talks to the Mesos operator API exposed through a DC/OS cluster.
package mesos

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrTaskNotFound is returned when no running task matches the requested name.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoContainer is returned when a running task reports no container id.
	ErrNoContainer = errors.New("task has no container")
)

// Client issues operator API calls against the master and agents.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	// newID generates nested container ids.
	newID func() string
}

// NewClient constructs a Client. Idempotent calls are retried up to retries times.
func NewClient(baseURL, token string, retries int, timeout time.Duration, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = leveledLogger(logger)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    rc,
		newID:   func() string { return uuid.NewString() },
	}
}

// leveledLogger keeps a nil logger a nil interface so retryablehttp stays silent.
func leveledLogger(logger *slog.Logger) retryablehttp.LeveledLogger {
	if logger == nil {
		return nil
	}
	return logger
}

// TaskContainer identifies where a task runs.
type TaskContainer struct {
	// ContainerID is the task's container, including its parents for pod tasks.
	ContainerID ContainerID
	// AgentID is the agent running the task.
	AgentID string
}

// FindTaskContainer returns the container and agent of the running task named name.
// A task matches by name, by exact task id, or by task id prefix "name.".
func (c *Client) FindTaskContainer(ctx context.Context, name string) (TaskContainer, error) {
	if c.baseURL == "" {
		return TaskContainer{}, fmt.Errorf("cluster base URL is not configured")
	}

	body, err := json.Marshal(call{Type: "GET_TASKS"})
	if err != nil {
		return TaskContainer{}, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mesos/api/v1", body)
	if err != nil {
		return TaskContainer{}, fmt.Errorf("build GET_TASKS request: %w", err)
	}
	c.setHeaders(req.Header, "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return TaskContainer{}, fmt.Errorf("GET_TASKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus("GET_TASKS", resp); err != nil {
		return TaskContainer{}, err
	}

	var payload getTasksResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return TaskContainer{}, fmt.Errorf("decode GET_TASKS response: %w", err)
	}

	for _, t := range payload.GetTasks.Tasks {
		if t.State != "TASK_RUNNING" || !t.matches(name) {
			continue
		}
		id := t.containerID()
		if id == nil {
			return TaskContainer{}, fmt.Errorf("%w: %s", ErrNoContainer, t.TaskID.Value)
		}
		return TaskContainer{ContainerID: *id, AgentID: t.AgentID.Value}, nil
	}
	return TaskContainer{}, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
}

// LaunchNestedContainerSession runs command inside a new container nested under
// parent and returns its combined output. The call is never retried.
func (c *Client) LaunchNestedContainerSession(ctx context.Context, parent TaskContainer, command []string) (string, error) {
	if len(command) == 0 {
		return "", fmt.Errorf("command is empty")
	}
	parentID := parent.ContainerID

	body, err := json.Marshal(call{
		Type: "LAUNCH_NESTED_CONTAINER_SESSION",
		LaunchNestedContainerSession: &launchNestedContainerSession{
			ContainerID: ContainerID{Value: c.newID(), Parent: &parentID},
			Command:     commandInfo{Shell: false, Value: command[0], Arguments: command},
		},
	})
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/slave/" + parent.AgentID + "/api/v1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build LAUNCH_NESTED_CONTAINER_SESSION request: %w", err)
	}
	c.setHeaders(req.Header, "application/recordio")
	req.Header.Set("Message-Accept", "application/json")

	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("LAUNCH_NESTED_CONTAINER_SESSION: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus("LAUNCH_NESTED_CONTAINER_SESSION", resp); err != nil {
		return "", err
	}

	return readProcessOutput(resp.Body)
}

func (c *Client) setHeaders(h http.Header, accept string) {
	h.Set("Content-Type", "application/json")
	h.Set("Accept", accept)
	if c.token != "" {
		h.Set("Authorization", "token="+c.token)
	}
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}

// readProcessOutput decodes a RecordIO stream of ProcessIO messages,
// concatenating STDOUT and STDERR data in arrival order.
func readProcessOutput(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	var out bytes.Buffer
	for {
		header, err := br.ReadString('\n')
		if errors.Is(err, io.EOF) && strings.TrimSpace(header) == "" {
			return out.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("read record header: %w", err)
		}
		size, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			return "", fmt.Errorf("invalid record header %q", strings.TrimSpace(header))
		}
		record := make([]byte, size)
		if _, err := io.ReadFull(br, record); err != nil {
			return "", fmt.Errorf("read record: %w", err)
		}
		var msg processIO
		if err := json.Unmarshal(record, &msg); err != nil {
			return "", fmt.Errorf("decode record: %w", err)
		}
		if msg.Type == "DATA" && msg.Data != nil {
			out.Write(msg.Data.Data)
		}
	}
}
