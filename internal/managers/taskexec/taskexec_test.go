package taskexec

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/dcosdeploy/internal/config"
	"github.com/codex-k8s/dcosdeploy/internal/mesos"
)

type fakeCluster struct {
	findErr  error
	launched [][]string
	parent   mesos.TaskContainer
}

func (f *fakeCluster) FindTaskContainer(_ context.Context, name string) (mesos.TaskContainer, error) {
	if f.findErr != nil {
		return mesos.TaskContainer{}, f.findErr
	}
	return mesos.TaskContainer{ContainerID: mesos.ContainerID{Value: "c-" + name}, AgentID: "agent"}, nil
}

func (f *fakeCluster) LaunchNestedContainerSession(_ context.Context, parent mesos.TaskContainer, command []string) (string, error) {
	f.parent = parent
	f.launched = append(f.launched, command)
	return "migrated 3\n", nil
}

func parse(t *testing.T, src string) (any, error) {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	return Parse("migrate", node.Content[0], config.TemplateContext{})
}

func TestParse(t *testing.T) {
	e, err := parse(t, "type: taskexec\ntask: db\ncommand: ' ./manage migrate  --all '\nprint: true\n")
	require.NoError(t, err)
	assert.Equal(t, &Entity{Name: "migrate", Task: "db", Command: "./manage migrate  --all", Print: true}, e)

	_, err = parse(t, "type: taskexec\ncommand: x\n")
	assert.ErrorContains(t, err, "task is required for taskexec")

	_, err = parse(t, "type: taskexec\ntask: x\n")
	assert.ErrorContains(t, err, "command is required for taskexec")
}

func TestDeploy_LaunchesNestedContainer(t *testing.T) {
	cluster := &fakeCluster{}
	var out bytes.Buffer
	m := NewManager(cluster, &out)

	changed, err := m.Deploy(context.Background(), &Entity{Name: "migrate", Task: "db", Command: "./manage migrate  --all", Print: true}, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, [][]string{{"./manage", "migrate", "--all"}}, cluster.launched)
	assert.Equal(t, mesos.TaskContainer{ContainerID: mesos.ContainerID{Value: "c-db"}, AgentID: "agent"}, cluster.parent)
	assert.Equal(t, "migrated 3\n", out.String())
}

func TestDeploy_QuietByDefault(t *testing.T) {
	var out bytes.Buffer
	_, err := NewManager(&fakeCluster{}, &out).Deploy(context.Background(), &Entity{Task: "db", Command: "true"}, true)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestDeploy_TaskLookupFailure(t *testing.T) {
	m := NewManager(&fakeCluster{findErr: mesos.ErrTaskNotFound}, &bytes.Buffer{})
	_, err := m.Deploy(context.Background(), &Entity{Name: "migrate", Task: "db", Command: "true"}, false)
	assert.True(t, errors.Is(err, mesos.ErrTaskNotFound))
}

func TestDryRun(t *testing.T) {
	cluster := &fakeCluster{}
	var out bytes.Buffer
	changed, err := NewManager(cluster, &out).DryRun(context.Background(), &Entity{Task: "db", Command: "./manage migrate"}, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Would run command ./manage migrate in task db\n", out.String())
	assert.Empty(t, cluster.launched)
}

func TestWrongEntity(t *testing.T) {
	_, err := NewManager(&fakeCluster{}, &bytes.Buffer{}).DryRun(context.Background(), "nope", false)
	assert.Error(t, err)
}
