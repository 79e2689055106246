// Package taskexec runs one-off commands inside running cluster tasks by launching
// nested containers next to them.
package taskexec

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/dcosdeploy/internal/config"
	"github.com/codex-k8s/dcosdeploy/internal/mesos"
)

// Type is the entity type handled by this package.
const Type = "taskexec"

// Entity describes a command to execute in a task.
type Entity struct {
	Name    string `yaml:"-"`
	Task    string `yaml:"task"`
	Command string `yaml:"command"`
	Print   bool   `yaml:"print"`
}

// Parse decodes a taskexec unit.
func Parse(name string, node *yaml.Node, _ config.TemplateContext) (any, error) {
	var e Entity
	if err := node.Decode(&e); err != nil {
		return nil, config.Invalid(name, "", "%v", err)
	}
	e.Name = name
	e.Task = strings.TrimSpace(e.Task)
	e.Command = strings.TrimSpace(e.Command)
	if e.Task == "" {
		return nil, config.Required(name, "task", Type)
	}
	if e.Command == "" {
		return nil, config.Required(name, "command", Type)
	}
	return &e, nil
}

// Cluster is the part of the Mesos operator API the manager needs.
type Cluster interface {
	FindTaskContainer(ctx context.Context, name string) (mesos.TaskContainer, error)
	LaunchNestedContainerSession(ctx context.Context, parent mesos.TaskContainer, command []string) (string, error)
}

// Manager executes taskexec entities.
type Manager struct {
	cluster Cluster
	out     io.Writer
}

// NewManager constructs a Manager writing command output to out.
func NewManager(cluster Cluster, out io.Writer) *Manager {
	return &Manager{cluster: cluster, out: out}
}

// Deploy runs the command. A taskexec always counts as a change.
func (m *Manager) Deploy(ctx context.Context, entity any, _ bool) (bool, error) {
	e, err := asEntity(entity)
	if err != nil {
		return false, err
	}
	parent, err := m.cluster.FindTaskContainer(ctx, e.Task)
	if err != nil {
		return false, fmt.Errorf("taskexec %q: %w", e.Name, err)
	}
	output, err := m.cluster.LaunchNestedContainerSession(ctx, parent, strings.Fields(e.Command))
	if err != nil {
		return false, fmt.Errorf("taskexec %q: %w", e.Name, err)
	}
	if e.Print {
		fmt.Fprintln(m.out, strings.TrimRight(output, "\n"))
	}
	return true, nil
}

// DryRun reports the command that would run.
func (m *Manager) DryRun(_ context.Context, entity any, _ bool) (bool, error) {
	e, err := asEntity(entity)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(m.out, "Would run command %s in task %s\n", e.Command, e.Task)
	return true, nil
}

func asEntity(entity any) (*Entity, error) {
	e, ok := entity.(*Entity)
	if !ok || e == nil {
		return nil, fmt.Errorf("%s: unexpected entity %T", Type, entity)
	}
	return e, nil
}
