// Package command runs local shell commands as deployment units.
package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/dcosdeploy/internal/config"
	"github.com/codex-k8s/dcosdeploy/internal/logging"
)

// Type is the entity type handled by this package.
const Type = "command"

// Entity is a shell command.
type Entity struct {
	Name string            `yaml:"-"`
	Run  string            `yaml:"run"`
	Dir  string            `yaml:"dir"`
	Env  map[string]string `yaml:"env"`
}

// Parse decodes a command unit. Dir is resolved relative to the deployment file.
func Parse(name string, node *yaml.Node, ctx config.TemplateContext) (any, error) {
	var e Entity
	if err := node.Decode(&e); err != nil {
		return nil, config.Invalid(name, "", "%v", err)
	}
	e.Name = name
	if strings.TrimSpace(e.Run) == "" {
		return nil, config.Required(name, "run", Type)
	}
	if e.Dir == "" {
		e.Dir = ctx.ProjectRoot
	} else {
		e.Dir = ctx.Path(e.Dir)
	}
	return &e, nil
}

// Manager runs command entities with a shell.
type Manager struct {
	shell  string
	out    io.Writer
	logger *slog.Logger
}

// NewManager constructs a Manager. Stdout goes to out, stderr to the logger.
func NewManager(shell string, out io.Writer, logger *slog.Logger) *Manager {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Manager{shell: shell, out: out, logger: logger}
}

// Deploy runs the command. A successful command always counts as a change.
// DEPLOY_DEPENDENCIES_CHANGED is exported as "true" or "false".
func (m *Manager) Deploy(ctx context.Context, entity any, dependenciesChanged bool) (bool, error) {
	e, err := asEntity(entity)
	if err != nil {
		return false, err
	}

	cmd := exec.CommandContext(ctx, m.shell, "-c", e.Run)
	cmd.Dir = e.Dir
	cmd.Stdout = m.out
	stderr := logging.NewWriter(m.logger, logging.LevelWarn, "command stderr", "unit", e.Name)
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(), fmt.Sprintf("DEPLOY_DEPENDENCIES_CHANGED=%t", dependenciesChanged))
	for _, k := range sortedKeys(e.Env) {
		cmd.Env = append(cmd.Env, k+"="+e.Env[k])
	}

	err = cmd.Run()
	stderr.Flush()
	if err != nil {
		return false, fmt.Errorf("command %q: %w", e.Name, err)
	}
	return true, nil
}

// DryRun reports the command that would run.
func (m *Manager) DryRun(_ context.Context, entity any, _ bool) (bool, error) {
	e, err := asEntity(entity)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(m.out, "Would run %s\n", e.Run)
	return true, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asEntity(entity any) (*Entity, error) {
	e, ok := entity.(*Entity)
	if !ok || e == nil {
		return nil, fmt.Errorf("%s: unexpected entity %T", Type, entity)
	}
	return e, nil
}
