// Package container keeps a single Docker container in line with its unit definition.
package container

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/dcosdeploy/internal/config"
)

// Type is the entity type handled by this package.
const Type = "container"

// unitLabel marks containers managed by dcosdeploy.
const unitLabel = "dcosdeploy.unit"

// Entity describes the desired container.
type Entity struct {
	Unit          string            `yaml:"-"`
	ContainerName string            `yaml:"name"`
	Image         string            `yaml:"image"`
	Command       []string          `yaml:"command"`
	Env           map[string]string `yaml:"env"`
	Ports         []string          `yaml:"ports"`
	Labels        map[string]string `yaml:"labels"`
	Pull          bool              `yaml:"pull"`
}

// Parse decodes a container unit. The container name defaults to the unit name.
func Parse(name string, node *yaml.Node, _ config.TemplateContext) (any, error) {
	var e Entity
	if err := node.Decode(&e); err != nil {
		return nil, config.Invalid(name, "", "%v", err)
	}
	e.Unit = name
	if strings.TrimSpace(e.Image) == "" {
		return nil, config.Required(name, "image", Type)
	}
	if e.ContainerName == "" {
		e.ContainerName = name
	}
	if _, _, err := nat.ParsePortSpecs(e.Ports); err != nil {
		return nil, config.Invalid(name, "ports", "%v", err)
	}
	return &e, nil
}

// desired builds the container and host configuration for e.
func (e *Entity) desired() (*container.Config, *container.HostConfig, error) {
	exposed, bindings, err := nat.ParsePortSpecs(e.Ports)
	if err != nil {
		return nil, nil, err
	}

	labels := map[string]string{unitLabel: e.Unit}
	for k, v := range e.Labels {
		labels[k] = v
	}

	envKeys := make([]string, 0, len(e.Env))
	for k := range e.Env {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	env := make([]string, 0, len(envKeys))
	for _, k := range envKeys {
		env = append(env, k+"="+e.Env[k])
	}

	cfg := &container.Config{
		Image:        e.Image,
		Cmd:          e.Command,
		Env:          env,
		Labels:       labels,
		ExposedPorts: exposed,
	}
	host := &container.HostConfig{
		PortBindings:  bindings,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	return cfg, host, nil
}

// action is what a deploy has to do to converge one container.
type action int

const (
	actionNone action = iota
	actionStart
	actionCreate
	actionRecreate
)

// decide compares the desired configuration with the current container.
func decide(cfg *container.Config, host *container.HostConfig, current *container.InspectResponse, dependenciesChanged bool) (action, []string) {
	if current == nil {
		return actionCreate, nil
	}
	reasons := drift(cfg, host, current)
	if dependenciesChanged {
		reasons = append(reasons, "dependencies changed")
	}
	if len(reasons) > 0 {
		return actionRecreate, reasons
	}
	if current.State == nil || !current.State.Running {
		return actionStart, nil
	}
	return actionNone, nil
}

// drift lists the aspects of current that differ from the desired configuration.
// Env entries and labels added by the image are tolerated.
func drift(cfg *container.Config, host *container.HostConfig, current *container.InspectResponse) []string {
	var reasons []string
	cur := current.Config
	if cur == nil {
		cur = &container.Config{}
	}
	if cur.Image != cfg.Image {
		reasons = append(reasons, "image")
	}
	if len(cfg.Cmd) > 0 && strings.Join(cur.Cmd, "\x00") != strings.Join(cfg.Cmd, "\x00") {
		reasons = append(reasons, "command")
	}
	have := make(map[string]struct{}, len(cur.Env))
	for _, kv := range cur.Env {
		have[kv] = struct{}{}
	}
	for _, kv := range cfg.Env {
		if _, ok := have[kv]; !ok {
			reasons = append(reasons, "env")
			break
		}
	}
	for k, v := range cfg.Labels {
		if cur.Labels[k] != v {
			reasons = append(reasons, "labels")
			break
		}
	}
	var curBindings nat.PortMap
	if current.HostConfig != nil {
		curBindings = current.HostConfig.PortBindings
	}
	if !samePorts(host.PortBindings, curBindings) {
		reasons = append(reasons, "ports")
	}
	return reasons
}

func samePorts(want, have nat.PortMap) bool {
	if len(want) != len(have) {
		return false
	}
	for port, bindings := range want {
		got, ok := have[port]
		if !ok || len(got) != len(bindings) {
			return false
		}
		for i := range bindings {
			if bindings[i].HostPort != got[i].HostPort || bindings[i].HostIP != got[i].HostIP {
				return false
			}
		}
	}
	return true
}

// Manager converges container entities.
type Manager struct {
	engine Engine
	out    io.Writer
}

// NewManager constructs a Manager over engine.
func NewManager(engine Engine, out io.Writer) *Manager {
	return &Manager{engine: engine, out: out}
}

// Deploy creates, recreates or starts the container as needed.
func (m *Manager) Deploy(ctx context.Context, entity any, dependenciesChanged bool) (bool, error) {
	e, cfg, host, current, err := m.load(ctx, entity)
	if err != nil {
		return false, err
	}

	act, reasons := decide(cfg, host, current, dependenciesChanged)
	switch act {
	case actionNone:
		return false, nil
	case actionStart:
		if err := m.engine.Start(ctx, current.ID); err != nil {
			return false, err
		}
		fmt.Fprintf(m.out, "  started %s\n", e.ContainerName)
		return true, nil
	case actionRecreate:
		if err := m.engine.Remove(ctx, current.ID); err != nil {
			return false, err
		}
	}

	if e.Pull {
		if err := m.engine.Pull(ctx, e.Image); err != nil {
			return false, err
		}
	}
	id, err := m.engine.Create(ctx, e.ContainerName, cfg, host)
	if err != nil {
		return false, err
	}
	if err := m.engine.Start(ctx, id); err != nil {
		return false, err
	}
	if act == actionRecreate {
		fmt.Fprintf(m.out, "  recreated %s (%s)\n", e.ContainerName, strings.Join(reasons, ", "))
	} else {
		fmt.Fprintf(m.out, "  created %s\n", e.ContainerName)
	}
	return true, nil
}

// DryRun reports what Deploy would do.
func (m *Manager) DryRun(ctx context.Context, entity any, dependenciesChanged bool) (bool, error) {
	e, cfg, host, current, err := m.load(ctx, entity)
	if err != nil {
		return false, err
	}

	act, reasons := decide(cfg, host, current, dependenciesChanged)
	switch act {
	case actionCreate:
		fmt.Fprintf(m.out, "Would create container %s from %s\n", e.ContainerName, e.Image)
	case actionRecreate:
		fmt.Fprintf(m.out, "Would recreate container %s (%s)\n", e.ContainerName, strings.Join(reasons, ", "))
	case actionStart:
		fmt.Fprintf(m.out, "Would start container %s\n", e.ContainerName)
	}
	return act != actionNone, nil
}

func (m *Manager) load(ctx context.Context, entity any) (*Entity, *container.Config, *container.HostConfig, *container.InspectResponse, error) {
	e, ok := entity.(*Entity)
	if !ok || e == nil {
		return nil, nil, nil, nil, fmt.Errorf("%s: unexpected entity %T", Type, entity)
	}
	cfg, host, err := e.desired()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("container %q: %w", e.Unit, err)
	}
	current, err := m.engine.Inspect(ctx, e.ContainerName)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if current != nil && current.ContainerJSONBase == nil {
		current.ContainerJSONBase = &container.ContainerJSONBase{ID: e.ContainerName}
	}
	return e, cfg, host, current, nil
}
