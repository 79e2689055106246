// Package kubernetes applies rendered manifests with kubectl.
package kubernetes

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/dcosdeploy/internal/config"
	"github.com/codex-k8s/dcosdeploy/internal/kube"
)

// Type is the entity type handled by this package.
const Type = "kubernetes"

// Entity is a rendered manifest ready to apply.
type Entity struct {
	Name string
	// Context overrides the kubectl context.
	Context string
	// Documents is the multi-document YAML to apply.
	Documents []byte
	// Objects lists "kind/name" of every object, for display.
	Objects []string
	// Restart lists workloads restarted when an update dependency changed.
	Restart []Workload
}

// Workload is a restartable object in a namespace.
type Workload struct {
	Namespace string
	Object    string
}

type spec struct {
	Manifest                  string `yaml:"manifest"`
	Namespace                 string `yaml:"namespace"`
	Context                   string `yaml:"context"`
	RestartOnDependencyChange bool   `yaml:"restartOnDependencyChange"`
}

// Parse decodes a kubernetes unit and renders its manifest with the deployment variables.
func Parse(name string, node *yaml.Node, ctx config.TemplateContext) (any, error) {
	var s spec
	if err := node.Decode(&s); err != nil {
		return nil, config.Invalid(name, "", "%v", err)
	}
	if strings.TrimSpace(s.Manifest) == "" {
		return nil, config.Required(name, "manifest", Type)
	}

	rendered, err := ctx.RenderFile(s.Manifest)
	if err != nil {
		return nil, config.Invalid(name, "manifest", "%v", err)
	}
	docs, err := kube.DecodeDocuments(rendered)
	if err != nil {
		return nil, config.Invalid(name, "manifest", "%v", err)
	}
	if len(docs) == 0 {
		return nil, config.Invalid(name, "manifest", "%s contains no objects", s.Manifest)
	}

	e := &Entity{Name: name, Context: s.Context}
	for _, doc := range docs {
		kube.ApplyNamespace(doc, s.Namespace)
		object := kube.ObjectName(doc)
		e.Objects = append(e.Objects, object)
		if s.RestartOnDependencyChange && kube.Restartable(doc) {
			e.Restart = append(e.Restart, Workload{Namespace: kube.Namespace(doc), Object: object})
		}
	}
	e.Documents, err = kube.EncodeDocuments(docs)
	if err != nil {
		return nil, config.Invalid(name, "manifest", "%v", err)
	}
	return e, nil
}

// Client is the kubectl surface the manager needs.
type Client interface {
	Apply(ctx context.Context, manifest []byte, namespace string) (kube.ApplyResult, error)
	Diff(ctx context.Context, manifest []byte, namespace string) (bool, string, error)
	RolloutRestart(ctx context.Context, namespace string, objects ...string) error
}

// Manager applies kubernetes entities.
type Manager struct {
	client func(kubeContext string) Client
	out    io.Writer
}

// NewManager constructs a Manager over a kubectl client.
func NewManager(client *kube.Client, out io.Writer) *Manager {
	return &Manager{
		client: func(kubeContext string) Client { return client.WithContext(kubeContext) },
		out:    out,
	}
}

// Deploy applies the manifest and restarts workloads when requested and an update dependency changed.
func (m *Manager) Deploy(ctx context.Context, entity any, dependenciesChanged bool) (bool, error) {
	e, err := asEntity(entity)
	if err != nil {
		return false, err
	}
	client := m.client(e.Context)

	res, err := client.Apply(ctx, e.Documents, "")
	if err != nil {
		return false, fmt.Errorf("apply %q: %w", e.Name, err)
	}
	for _, line := range res.Lines {
		fmt.Fprintf(m.out, "  %s\n", line)
	}
	changed := res.Changed()

	if dependenciesChanged && len(e.Restart) > 0 {
		for _, group := range groupByNamespace(e.Restart) {
			if err := client.RolloutRestart(ctx, group.namespace, group.objects...); err != nil {
				return false, fmt.Errorf("restart %q: %w", e.Name, err)
			}
			for _, object := range group.objects {
				fmt.Fprintf(m.out, "  %s restarted\n", object)
			}
		}
		changed = true
	}
	return changed, nil
}

// DryRun diffs the manifest against the cluster.
func (m *Manager) DryRun(ctx context.Context, entity any, dependenciesChanged bool) (bool, error) {
	e, err := asEntity(entity)
	if err != nil {
		return false, err
	}

	changed, diff, err := m.client(e.Context).Diff(ctx, e.Documents, "")
	if err != nil {
		return false, fmt.Errorf("diff %q: %w", e.Name, err)
	}
	if changed {
		fmt.Fprintf(m.out, "Would apply changes to %s\n", strings.Join(e.Objects, ", "))
		if d := strings.TrimRight(diff, "\n"); d != "" {
			fmt.Fprintln(m.out, d)
		}
	}
	if dependenciesChanged && len(e.Restart) > 0 {
		for _, w := range e.Restart {
			fmt.Fprintf(m.out, "Would restart %s\n", w.Object)
		}
		changed = true
	}
	return changed, nil
}

type namespaceGroup struct {
	namespace string
	objects   []string
}

// groupByNamespace groups workloads by namespace in first-seen order.
func groupByNamespace(workloads []Workload) []namespaceGroup {
	var groups []namespaceGroup
	index := make(map[string]int)
	for _, w := range workloads {
		i, ok := index[w.Namespace]
		if !ok {
			i = len(groups)
			index[w.Namespace] = i
			groups = append(groups, namespaceGroup{namespace: w.Namespace})
		}
		groups[i].objects = append(groups[i].objects, w.Object)
	}
	return groups
}

func asEntity(entity any) (*Entity, error) {
	e, ok := entity.(*Entity)
	if !ok || e == nil {
		return nil, fmt.Errorf("%s: unexpected entity %T", Type, entity)
	}
	return e, nil
}
