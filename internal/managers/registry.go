// Package managers wires the closed set of entity types into the deployment core.
package managers

import (
	"io"
	"log/slog"
	"sort"

	"github.com/codex-k8s/dcosdeploy/internal/config"
	"github.com/codex-k8s/dcosdeploy/internal/deploy"
	"github.com/codex-k8s/dcosdeploy/internal/kube"
	"github.com/codex-k8s/dcosdeploy/internal/managers/command"
	"github.com/codex-k8s/dcosdeploy/internal/managers/container"
	"github.com/codex-k8s/dcosdeploy/internal/managers/kubernetes"
	"github.com/codex-k8s/dcosdeploy/internal/managers/taskexec"
	"github.com/codex-k8s/dcosdeploy/internal/mesos"
	"github.com/codex-k8s/dcosdeploy/internal/settings"
)

// Registry builds the managers and entity parsers for every supported type.
// Clients are constructed eagerly but connect only when a unit is deployed.
func Registry(s settings.Settings, out io.Writer, logger *slog.Logger) (deploy.Managers, config.Parsers) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cluster := mesos.NewClient(s.BaseURL, s.Token, s.HTTPRetries, s.HTTPTimeout, logger.With("component", "mesos"))
	kubectl := kube.NewClient(s.Kubectl, s.Kubeconfig, s.KubeContext)

	managers := deploy.Managers{
		taskexec.Type:   taskexec.NewManager(cluster, out),
		kubernetes.Type: kubernetes.NewManager(kubectl, out),
		command.Type:    command.NewManager(s.Shell, out, logger),
		container.Type:  container.NewManager(container.NewDockerEngine(s.DockerHost), out),
	}
	parsers := Parsers()
	return managers, parsers
}

// Parsers returns the entity parsers without constructing any client.
func Parsers() config.Parsers {
	return config.Parsers{
		taskexec.Type:   taskexec.Parse,
		kubernetes.Type: kubernetes.Parse,
		command.Type:    command.Parse,
		container.Type:  container.Parse,
	}
}

// Types lists the supported entity types in sorted order.
func Types() []string {
	parsers := Parsers()
	types := make([]string, 0, len(parsers))
	for t := range parsers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
