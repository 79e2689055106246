package cli

import (
	"io"
	"log/slog"

	"github.com/codex-k8s/dcosdeploy/internal/config"
	"github.com/codex-k8s/dcosdeploy/internal/deploy"
	"github.com/codex-k8s/dcosdeploy/internal/env"
	"github.com/codex-k8s/dcosdeploy/internal/managers"
	"github.com/codex-k8s/dcosdeploy/internal/settings"
)

// loadGraph parses the deployment file named by opts with the given entity parsers.
func loadGraph(opts *Options, parsers config.Parsers) (*deploy.Graph, error) {
	vars, err := env.ParseVarList(opts.Vars)
	if err != nil {
		return nil, err
	}
	graph, _, err := config.Load(opts.ConfigPath, config.LoadOptions{
		Vars:     vars,
		VarFiles: opts.VarFiles,
		Parsers:  parsers,
	})
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// loadRunner builds the manager registry from the environment and loads the deployment file.
func loadRunner(opts *Options, out io.Writer, logger *slog.Logger) (*deploy.Runner, *deploy.Graph, error) {
	s, err := settings.FromEnv()
	if err != nil {
		return nil, nil, err
	}

	registry, parsers := managers.Registry(s, out, logger)
	graph, err := loadGraph(opts, parsers)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("deployment file loaded", "path", opts.ConfigPath, "units", graph.Len())

	runner := deploy.NewRunner(graph, registry, deploy.WithLogger(logger), deploy.WithProgress(out))
	return runner, graph, nil
}
