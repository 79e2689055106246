package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/dcosdeploy/internal/deploy"
	"github.com/codex-k8s/dcosdeploy/internal/managers"
)

// newValidateCommand creates the "validate" subcommand that checks a deployment file without deploying.
func newValidateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the deployment file, its entity types and dependency graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			parsers := managers.Parsers()
			graph, err := loadGraph(opts, parsers)
			if err != nil {
				return err
			}

			for _, name := range graph.Names() {
				unit, _ := graph.Get(name)
				if _, ok := parsers[unit.EntityType]; !ok {
					return fmt.Errorf("unit %q: unknown type %q (supported: %v)", name, unit.EntityType, managers.Types())
				}
			}
			if _, err := deploy.Plan(graph); err != nil {
				return err
			}

			logger.Debug("deployment file is valid", "path", opts.ConfigPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d units\n", graph.Len())
			return nil
		},
	}
}
