package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/dcosdeploy/internal/deploy"
	"github.com/codex-k8s/dcosdeploy/internal/managers"
)

// newPlanCommand creates the "plan" subcommand that prints the dependency-first unit order.
func newPlanCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print units in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graph, err := loadGraph(opts, managers.Parsers())
			if err != nil {
				return err
			}
			order, err := deploy.Plan(graph)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, name := range order {
				unit, _ := graph.Get(name)
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, name, unit.EntityType, formatDependencies(unit))
			}
			return tw.Flush()
		},
	}
}

func formatDependencies(unit deploy.Unit) string {
	if len(unit.Dependencies) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(unit.Dependencies))
	for _, dep := range unit.Dependencies {
		parts = append(parts, dep.Name+":"+string(dep.Kind))
	}
	s := strings.Join(parts, ", ")
	if unit.When == deploy.WhenDependenciesChanged {
		s += " (when " + string(unit.When) + ")"
	}
	return s
}
