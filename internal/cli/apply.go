package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/dcosdeploy/internal/ghoutput"
)

// newApplyCommand creates the "apply" subcommand that deploys units or previews their changes.
func newApplyCommand(opts *Options) *cobra.Command {
	var (
		only    string
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Deploy every unit, or a single unit and its dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())
			out := cmd.OutOrStdout()

			runner, _, err := loadRunner(opts, out, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			if dryRun {
				var changed bool
				if only != "" {
					changed, err = runner.DryRunPartial(ctx, only)
				} else {
					changed, err = runner.DryRunFull(ctx)
				}
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintln(out, "Changes would be applied")
				} else {
					fmt.Fprintln(out, "No changes")
				}
				return ghoutput.Write(ghoutput.Result{DryRun: true, Unit: only, Changed: &changed})
			}

			logger.Info("applying deployment", "config", opts.ConfigPath, "only", only)
			if only != "" {
				changed, err := runner.RunPartial(ctx, only)
				if err != nil {
					return err
				}
				logger.Info("deployment finished", "unit", only, "changed", changed)
				return ghoutput.Write(ghoutput.Result{Unit: only, Changed: &changed})
			}
			if err := runner.RunFull(ctx); err != nil {
				return err
			}
			logger.Info("deployment finished")
			return ghoutput.Write(ghoutput.Result{})
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "Deploy only this unit and its dependencies")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without changing anything")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall deadline for the run (0 disables it)")

	return cmd
}
