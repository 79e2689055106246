// Package cli defines the command-line interface for dcosdeploy.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/dcosdeploy/internal/config"
	"github.com/codex-k8s/dcosdeploy/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	LogLevel   logging.Level
	Debug      bool
	Vars       []string
	VarFiles   []string
}

// defaultOptions returns options with built-in defaults.
func defaultOptions() *Options {
	return &Options{
		ConfigPath: config.DefaultPath,
		LogLevel:   logging.LevelInfo,
	}
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := defaultOptions()
	if err := applyBaseEnv(rootOpts); err != nil {
		return err
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dcosdeploy",
		Short:         "dcosdeploy deploys a dependency graph of units to a cluster",
		Long:          "dcosdeploy reads a declarative deployment file, orders its units by dependencies and applies only what changed.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Debug {
				opts.LogLevel = logging.LevelDebug
			}
			level := opts.LogLevel
			logger = logging.NewLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "Path to the deployment file")
	cmd.PersistentFlags().Var(&opts.LogLevel, "log-level", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Shortcut for --log-level=debug")
	cmd.PersistentFlags().StringArrayVarP(&opts.Vars, "var", "e", nil, "Variable in key=value form (repeatable)")
	cmd.PersistentFlags().StringArrayVar(&opts.VarFiles, "var-file", opts.VarFiles, "YAML or key=value file with variables (repeatable)")

	cmd.AddCommand(
		newApplyCommand(opts),
		newPlanCommand(opts),
		newValidateCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
