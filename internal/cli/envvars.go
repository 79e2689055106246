package cli

import (
	"fmt"
	"strings"

	cenv "github.com/caarlos0/env/v11"

	"github.com/codex-k8s/dcosdeploy/internal/logging"
)

// baseEnv defines root CLI defaults sourced from DCOS_DEPLOY_* env vars.
type baseEnv struct {
	// ConfigPath is the deployment file path from DCOS_DEPLOY_CONFIG.
	ConfigPath string `env:"DCOS_DEPLOY_CONFIG"`
	// LogLevel is the logging level from DCOS_DEPLOY_LOG_LEVEL.
	LogLevel string `env:"DCOS_DEPLOY_LOG_LEVEL"`
	// VarFiles is a comma-separated list of var-files from DCOS_DEPLOY_VAR_FILES.
	VarFiles []string `env:"DCOS_DEPLOY_VAR_FILES" envSeparator:","`
}

// parseEnv fills target from DCOS_DEPLOY_* env vars via caarlos0/env.
func parseEnv(target any) error {
	return cenv.Parse(target)
}

// applyBaseEnv overrides option defaults with values from the environment.
// Flags still take precedence because they are parsed afterwards.
func applyBaseEnv(opts *Options) error {
	var be baseEnv
	if err := parseEnv(&be); err != nil {
		return fmt.Errorf("parse DCOS_DEPLOY_* environment: %w", err)
	}
	if strings.TrimSpace(be.ConfigPath) != "" {
		opts.ConfigPath = be.ConfigPath
	}
	if strings.TrimSpace(be.LogLevel) != "" {
		level, err := logging.ParseLevel(be.LogLevel)
		if err != nil {
			return fmt.Errorf("DCOS_DEPLOY_LOG_LEVEL: %w", err)
		}
		opts.LogLevel = level
	}
	for _, vf := range be.VarFiles {
		if vf = strings.TrimSpace(vf); vf != "" {
			opts.VarFiles = append(opts.VarFiles, vf)
		}
	}
	return nil
}
