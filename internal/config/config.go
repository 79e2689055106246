// Package config loads a deployment file, resolves its variables, renders it as a
// Go template and parses the result into a deploy.Graph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/dcosdeploy/internal/deploy"
	"github.com/codex-k8s/dcosdeploy/internal/env"
)

const (
	// DefaultPath is the deployment file used when none is given.
	DefaultPath = "dcos.yml"

	keyVariables = "variables"
	keyEnvFiles  = "envFiles"
)

// VariableSpec declares a variable that can be referenced from the deployment file.
type VariableSpec struct {
	// Required fails loading when no source provides a value.
	Required bool `yaml:"required,omitempty"`
	// Default is used when no other source provides a value.
	Default *string `yaml:"default,omitempty"`
	// Env names a process environment variable used as a fallback source.
	Env string `yaml:"env,omitempty"`
	// Values restricts the variable to an allow-list.
	Values []string `yaml:"values,omitempty"`
}

// rawHeader holds the reserved top-level fields, read before templating.
type rawHeader struct {
	Variables map[string]VariableSpec `yaml:"variables"`
	EnvFiles  []string                `yaml:"envFiles"`
}

// unitHeader holds the fields shared by every unit regardless of its type.
type unitHeader struct {
	Type         string   `yaml:"type"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	When         string   `yaml:"when,omitempty"`
}

// LoadOptions describes inputs that influence variable resolution.
type LoadOptions struct {
	// Vars are command-line variables; they override every other source.
	Vars env.Vars
	// VarFiles lists var-files loaded after env files.
	VarFiles []string
	// Parsers maps entity types to their entity parsers.
	Parsers Parsers
}

// Load reads the deployment file at path and returns the unit graph together with
// the template context used to render it.
func Load(path string, opts LoadOptions) (*deploy.Graph, TemplateContext, error) {
	rendered, ctx, err := LoadAndRender(path, opts)
	if err != nil {
		return nil, TemplateContext{}, err
	}
	g, err := ParseGraph(rendered, ctx, opts.Parsers)
	if err != nil {
		return nil, TemplateContext{}, err
	}
	return g, ctx, nil
}

// LoadAndRender reads the deployment file, resolves variables and returns the rendered YAML.
func LoadAndRender(path string, opts LoadOptions) ([]byte, TemplateContext, error) {
	var zeroCtx TemplateContext

	if strings.TrimSpace(path) == "" {
		return nil, zeroCtx, fmt.Errorf("config path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, zeroCtx, fmt.Errorf("resolve config path: %w", err)
	}

	rawBytes, err := os.ReadFile(absPath)
	if err != nil {
		return nil, zeroCtx, fmt.Errorf("read config %q: %w", absPath, err)
	}

	var header rawHeader
	if err := yaml.Unmarshal(rawBytes, &header); err != nil {
		return nil, zeroCtx, fmt.Errorf("parse top-level config fields: %w", err)
	}

	baseDir := filepath.Dir(absPath)
	osVars := env.FromOS()

	envFileVars, err := env.LoadEnvFiles(baseDir, header.EnvFiles)
	if err != nil {
		return nil, zeroCtx, err
	}

	varFileVars := make(env.Vars)
	for _, vf := range opts.VarFiles {
		if strings.TrimSpace(vf) == "" {
			continue
		}
		vp, err := env.LoadVarFile(vf)
		if err != nil {
			return nil, zeroCtx, fmt.Errorf("load var-file %q: %w", vf, err)
		}
		varFileVars = env.Merge(varFileVars, vp)
	}

	envMap := env.Merge(osVars, envFileVars)
	vars, err := resolveVariables(header.Variables, envMap, env.Merge(envFileVars, varFileVars, opts.Vars))
	if err != nil {
		return nil, zeroCtx, err
	}

	ctx := TemplateContext{
		ProjectRoot: baseDir,
		Now:         time.Now().UTC(),
		Vars:        vars,
		EnvMap:      envMap,
	}

	rendered, err := ctx.Render(filepath.Base(absPath), rawBytes)
	if err != nil {
		return nil, zeroCtx, err
	}
	return rendered, ctx, nil
}

// resolveVariables applies declared defaults and environment fallbacks below the
// provided values and validates required and allow-listed variables.
func resolveVariables(specs map[string]VariableSpec, osVars, provided env.Vars) (env.Vars, error) {
	out := make(env.Vars)
	for name, spec := range specs {
		if spec.Default != nil {
			out[name] = *spec.Default
		}
		if spec.Env != "" {
			if v, ok := osVars[spec.Env]; ok {
				out[name] = v
			}
		}
	}
	out = env.Merge(out, provided)

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := specs[name]
		value, ok := out[name]
		if spec.Required && !ok {
			return nil, &ConfigurationError{Field: keyVariables + "." + name, Msg: "required variable is not set"}
		}
		if ok && len(spec.Values) > 0 && !contains(spec.Values, value) {
			return nil, &ConfigurationError{
				Field: keyVariables + "." + name,
				Msg:   fmt.Sprintf("value %q is not one of [%s]", value, strings.Join(spec.Values, ", ")),
			}
		}
	}
	return out, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
