package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/codex-k8s/dcosdeploy/internal/env"
)

// TemplateContext is the data exposed to Go templates in the deployment file and in
// files referenced by units, such as Kubernetes manifests.
type TemplateContext struct {
	// ProjectRoot is the directory containing the deployment file.
	ProjectRoot string
	// Now is the timestamp captured for template rendering.
	Now time.Time
	// Vars contains the resolved deployment variables.
	Vars env.Vars
	// EnvMap merges the OS environment and env files.
	EnvMap env.Vars
}

// Render renders content with the context and helper functions.
// Referencing an undefined variable is an error.
func (c TemplateContext) Render(name string, raw []byte) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(c.funcMap()).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, c); err != nil {
		return nil, fmt.Errorf("execute template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderFile reads a file relative to ProjectRoot and renders it.
func (c TemplateContext) RenderFile(path string) ([]byte, error) {
	full := c.Path(path)
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", full, err)
	}
	return c.Render(full, raw)
}

// Path resolves path relative to ProjectRoot unless it is absolute.
func (c TemplateContext) Path(path string) string {
	if filepath.IsAbs(path) || c.ProjectRoot == "" {
		return path
	}
	return filepath.Join(c.ProjectRoot, path)
}

func (c TemplateContext) funcMap() template.FuncMap {
	return template.FuncMap{
		"default":    funcDef,
		"toLower":    strings.ToLower,
		"toUpper":    strings.ToUpper,
		"slug":       funcSlug,
		"envOr":      funcEnvOr(c.EnvMap),
		"ternary":    funcTernary,
		"now":        func() time.Time { return c.Now },
		"join":       strings.Join,
		"trimPrefix": strings.TrimPrefix,
	}
}

// funcDef returns def when value is empty or whitespace, otherwise value.
func funcDef(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// funcSlug normalizes a value into a lower-case dash-separated slug.
func funcSlug(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, " ", "-")
	v = strings.ReplaceAll(v, "_", "-")
	v = strings.ReplaceAll(v, "/", "-")
	return v
}

func funcEnvOr(envMap env.Vars) func(key, def string) string {
	return func(key, def string) string {
		if v, ok := envMap[key]; ok && v != "" {
			return v
		}
		return def
	}
}

func funcTernary(cond bool, a, b any) any {
	if cond {
		return a
	}
	return b
}
