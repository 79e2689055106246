// Package env loads and merges variables from the process environment, dotenv files,
// var-files and command-line assignments.
package env

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vars represents a simple string-to-string map of variables.
type Vars map[string]string

// FromOS builds a Vars map from the current process environment.
func FromOS() Vars {
	out := make(Vars)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}

// Merge merges several Vars maps into one, later maps overriding earlier keys.
func Merge(sets ...Vars) Vars {
	out := make(Vars)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// Keys returns the variable names in sorted order.
func (v Vars) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadEnvFile loads a single .env-style file into Vars.
func LoadEnvFile(path string) (Vars, error) {
	envMap, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	return Vars(envMap), nil
}

// LoadEnvFiles loads multiple .env-style files relative to baseDir and merges them in order.
func LoadEnvFiles(baseDir string, files []string) (Vars, error) {
	result := make(Vars)
	for _, name := range files {
		if strings.TrimSpace(name) == "" {
			continue
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, name)
		}
		vars, err := LoadEnvFile(path)
		if err != nil {
			return nil, fmt.Errorf("load env file %q: %w", path, err)
		}
		result = Merge(result, vars)
	}
	return result, nil
}

// ParseVarList parses repeated key=value assignments as given on the command line.
func ParseVarList(assignments []string) (Vars, error) {
	out := make(Vars)
	for _, part := range assignments {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable %q, expected key=value", part)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key in variable %q", part)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// LoadVarFile loads a var-file. A YAML mapping of scalars is accepted first;
// otherwise the file is read as key=value or key: value lines.
func LoadVarFile(path string) (Vars, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var mapping map[string]string
	if err := yaml.Unmarshal(raw, &mapping); err == nil && mapping != nil {
		return Vars(mapping), nil
	}

	result := make(Vars)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sep := ":"
		if strings.Contains(line, "=") {
			sep = "="
		}
		key, value, ok := strings.Cut(line, sep)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key != "" {
			result[key] = unquote(strings.TrimSpace(value))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
