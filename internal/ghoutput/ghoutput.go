// Package ghoutput publishes apply results as GitHub Actions step outputs.
package ghoutput

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Result describes a finished apply.
type Result struct {
	// DryRun is true when nothing was changed.
	DryRun bool
	// Unit is the target of a partial run; empty for a full run.
	Unit string
	// Changed is nil when the run does not report an outcome (full real runs).
	Changed *bool
}

// lines renders r as key=value output lines in a fixed order.
func (r Result) lines() []string {
	mode := "apply"
	if r.DryRun {
		mode = "dry-run"
	}
	out := []string{"mode=" + mode}
	if r.Unit != "" {
		out = append(out, "unit="+sanitize(r.Unit))
	}
	if r.Changed != nil {
		out = append(out, "changed="+strconv.FormatBool(*r.Changed))
	}
	return out
}

// Write appends r to the file named by GITHUB_OUTPUT. It does nothing outside GitHub Actions.
func Write(r Result) error {
	return WriteFile(strings.TrimSpace(os.Getenv("GITHUB_OUTPUT")), r)
}

// WriteFile appends r to path. An empty path is a no-op.
func WriteFile(path string, r Result) error {
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("open step output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, line := range r.lines() {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("write step output: %w", err)
		}
	}
	return nil
}

func sanitize(value string) string {
	value = strings.ReplaceAll(value, "\r", "%0D")
	return strings.ReplaceAll(value, "\n", "%0A")
}
