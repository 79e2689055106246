package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Runner resolves units of a Graph against a Managers registry.
// Real and dry runs keep separate memo tables for the lifetime of the Runner.
// A Runner is not safe for concurrent use.
type Runner struct {
	graph    *Graph
	managers Managers
	logger   *slog.Logger
	progress io.Writer

	real *resolver
	dry  *resolver
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress sets where per-unit progress is written in real mode.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.progress = w
		}
	}
}

// NewRunner constructs a Runner over an immutable graph and manager registry.
func NewRunner(graph *Graph, managers Managers, opts ...Option) *Runner {
	r := &Runner{
		graph:    graph,
		managers: managers,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		progress: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.real = r.newResolver("deploy", r.applyReal)
	r.dry = r.newResolver("dry-run", applyDry)
	return r
}

// RunFull deploys every unit in graph order.
func (r *Runner) RunFull(ctx context.Context) error {
	for _, name := range r.graph.Names() {
		if _, err := r.real.resolve(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// RunPartial deploys one unit and its transitive dependencies.
func (r *Runner) RunPartial(ctx context.Context, name string) (bool, error) {
	if _, ok := r.graph.Get(name); !ok {
		return false, unknownUnit(name, nil)
	}
	return r.real.resolve(ctx, name)
}

// DryRunFull simulates every unit in graph order and reports whether any would change.
func (r *Runner) DryRunFull(ctx context.Context) (bool, error) {
	changed := false
	for _, name := range r.graph.Names() {
		unitChanged, err := r.dry.resolve(ctx, name)
		if err != nil {
			return false, err
		}
		if unitChanged {
			changed = true
		}
	}
	return changed, nil
}

// DryRunPartial simulates one unit and its transitive dependencies.
func (r *Runner) DryRunPartial(ctx context.Context, name string) (bool, error) {
	if _, ok := r.graph.Get(name); !ok {
		return false, unknownUnit(name, nil)
	}
	return r.dry.resolve(ctx, name)
}

// applyReal announces the unit and calls Manager.Deploy.
func (r *Runner) applyReal(ctx context.Context, unit Unit, m Manager, dependenciesChanged bool) (bool, error) {
	fmt.Fprintf(r.progress, "Deploying %s:\n", unit.Name)
	return m.Deploy(ctx, unit.Entity, dependenciesChanged)
}

// applyDry calls Manager.DryRun.
func applyDry(ctx context.Context, unit Unit, m Manager, dependenciesChanged bool) (bool, error) {
	return m.DryRun(ctx, unit.Entity, dependenciesChanged)
}
