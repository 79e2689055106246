package deploy

import (
	"context"
	"log/slog"
)

// applyFunc performs the effect of one mode for a unit whose dependencies are resolved.
type applyFunc func(ctx context.Context, unit Unit, m Manager, dependenciesChanged bool) (bool, error)

// resolver walks the graph depth-first, dependencies before dependents,
// and memoizes the outcome of every unit it completes.
type resolver struct {
	mode     string
	graph    *Graph
	managers Managers
	logger   *slog.Logger
	apply    applyFunc

	done map[string]bool
	// visiting holds units on the current resolution path.
	visiting map[string]struct{}
	path     []string
}

func (r *Runner) newResolver(mode string, apply applyFunc) *resolver {
	return &resolver{
		mode:     mode,
		graph:    r.graph,
		managers: r.managers,
		logger:   r.logger,
		apply:    apply,
		done:     make(map[string]bool),
		visiting: make(map[string]struct{}),
	}
}

func (rs *resolver) resolve(ctx context.Context, name string) (bool, error) {
	if changed, ok := rs.done[name]; ok {
		return changed, nil
	}
	if _, ok := rs.visiting[name]; ok {
		cycle := append(rs.trace(), name)
		return false, cycleDetected(cycle)
	}

	unit, ok := rs.graph.Get(name)
	if !ok {
		return false, unknownUnit(name, rs.trace())
	}

	rs.visiting[name] = struct{}{}
	rs.path = append(rs.path, name)
	defer func() {
		delete(rs.visiting, name)
		rs.path = rs.path[:len(rs.path)-1]
	}()

	dependenciesChanged := false
	for _, dep := range unit.Dependencies {
		changed, err := rs.resolve(ctx, dep.Name)
		if err != nil {
			return false, err
		}
		if changed && dep.Kind == EdgeUpdate {
			dependenciesChanged = true
		}
	}

	manager, ok := rs.managers[unit.EntityType]
	if !ok || manager == nil {
		return false, unknownManager(name, unit.EntityType)
	}

	changed := false
	if unit.onlyIfDependenciesChanged() && !dependenciesChanged {
		rs.logger.Debug("skipping unit, no dependency changed", "mode", rs.mode, "unit", name)
	} else {
		rs.logger.Debug("applying unit", "mode", rs.mode, "unit", name, "type", unit.EntityType, "dependenciesChanged", dependenciesChanged)
		var err error
		changed, err = rs.apply(ctx, unit, manager, dependenciesChanged)
		if err != nil {
			return false, err
		}
	}

	rs.done[name] = changed
	return changed, nil
}

// trace returns a copy of the current resolution path.
func (rs *resolver) trace() []string {
	if len(rs.path) == 0 {
		return nil
	}
	out := make([]string, len(rs.path))
	copy(out, rs.path)
	return out
}
