package deploy

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

// Plan returns the units of g in an order where every dependency precedes its
// dependents. Ties keep graph order. Plan validates the whole graph upfront,
// unlike the Runner which only inspects reachable units.
func Plan(g *Graph) ([]string, error) {
	names := g.Names()
	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}

	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, name := range names {
		if err := dg.AddVertex(name); err != nil {
			return nil, fmt.Errorf("add unit %q: %w", name, err)
		}
	}

	for _, name := range names {
		unit, _ := g.Get(name)
		for _, dep := range unit.Dependencies {
			if _, ok := position[dep.Name]; !ok {
				return nil, unknownUnit(dep.Name, []string{name})
			}
			if dep.Name == name {
				return nil, cycleDetected([]string{name, name})
			}
			err := dg.AddEdge(dep.Name, name)
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, cycleDetected(cyclePath(g, dep.Name, name))
			default:
				return nil, fmt.Errorf("add dependency %q -> %q: %w", dep.Name, name, err)
			}
		}
	}

	order, err := graph.StableTopologicalSort(dg, func(a, b string) bool {
		return position[a] < position[b]
	})
	if err != nil {
		return nil, fmt.Errorf("sort units: %w", err)
	}
	return order, nil
}

// cyclePath finds the dependency chain from name back to dependency that closes a cycle,
// returned as dependent-first path ending in the repeated unit.
func cyclePath(g *Graph, dependency, name string) []string {
	visited := make(map[string]struct{})
	var walk func(current string, path []string) []string
	walk = func(current string, path []string) []string {
		path = append(path, current)
		if current == name {
			return path
		}
		if _, seen := visited[current]; seen {
			return nil
		}
		visited[current] = struct{}{}
		unit, _ := g.Get(current)
		for _, dep := range unit.Dependencies {
			if found := walk(dep.Name, path); found != nil {
				return found
			}
		}
		return nil
	}
	if found := walk(dependency, []string{name}); found != nil {
		return found
	}
	return []string{name, dependency, name}
}
