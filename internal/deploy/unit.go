// Package deploy contains the dependency-aware execution engine that resolves
// deployment units in dependency order and dispatches them to entity managers.
package deploy

import (
	"context"
	"fmt"
)

// EdgeKind classifies a dependency reference between two units.
type EdgeKind string

const (
	// EdgeUpdate propagates a changed outcome from the dependency to the dependent.
	EdgeUpdate EdgeKind = "update"
	// EdgeCreate only orders the dependency before the dependent.
	EdgeCreate EdgeKind = "create"
)

// WhenCondition gates whether a unit's manager is invoked at all.
type WhenCondition string

const (
	// WhenAlways invokes the manager whenever the unit is reached.
	WhenAlways WhenCondition = "always"
	// WhenDependenciesChanged invokes the manager only if an update dependency changed.
	WhenDependenciesChanged WhenCondition = "dependencies-changed"
)

// Dependency is a named reference from one unit to another.
type Dependency struct {
	// Name is the referenced unit name.
	Name string
	// Kind decides whether a change of the dependency propagates.
	Kind EdgeKind
}

// Unit describes one named thing to deploy.
type Unit struct {
	// Name is the unique unit name and key in the Graph.
	Name string
	// EntityType selects the Manager that handles the unit.
	EntityType string
	// Entity is the payload interpreted only by the selected Manager.
	Entity any
	// Dependencies lists the units resolved before this one, in order.
	Dependencies []Dependency
	// When is the conditional-execution policy.
	When WhenCondition
}

// onlyIfDependenciesChanged reports whether the unit is gated on changed dependencies.
// Every value other than WhenDependenciesChanged means always.
func (u Unit) onlyIfDependenciesChanged() bool {
	return u.When == WhenDependenciesChanged
}

// Graph is an ordered mapping from unit name to Unit.
// Iteration follows insertion order.
type Graph struct {
	names []string
	units map[string]Unit
}

// NewGraph builds a Graph from the given units, keeping their order.
func NewGraph(units ...Unit) (*Graph, error) {
	g := &Graph{units: make(map[string]Unit, len(units))}
	for _, u := range units {
		if err := g.Add(u); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add appends a unit to the graph. Names must be unique and non-empty.
func (g *Graph) Add(u Unit) error {
	if u.Name == "" {
		return fmt.Errorf("unit name is empty")
	}
	if g.units == nil {
		g.units = make(map[string]Unit)
	}
	if _, exists := g.units[u.Name]; exists {
		return fmt.Errorf("unit %q defined more than once", u.Name)
	}
	g.units[u.Name] = u
	g.names = append(g.names, u.Name)
	return nil
}

// Get returns the unit registered under name.
func (g *Graph) Get(name string) (Unit, bool) {
	if g == nil {
		return Unit{}, false
	}
	u, ok := g.units[name]
	return u, ok
}

// Names returns unit names in graph order.
func (g *Graph) Names() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Len returns the number of units in the graph.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.names)
}

// Manager realizes units of exactly one entity type.
type Manager interface {
	// Deploy applies the entity and reports whether anything changed.
	Deploy(ctx context.Context, entity any, dependenciesChanged bool) (bool, error)
	// DryRun reports what Deploy would change without mutating remote state.
	DryRun(ctx context.Context, entity any, dependenciesChanged bool) (bool, error)
}

// Managers maps an entity type to the Manager that owns it.
type Managers map[string]Manager
