package deploy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownUnit is returned when a requested or referenced unit is not in the graph.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrUnknownManager is returned when no manager is registered for a unit's entity type.
	ErrUnknownManager = errors.New("unknown manager")
	// ErrCycleDetected is returned when a unit depends on itself through its dependencies.
	ErrCycleDetected = errors.New("dependency cycle detected")
)

// UnitError describes a resolution failure for a single unit.
type UnitError struct {
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Unit is the unit name the failure refers to.
	Unit string
	// EntityType is set for ErrUnknownManager.
	EntityType string
	// Path is the resolution path leading to the failure, outermost first.
	Path []string
}

func (e *UnitError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case errors.Is(e.Kind, ErrCycleDetected):
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Path, " -> "))
	case e.EntityType != "":
		return fmt.Sprintf("%s for entity type %q of unit %q", e.Kind, e.EntityType, e.Unit)
	case len(e.Path) > 0:
		return fmt.Sprintf("%s %q (required by %s)", e.Kind, e.Unit, strings.Join(e.Path, " -> "))
	default:
		return fmt.Sprintf("%s %q", e.Kind, e.Unit)
	}
}

func (e *UnitError) Unwrap() error { return e.Kind }

func unknownUnit(name string, path []string) error {
	return &UnitError{Kind: ErrUnknownUnit, Unit: name, Path: path}
}

func unknownManager(name, entityType string) error {
	return &UnitError{Kind: ErrUnknownManager, Unit: name, EntityType: entityType}
}

func cycleDetected(path []string) error {
	name := ""
	if len(path) > 0 {
		name = path[len(path)-1]
	}
	return &UnitError{Kind: ErrCycleDetected, Unit: name, Path: path}
}
