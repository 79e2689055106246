package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/dcosdeploy/internal/deploy"
)

// EntityParser turns the rendered YAML of one unit into the entity payload its
// manager expects. The node contains every field of the unit, shared ones included.
type EntityParser func(name string, node *yaml.Node, ctx TemplateContext) (any, error)

// Parsers maps an entity type to its parser.
type Parsers map[string]EntityParser

// ParseGraph parses rendered deployment YAML into a graph, in document order.
// Units whose type has no parser keep their raw *yaml.Node as entity.
func ParseGraph(rendered []byte, ctx TemplateContext, parsers Parsers) (*deploy.Graph, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(rendered, &doc); err != nil {
		return nil, fmt.Errorf("parse rendered config: %w", err)
	}

	g, err := deploy.NewGraph()
	if err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return g, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigurationError{Msg: "top level must be a mapping of unit names"}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		node := root.Content[i+1]
		if name == keyVariables || name == keyEnvFiles {
			continue
		}
		u, err := parseUnit(name, node, ctx, parsers)
		if err != nil {
			return nil, err
		}
		if err := g.Add(u); err != nil {
			return nil, &ConfigurationError{Unit: name, Msg: err.Error()}
		}
	}
	return g, nil
}

func parseUnit(name string, node *yaml.Node, ctx TemplateContext, parsers Parsers) (deploy.Unit, error) {
	if node.Kind != yaml.MappingNode {
		return deploy.Unit{}, &ConfigurationError{Unit: name, Msg: "unit definition must be a mapping"}
	}

	var header unitHeader
	if err := node.Decode(&header); err != nil {
		return deploy.Unit{}, &ConfigurationError{Unit: name, Msg: err.Error()}
	}
	entityType := strings.TrimSpace(header.Type)
	if entityType == "" {
		return deploy.Unit{}, &ConfigurationError{Unit: name, Field: "type", Msg: "type is required"}
	}

	deps := make([]deploy.Dependency, 0, len(header.Dependencies))
	for _, raw := range header.Dependencies {
		dep, err := ParseDependency(raw)
		if err != nil {
			return deploy.Unit{}, &ConfigurationError{Unit: name, Field: "dependencies", Msg: err.Error()}
		}
		deps = append(deps, dep)
	}

	var entity any = node
	if parse, ok := parsers[entityType]; ok && parse != nil {
		parsed, err := parse(name, node, ctx)
		if err != nil {
			return deploy.Unit{}, err
		}
		entity = parsed
	}

	return deploy.Unit{
		Name:         name,
		EntityType:   entityType,
		Entity:       entity,
		Dependencies: deps,
		When:         deploy.WhenCondition(strings.TrimSpace(header.When)),
	}, nil
}

// ParseDependency parses "name" or "name:kind". The kind defaults to create.
func ParseDependency(raw string) (deploy.Dependency, error) {
	raw = strings.TrimSpace(raw)
	name, kind := raw, ""
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		name, kind = strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
		if kind == "" {
			return deploy.Dependency{}, fmt.Errorf("dependency %q has an empty kind", raw)
		}
	}
	if name == "" {
		return deploy.Dependency{}, fmt.Errorf("dependency name is empty")
	}
	if kind == "" {
		kind = string(deploy.EdgeCreate)
	}
	return deploy.Dependency{Name: name, Kind: deploy.EdgeKind(kind)}, nil
}
