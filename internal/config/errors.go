package config

import "fmt"

// ConfigurationError reports an invalid deployment file.
type ConfigurationError struct {
	// Unit is the unit name, empty for top-level fields.
	Unit string
	// Field is the offending field.
	Field string
	// Msg describes the problem.
	Msg string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Unit != "" && e.Field != "":
		return fmt.Sprintf("unit %q: %s: %s", e.Unit, e.Field, e.Msg)
	case e.Unit != "":
		return fmt.Sprintf("unit %q: %s", e.Unit, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	default:
		return e.Msg
	}
}

// Required returns a ConfigurationError for a missing mandatory unit field.
func Required(unit, field, entityType string) error {
	return &ConfigurationError{Unit: unit, Field: field, Msg: fmt.Sprintf("%s is required for %s", field, entityType)}
}

// Invalid returns a ConfigurationError for a malformed unit field.
func Invalid(unit, field string, format string, args ...any) error {
	return &ConfigurationError{Unit: unit, Field: field, Msg: fmt.Sprintf(format, args...)}
}
