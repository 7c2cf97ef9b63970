// Package schema applies configuration defaults and validates finalized Builds.
package schema

import (
	"maps"

	"go.trai.ch/kiln/internal/core/ports"
)

// Schema names understood by ApplyDefaults.
const (
	SchemaOptions = "options"
	SchemaLog     = "log"
)

// optionDefaults holds the sub-field defaults of every known option.
var optionDefaults = map[string]map[string]any{
	"clean":     {"keep": []any{}},
	"minify":    {"level": 1, "comments": false},
	"sourcemap": {"inline": false},
	"hash":      {"length": 8},
	"script":    {"shell": "/bin/sh", "failOnError": true},
	"watch":     {"debounce": 200},
	"cache":     {},
	"report":    {"assets": true},
}

var logDefaults = map[string]any{
	"level":     3,
	"color":     true,
	"timestamp": false,
}

// Defaults implements ports.DefaultsProvider from a static table.
type Defaults struct {
	tables map[string]map[string]map[string]any
}

var _ ports.DefaultsProvider = (*Defaults)(nil)

// NewDefaults returns the provider for the built-in schemas.
func NewDefaults() *Defaults {
	return &Defaults{
		tables: map[string]map[string]map[string]any{
			SchemaOptions: optionDefaults,
			SchemaLog:     {"": logDefaults},
		},
	}
}

// ApplyDefaults returns a copy of partial with every missing default sub-field set.
// Fields already present in partial are kept, even when they hold the zero value.
func (d *Defaults) ApplyDefaults(partial map[string]any, schemaName, key string) map[string]any {
	out := make(map[string]any, len(partial))
	maps.Copy(out, partial)

	defaults, ok := d.tables[schemaName][key]
	if !ok {
		return out
	}
	for k, v := range defaults {
		if _, present := out[k]; present {
			continue
		}
		out[k] = cloneDefault(v)
	}
	return out
}

// KnownOption reports whether the named option has a schema entry.
func (d *Defaults) KnownOption(name string) bool {
	_, ok := d.tables[SchemaOptions][name]
	return ok
}

func cloneDefault(v any) any {
	switch val := v.(type) {
	case []any:
		return append([]any{}, val...)
	case map[string]any:
		return maps.Clone(val)
	default:
		return v
	}
}
