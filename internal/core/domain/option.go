package domain

import (
	"encoding/json"
	"maps"
	"slices"
)

// Option is an enabled feature. A feature that is disabled is simply absent from Options,
// so holding an Option always means Enabled(fields).
type Option struct {
	Fields map[string]any
}

// NewOption returns an enabled option holding a copy of fields.
func NewOption(fields map[string]any) Option {
	o := Option{Fields: make(map[string]any, len(fields))}
	maps.Copy(o.Fields, fields)
	delete(o.Fields, "enabled")
	return o
}

// Map renders the option in its normalized shape: {enabled: true, ...fields}.
func (o Option) Map() map[string]any {
	m := make(map[string]any, len(o.Fields)+1)
	maps.Copy(m, o.Fields)
	m["enabled"] = true
	return m
}

// String returns a string field, or def when absent or not a string.
func (o Option) String(key, def string) string {
	if v, ok := o.Fields[key].(string); ok {
		return v
	}
	return def
}

// Bool returns a boolean field, or def when absent or not a boolean.
func (o Option) Bool(key string, def bool) bool {
	if v, ok := o.Fields[key].(bool); ok {
		return v
	}
	return def
}

// Int returns an integer field, or def when absent or not a number.
// Whole floats are accepted since JSON-decoded numbers arrive as float64.
func (o Option) Int(key string, def int) int {
	switch v := o.Fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return def
}

// Strings returns a string-list field. Non-string elements are skipped.
func (o Option) Strings(key string) []string {
	switch v := o.Fields[key].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler using the normalized shape.
func (o Option) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Map())
}

// MarshalYAML implements yaml.Marshaler using the normalized shape.
func (o Option) MarshalYAML() (any, error) {
	return o.Map(), nil
}

// Options maps feature names to enabled options.
type Options map[string]Option

// Enabled reports whether the named feature is enabled.
func (o Options) Enabled(name string) bool {
	_, ok := o[name]
	return ok
}

// Get returns the named option and whether it is enabled.
func (o Options) Get(name string) (Option, bool) {
	opt, ok := o[name]
	return opt, ok
}

// Names returns the enabled feature names, sorted.
func (o Options) Names() []string {
	return slices.Sorted(maps.Keys(o))
}
