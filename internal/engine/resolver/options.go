package resolver

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// optionCatalog is implemented by defaults providers that know every option name.
type optionCatalog interface {
	KnownOption(name string) bool
}

// normalizeOption reduces a raw option value to its fields when enabled.
//
//	true              -> {enabled: true}
//	false, nil        -> disabled
//	{enabled: false}  -> disabled
//	{...}             -> {enabled: true, ...}
func normalizeOption(v any) (fields map[string]any, enabled bool, err error) {
	switch val := v.(type) {
	case nil:
		return nil, false, nil
	case bool:
		if !val {
			return nil, false, nil
		}
		return map[string]any{"enabled": true}, true, nil
	case map[string]any:
		if e, ok := val["enabled"].(bool); ok && !e {
			return nil, false, nil
		}
		out := make(map[string]any, len(val)+1)
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		out["enabled"] = true
		return out, true, nil
	default:
		return nil, false, zerr.Wrap(fmt.Errorf("got %T", v), domain.ErrInvalidOption.Error())
	}
}

// normalizeOptions normalizes every option and completes the enabled ones with schema defaults.
func (r *Resolver) normalizeOptions(build string, raw any) (domain.Options, error) {
	opts := domain.Options{}
	if raw == nil {
		return opts, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, zerr.Wrap(errors.New("options must be an object"), domain.ErrInvalidOption.Error())
	}

	catalog, _ := r.defaults.(optionCatalog)
	for _, name := range slices.Sorted(maps.Keys(m)) {
		fields, enabled, err := normalizeOption(m[name])
		if err != nil {
			return nil, zerr.With(err, "option", name)
		}
		if !enabled {
			continue
		}
		if catalog != nil && !catalog.KnownOption(name) && r.logger != nil {
			r.logger.Warn(fmt.Sprintf("build %q: unknown option %q is passed through without defaults", build, name))
		}
		opts[name] = domain.NewOption(r.defaults.ApplyDefaults(fields, schemaOptions, name))
	}
	return opts, nil
}
