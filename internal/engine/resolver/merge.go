package resolver

import (
	"maps"
	"slices"
)

// deepMerge merges the layers left to right into a new map; later layers win.
// Nested maps merge key by key, lists and scalars are replaced, and nil values
// in a later layer leave the earlier value in place. No input is modified.
func deepMerge(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(src)) {
		v := src[k]
		if v == nil {
			continue
		}
		srcMap, ok := v.(map[string]any)
		if !ok {
			dst[k] = cloneValue(v)
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		mergeInto(dstMap, srcMap)
	}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}

// pickBase copies the base keys out of a layer.
func pickBase(layer map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := layer[k]; ok {
			out[k] = cloneValue(v)
		}
	}
	return out
}
