// Package config provides the kiln.yaml loader.
package config

import (
	"fmt"
	"path/filepath"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// buildsKey is the key holding the build fragment list at root and in every mode block.
const buildsKey = "builds"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	FS     FileSystem
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a new Loader backed by the real filesystem.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, FS: NewOSFS()}
}

// Load finds kiln.yaml at or above cwd and splits it into its configuration layers.
func (l *Loader) Load(cwd string) (*domain.RawConfig, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := l.readAndUnmarshalYAML(configPath, &doc); err != nil {
		return nil, err
	}

	raw, err := l.splitLayers(normalizeMap(doc))
	if err != nil {
		return nil, zerr.With(err, "config", configPath)
	}
	return raw, nil
}

// DiscoverRoot walks upward from cwd until a directory containing a root marker is found.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	currentDir := filepath.Clean(cwd)
	for {
		for _, marker := range domain.RootMarkers {
			if _, err := l.FS.Stat(filepath.Join(currentDir, marker)); err == nil {
				return currentDir, nil
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(domain.ErrProjectRootNotFound, "cwd", cwd)
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	currentDir := filepath.Clean(cwd)
	for {
		configPath := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := l.FS.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
}

// splitLayers separates the document into the root layer, the mode blocks, and the
// root- and mode-defined build fragments.
func (l *Loader) splitLayers(doc map[string]any) (*domain.RawConfig, error) {
	raw := &domain.RawConfig{
		Root:       make(map[string]any),
		Modes:      make(map[string]map[string]any),
		ModeBuilds: make(map[string][]map[string]any),
	}

	for key, value := range doc {
		switch {
		case key == buildsKey:
			fragments, err := fragmentList(value)
			if err != nil {
				return nil, zerr.With(err, "layer", "root")
			}
			raw.Builds = fragments
		case domain.Mode(key).Valid():
			block, ok := value.(map[string]any)
			if !ok {
				if value == nil {
					continue
				}
				return nil, zerr.With(zerr.With(domain.ErrInvalidConfigLayer, "layer", key), "reason", "mode block must be a mapping")
			}
			base := make(map[string]any, len(block))
			for k, v := range block {
				if k == buildsKey {
					fragments, err := fragmentList(v)
					if err != nil {
						return nil, zerr.With(err, "layer", key)
					}
					raw.ModeBuilds[key] = fragments
					continue
				}
				base[k] = v
			}
			raw.Modes[key] = base
		default:
			if !slices.Contains(domain.BaseKeys, key) {
				l.Logger.Warn(fmt.Sprintf("unknown key %q in %s is ignored", key, domain.ConfigFileName))
				continue
			}
			raw.Root[key] = value
		}
	}

	return raw, nil
}

func fragmentList(value any) ([]map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, zerr.With(domain.ErrInvalidConfigLayer, "reason", "builds must be a list")
	}

	fragments := make([]map[string]any, 0, len(list))
	for i, item := range list {
		fragment, ok := item.(map[string]any)
		if !ok {
			err := zerr.With(domain.ErrInvalidConfigLayer, "reason", "build fragment must be a mapping")
			return nil, zerr.With(err, "index", i)
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

// normalizeMap converts the map[any]any values yaml.v3 produces for non-string keys
// into map[string]any so the layers have one shape throughout.
func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func (l *Loader) readAndUnmarshalYAML(configPath string, target any) error {
	configFile, err := l.FS.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
