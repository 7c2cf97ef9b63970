// Package resolver merges the root, mode and build layers of a configuration into finalized Builds.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	schemaOptions = "options"
	schemaLog     = "log"
)

// Options selects how a configuration is resolved.
type Options struct {
	// Mode selects the mode layer and is the default mode of every Build.
	Mode domain.Mode
	// Root is the project root relative paths resolve against.
	Root string
	// TypeOverride is used for Builds that declare no type.
	TypeOverride domain.BuildType
	// TargetOverride is used for Builds that declare no target.
	TargetOverride domain.Target
}

// Result holds the Builds that resolved, in declaration order: root-defined
// Builds first, then Builds only the mode layer defines.
type Result struct {
	Builds []*domain.Build
	// Failed names the fragments that could not be resolved.
	Failed []string
}

// Resolver turns raw configuration layers into finalized Builds.
type Resolver struct {
	defaults  ports.DefaultsProvider
	validator ports.BuildValidator
	logger    ports.Logger
}

// New creates a Resolver.
func New(defaults ports.DefaultsProvider, validator ports.BuildValidator, logger ports.Logger) *Resolver {
	return &Resolver{defaults: defaults, validator: validator, logger: logger}
}

type fragment struct {
	name   string
	layers []map[string]any
}

// Resolve finalizes every build fragment of raw.
//
// A failing fragment does not stop the others: the Result holds every Build
// that resolved and the returned error joins the failures of the rest.
// Resolve never modifies raw, so resolving the same input twice yields equal Builds.
func (r *Resolver) Resolve(raw *domain.RawConfig, opts Options) (*Result, error) {
	if raw == nil {
		raw = &domain.RawConfig{}
	}
	if !opts.Mode.Valid() {
		return nil, zerr.With(domain.ErrInvalidMode, "mode", string(opts.Mode))
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrProjectRootNotFound.Error())
	}
	opts.Root = root

	fragments, errs := r.collect(raw, opts.Mode)

	result := &Result{}
	for _, f := range fragments {
		build, err := r.finalize(f, opts)
		if err != nil {
			errs = append(errs, zerr.With(err, "build", f.name))
			result.Failed = append(result.Failed, f.name)
			continue
		}
		result.Builds = append(result.Builds, build)
	}

	if len(errs) > 0 {
		return result, zerr.Wrap(errors.Join(errs...), domain.ErrBuildResolutionFailed.Error())
	}
	return result, nil
}

// collect pairs every fragment with the layers it is merged from.
// A root-defined fragment merges as root base, fragment, mode base, then the
// mode fragment of the same name. A mode-only fragment merges as root base,
// mode base, then the fragment. The mode layer is applied last in both cases.
func (r *Resolver) collect(raw *domain.RawConfig, mode domain.Mode) ([]fragment, []error) {
	rootBase := pickBase(raw.Root, domain.BaseKeys)
	modeBase := pickBase(raw.Modes[string(mode)], domain.BaseKeys)

	var errs []error
	modeFragments := make(map[string]map[string]any)
	var modeOrder []string
	for i, f := range raw.ModeBuilds[string(mode)] {
		name, err := fragmentName(f, string(mode), i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := modeFragments[name]; dup {
			errs = append(errs, zerr.With(zerr.With(domain.ErrDuplicateBuildName, "build", name), "layer", string(mode)))
			continue
		}
		modeFragments[name] = f
		modeOrder = append(modeOrder, name)
	}

	var fragments []fragment
	seen := make(map[string]bool)
	for i, f := range raw.Builds {
		name, err := fragmentName(f, "root", i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[name] {
			errs = append(errs, zerr.With(zerr.With(domain.ErrDuplicateBuildName, "build", name), "layer", "root"))
			continue
		}
		seen[name] = true
		fragments = append(fragments, fragment{
			name:   name,
			layers: []map[string]any{rootBase, f, modeBase, modeFragments[name]},
		})
	}

	for _, name := range modeOrder {
		if seen[name] {
			continue
		}
		fragments = append(fragments, fragment{
			name:   name,
			layers: []map[string]any{rootBase, modeBase, modeFragments[name]},
		})
	}

	return fragments, errs
}

func fragmentName(f map[string]any, layer string, index int) (string, error) {
	name, _ := f["name"].(string)
	if name == "" {
		return "", zerr.With(zerr.With(domain.ErrMissingBuildName, "layer", layer), "index", index)
	}
	return name, nil
}

func (r *Resolver) finalize(f fragment, opts Options) (*domain.Build, error) {
	merged := deepMerge(f.layers...)

	options, err := r.normalizeOptions(f.name, merged["options"])
	if err != nil {
		return nil, err
	}
	delete(merged, "options")

	logMap, _ := merged["log"].(map[string]any)
	merged["log"] = r.defaults.ApplyDefaults(logMap, schemaLog, "")

	dto, err := decodeBuild(merged)
	if err != nil {
		return nil, err
	}

	build := &domain.Build{
		Name:    dto.Name,
		Type:    domain.BuildType(dto.Type),
		Mode:    domain.Mode(dto.Mode),
		Target:  domain.Target(dto.Target),
		Options: options,
		Log:     dto.Log,
		Alias:   dto.Alias,
		Source:  dto.Source,
		Entry:   dto.entries(),
		Wait:    dto.waitItems(),
		Script:  []string(dto.Script),
		VSCode:  dto.VSCode,
		Debug:   dto.Debug,
	}

	if build.Type == "" {
		build.Type = inferType(build.Name, opts.TypeOverride)
	}
	if build.Target == "" {
		build.Target = inferTarget(build.Name, build.Type, opts.TargetOverride)
	}
	if build.Mode == "" {
		build.Mode = opts.Mode
	}
	if err := requireFields(build); err != nil {
		return nil, err
	}

	build.Paths = resolvePaths(dto.Paths, opts.Root, build.Name)
	for i := range build.Wait {
		if build.Wait[i].Path != "" {
			build.Wait[i].Path = absPath(opts.Root, build.Wait[i].Path)
		}
	}
	if err := os.MkdirAll(build.Paths.Temp, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrTempDirCreateFailed.Error()), "path", build.Paths.Temp)
	}

	if err := r.validator.Validate(build); err != nil {
		r.dump(build)
		return nil, err
	}
	return build, nil
}

func requireFields(b *domain.Build) error {
	for _, f := range []struct{ name, value string }{
		{"name", b.Name},
		{"type", string(b.Type)},
		{"mode", string(b.Mode)},
		{"target", string(b.Target)},
	} {
		if f.value == "" {
			return zerr.With(domain.ErrMissingBuildField, "field", f.name)
		}
	}
	return nil
}

// resolvePaths makes every path absolute. Base resolves against root, the
// other paths against base. Missing paths get their defaults.
func resolvePaths(p domain.Paths, root, name string) domain.Paths {
	base := absPath(root, p.Base)
	return domain.Paths{
		Base: base,
		Src:  absPath(base, orDefault(p.Src, "src")),
		Dist: absPath(base, orDefault(p.Dist, filepath.Join("dist", name))),
		Ctx:  absPath(base, p.Ctx),
		Temp: absPath(base, orDefault(p.Temp, domain.DefaultTempPath(root, name))),
	}
}

func absPath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// dump logs the finalized configuration of a Build that failed validation.
func (r *Resolver) dump(build *domain.Build) {
	if r.logger == nil {
		return
	}
	data, err := yaml.Marshal(build)
	if err != nil {
		return
	}
	r.logger.Warn(fmt.Sprintf("build %q failed validation with this configuration:\n%s", build.Name, data))
}
