// Package registry holds the resolved Builds of a run and selects the active ones.
package registry

import (
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// TypesBuild is the name of the Build other Builds may depend on for type declarations.
const TypesBuild = "types"

// Registry holds every resolved Build and the active subset selected for a run.
type Registry struct {
	all    []*domain.Build
	byName map[string]*domain.Build
	active []*domain.Build
	logger ports.Logger
}

// New creates a Registry over copies of builds. A selector entry matches a Build by name
// or by type; an empty selector activates every Build. Builds are never shared with the caller.
func New(builds []*domain.Build, selector []string, logger ports.Logger) (*Registry, error) {
	r := &Registry{
		all:    make([]*domain.Build, 0, len(builds)),
		byName: make(map[string]*domain.Build, len(builds)),
		logger: logger,
	}
	for _, b := range builds {
		c := *b
		c.Wait = slices.Clone(b.Wait)
		c.Active, c.Auto = false, false
		r.all = append(r.all, &c)
		r.byName[c.Name] = &c
	}

	if err := r.selectActive(selector); err != nil {
		return nil, err
	}
	if len(r.active) == 0 {
		return nil, domain.ErrNoActiveBuilds
	}

	r.injectTypes()
	r.defaultPollPaths()
	return r, nil
}

func (r *Registry) selectActive(selector []string) error {
	if len(selector) == 0 {
		for _, b := range r.all {
			b.Active = true
		}
		r.active = slices.Clone(r.all)
		return nil
	}

	for _, sel := range selector {
		matched := false
		for _, b := range r.all {
			if b.Name == sel || string(b.Type) == sel {
				b.Active = true
				matched = true
			}
		}
		if !matched {
			return zerr.With(domain.ErrBuildNotFound, "build", sel)
		}
	}

	for _, b := range r.all {
		if b.Active {
			r.active = append(r.active, b)
		}
	}
	return nil
}

// injectTypes activates the types Build when an active Build depends on it. Only one
// level is examined: the types Build's own dependencies are left alone.
func (r *Registry) injectTypes() {
	var dependents []*domain.Build
	for _, b := range r.active {
		if b.Name != TypesBuild && b.DependsOn(TypesBuild) {
			dependents = append(dependents, b)
		}
	}
	if len(dependents) == 0 {
		return
	}

	types, ok := r.byName[TypesBuild]
	if !ok {
		r.warn(fmt.Sprintf("%s depend on build %q, which is not configured", names(dependents), TypesBuild))
		return
	}

	for _, b := range dependents {
		if !b.WaitsOn(TypesBuild) {
			b.Wait = append(b.Wait, domain.WaitItem{
				Target:  TypesBuild,
				Mode:    domain.WaitEvent,
				Timeout: domain.DefaultWaitTimeout,
			})
		}
	}

	if types.Active {
		return
	}
	types.Active = true
	types.Auto = true
	r.active = slices.Insert(r.active, 0, types)
	if r.logger != nil {
		r.logger.Info(fmt.Sprintf("%s activated build %q required by %s",
			domain.CodeAutoInjected, TypesBuild, names(dependents)))
	}
}

// defaultPollPaths points poll wait items without a path at the target's dist directory.
func (r *Registry) defaultPollPaths() {
	for _, b := range r.active {
		for i := range b.Wait {
			item := &b.Wait[i]
			target, ok := r.Get(item.Target)
			if !ok {
				r.warn(fmt.Sprintf("build %q waits on unknown build %q", b.Name, item.Target))
				continue
			}
			if item.Mode == domain.WaitPoll && item.Path == "" {
				item.Path = target.Paths.Dist
			}
		}
	}
}

// Get returns the Build with the given name, or else the first Build of that type.
func (r *Registry) Get(nameOrType string) (*domain.Build, bool) {
	if b, ok := r.byName[nameOrType]; ok {
		return b, true
	}
	for _, b := range r.all {
		if string(b.Type) == nameOrType {
			return b, true
		}
	}
	return nil, false
}

// All returns every Build in declaration order.
func (r *Registry) All() []*domain.Build {
	return slices.Clone(r.all)
}

// Active returns the Builds selected for the run, an auto-injected Build first.
func (r *Registry) Active() []*domain.Build {
	return slices.Clone(r.active)
}

func (r *Registry) warn(msg string) {
	if r.logger != nil {
		r.logger.Warn(domain.CodeDependencyNotFound.String() + " " + msg)
	}
}

func names(builds []*domain.Build) string {
	out := make([]string, len(builds))
	for i, b := range builds {
		out[i] = b.Name
	}
	return strings.Join(out, ", ")
}
