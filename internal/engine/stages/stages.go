// Package stages provides the built-in stage handlers every Build pipeline registers.
package stages

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/crossbuild"
	"go.trai.ch/kiln/internal/engine/pipeline"
)

// Tag marks the registrations of this package in statistics and traces.
const Tag = "builtin"

// Waiter resolves wait items against the other Builds of the run.
type Waiter interface {
	Wait(ctx context.Context, item domain.WaitItem) (crossbuild.Result, error)
}

// CacheOpener opens the content cache of one Build stage.
type CacheOpener interface {
	Open(dir string, build *domain.Build, stage string, reporter cas.Reporter) (*cas.Cache, error)
}

// Registrar accepts stage handler registrations.
type Registrar interface {
	Register(reg pipeline.Registration) error
}

// Config holds the collaborators of the built-in stages.
type Config struct {
	// Root is the project root. Dist directories outside it are never cleaned.
	Root string
	// CacheDir holds the content caches. Caching is off when it is empty or Caches is nil.
	CacheDir string
	Caches   CacheOpener
	Walker   Walker
	Waiter   Waiter
	Executor ports.Executor
	// Output receives the output of script commands.
	Output io.Writer
}

// Register adds every built-in stage to r.
func Register(r Registrar, cfg Config) error {
	regs := []pipeline.Registration{
		Wait(cfg.Waiter),
		Clean(cfg.Root),
		Sources(cfg.Walker, cfg.Caches, cfg.CacheDir),
		Hash(),
		Report(),
		Script(cfg.Executor, cfg.Output),
		Emit(),
	}
	for _, reg := range regs {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
