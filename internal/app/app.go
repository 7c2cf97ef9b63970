// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/adapters/stats"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/crossbuild"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/kiln/internal/engine/registry"
	"go.trai.ch/kiln/internal/engine/resolver"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/kiln/internal/engine/stages"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	defaults     ports.DefaultsProvider
	validator    ports.BuildValidator
	scheduler    *scheduler.Scheduler
	executor     ports.Executor
	walker       stages.Walker
	caches       *cas.Opener
	logger       ports.Logger

	stats    *stats.Collector
	watchers watcher.Factory
	output   io.Writer
	dir      string
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	defaults ports.DefaultsProvider,
	validator ports.BuildValidator,
	sched *scheduler.Scheduler,
	executor ports.Executor,
	walker stages.Walker,
	caches *cas.Opener,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		defaults:     defaults,
		validator:    validator,
		scheduler:    sched,
		executor:     executor,
		walker:       walker,
		caches:       caches,
		logger:       log,
		output:       os.Stdout,
	}
}

// WithStats records stage statistics on c.
func (a *App) WithStats(c *stats.Collector) *App {
	a.stats = c
	return a
}

// WithWatcher sets the factory used to create the file watcher of watch mode.
func (a *App) WithWatcher(f watcher.Factory) *App {
	a.watchers = f
	return a
}

// WithOutput sets where script commands write their output.
func (a *App) WithOutput(w io.Writer) *App {
	a.output = w
	return a
}

// WithDir makes the App look for the configuration from dir instead of the working directory.
func (a *App) WithDir(dir string) *App {
	a.dir = dir
	return a
}

// LogOptions configures the logger.
type LogOptions struct {
	Debug bool
	JSON  bool
}

type configurableLogger interface {
	SetDebug(enable bool)
	SetJSON(enable bool)
}

// ConfigureLogger applies opts when the logger supports them.
func (a *App) ConfigureLogger(opts LogOptions) {
	if l, ok := a.logger.(configurableLogger); ok {
		l.SetJSON(opts.JSON)
		l.SetDebug(opts.Debug)
	}
}

// SelectOptions selects the configuration and the Builds a command works on.
type SelectOptions struct {
	// Mode defaults to production.
	Mode string
	// Builds names the Builds to activate, by name or type. Empty activates every Build.
	Builds []string
	Type   string
	Target string
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	SelectOptions

	NoCache bool
	// Parallelism caps the number of concurrently running Builds. Zero runs all at once.
	Parallelism int
	// StatsFile receives the collected statistics once every Build has disposed.
	StatsFile string
	// Watch keeps running and rebuilds the affected Builds when sources change.
	Watch bool
}

// plan is the resolved state a command works on.
type plan struct {
	root     string
	registry *registry.Registry
	// err joins the failures of Builds that could not be resolved.
	err error
}

func (a *App) workingDir() (string, error) {
	if a.dir != "" {
		return a.dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", zerr.Wrap(err, "failed to get working directory")
	}
	return wd, nil
}

func (a *App) plan(opts SelectOptions) (*plan, error) {
	cwd, err := a.workingDir()
	if err != nil {
		return nil, err
	}

	raw, err := a.configLoader.Load(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	root, err := a.configLoader.DiscoverRoot(cwd)
	if err != nil {
		return nil, err
	}

	mode := domain.Mode(opts.Mode)
	if mode == "" {
		mode = domain.ModeProduction
	}

	res, resolveErr := resolver.New(a.defaults, a.validator, a.logger).Resolve(raw, resolver.Options{
		Mode:           mode,
		Root:           root,
		TypeOverride:   domain.BuildType(opts.Type),
		TargetOverride: domain.Target(opts.Target),
	})
	if res == nil || len(res.Builds) == 0 {
		if resolveErr != nil {
			return nil, resolveErr
		}
		return nil, domain.ErrNoActiveBuilds
	}
	reg, err := registry.New(res.Builds, opts.Builds, a.logger)
	if err != nil {
		return nil, err
	}
	return &plan{root: root, registry: reg, err: resolveErr}, nil
}

// Run resolves the configuration and runs the active Builds.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	p, err := a.plan(opts.SelectOptions)
	if err != nil {
		return err
	}

	if p.err != nil {
		a.logger.Error(p.err)
	}
	active := p.registry.Active()
	if a.debugRequested(active) {
		a.ConfigureLogger(LogOptions{Debug: true})
	}

	runErr := a.execute(ctx, p.root, active, nil, opts)
	if opts.Watch {
		return a.watch(ctx, p.root, active, opts)
	}
	if err := errors.Join(p.err, runErr); err != nil {
		// Both failures were already reported.
		return errors.Join(domain.ErrBuildExecutionFailed, err)
	}
	return nil
}

func (a *App) debugRequested(builds []*domain.Build) bool {
	for _, b := range builds {
		if b.Debug {
			return true
		}
	}
	return false
}

// execute runs builds once and reports the outcome. Builds in completed count as
// already done for wait items.
func (a *App) execute(ctx context.Context, root string, builds, completed []*domain.Build, opts RunOptions) error {
	cfg := stages.Config{
		Root:     root,
		Walker:   a.walker,
		Executor: a.executor,
		Output:   a.output,
	}
	if !opts.NoCache && a.caches != nil {
		cfg.CacheDir = domain.DefaultCachePath(root)
		cfg.Caches = a.caches
	}

	runOpts := scheduler.RunOptions{
		Parallelism: opts.Parallelism,
		Completed:   completed,
	}
	if a.stats != nil {
		runOpts.Observer = a.stats
		if cfg.Caches != nil {
			cfg.Caches = a.caches.WithObserver(a.stats)
		}
		if opts.StatsFile != "" {
			runOpts.OnDisposeAll = func() { a.writeStats(opts.StatsFile) }
		}
	}
	runOpts.Setup = func(coord *pipeline.Coordinator, cb *crossbuild.Coordinator) error {
		c := cfg
		c.Waiter = cb
		return stages.Register(coord, c)
	}

	a.logger.Info(fmt.Sprintf("running %s", buildNames(builds)))
	if err := a.scheduler.Run(ctx, builds, runOpts); err != nil {
		a.logger.Error(err)
		return err
	}
	a.logger.Success(fmt.Sprintf("%d builds completed", len(builds)))
	return nil
}

func (a *App) writeStats(path string) {
	if err := a.stats.WriteFile(path); err != nil {
		a.logger.Error(err)
		return
	}
	a.logger.Info(fmt.Sprintf("statistics for %d builds written to %s", a.stats.Builds(), path))
}

// Builds resolves the configuration and returns every finalized Build.
// Unselected Builds are returned too, with Active unset.
func (a *App) Builds(_ context.Context, opts SelectOptions) ([]*domain.Build, error) {
	p, err := a.plan(opts)
	if err != nil {
		return nil, err
	}
	return p.registry.All(), p.err
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	SelectOptions

	// Dist also empties the dist directory of every selected Build.
	Dist bool
}

// Clean removes the cache state and, with Dist, the output of the selected Builds.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if !options.Dist {
		cwd, err := a.workingDir()
		if err != nil {
			return err
		}
		root, err := a.configLoader.DiscoverRoot(cwd)
		if err != nil {
			return err
		}
		remove(domain.DefaultCachePath(root), "content cache")
		remove(domain.DefaultTempPath(root, ""), "build temp directories")
		return errs
	}

	p, err := a.plan(options.SelectOptions)
	if err != nil {
		return err
	}
	errs = p.err
	remove(domain.DefaultCachePath(p.root), "content cache")
	remove(domain.DefaultTempPath(p.root, ""), "build temp directories")
	for _, b := range p.registry.Active() {
		if err := stages.CheckInside(p.root, b.Paths.Dist); err != nil {
			errs = errors.Join(errs, zerr.With(err, "build", b.Name))
			continue
		}
		remove(b.Paths.Dist, fmt.Sprintf("dist of %s", b.Name))
	}
	return errs
}

func buildNames(builds []*domain.Build) string {
	names := make([]string, len(builds))
	for i, b := range builds {
		names[i] = b.Name
	}
	return strings.Join(names, ", ")
}
