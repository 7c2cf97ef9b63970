// Package scheduler runs the active Builds of a run concurrently, each on its own pipeline.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/crossbuild"
	"go.trai.ch/kiln/internal/engine/diag"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// BuildStatus represents the status of a Build within a run.
type BuildStatus string

const (
	// StatusPending indicates the Build is waiting for a free slot.
	StatusPending BuildStatus = "Pending"
	// StatusRunning indicates the Build's pipeline is running.
	StatusRunning BuildStatus = "Running"
	// StatusCompleted indicates the Build finished without errors.
	StatusCompleted BuildStatus = "Completed"
	// StatusFailed indicates the Build failed fatally or with compilation errors.
	StatusFailed BuildStatus = "Failed"
)

// Setup registers the stage handlers of one Build's pipeline. It receives the
// cross-build coordinator of the run so handlers can wait on other Builds.
type Setup func(coord *pipeline.Coordinator, sync *crossbuild.Coordinator) error

// RunOptions configures one run.
type RunOptions struct {
	// Parallelism caps the number of concurrently running Builds. Zero or a value
	// above the number of Builds runs every Build at once.
	Parallelism int
	Setup       Setup
	Observer    ports.StageObserver
	// OnDisposeAll runs once every Build of the run has disposed.
	OnDisposeAll func()
	// Completed lists Builds finished by an earlier run. They count as done
	// for the wait items of this run without running again.
	Completed []*domain.Build
}

// Scheduler runs Builds.
type Scheduler struct {
	tracer ports.Tracer
	logger ports.Logger

	mu          sync.RWMutex
	buildStatus map[string]BuildStatus
}

// NewScheduler creates a new Scheduler.
func NewScheduler(tracer ports.Tracer, logger ports.Logger) *Scheduler {
	return &Scheduler{
		tracer:      tracer,
		logger:      logger,
		buildStatus: make(map[string]BuildStatus),
	}
}

func (s *Scheduler) initStatuses(builds []*domain.Build) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buildStatus = make(map[string]BuildStatus, len(builds))
	for _, b := range builds {
		s.buildStatus[b.Name] = StatusPending
	}
}

func (s *Scheduler) updateStatus(name string, status BuildStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildStatus[name] = status
}

// Status returns the status of the named Build in the latest run.
func (s *Scheduler) Status(name string) (BuildStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.buildStatus[name]
	return status, ok
}

// Statuses returns a copy of every Build status of the latest run.
func (s *Scheduler) Statuses() map[string]BuildStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.buildStatus)
}

// Run executes every Build on its own pipeline with a fresh cross-build coordinator.
// One Build failing never cancels another. Run returns once every Build has disposed;
// the error joins the failures of all failed Builds.
func (s *Scheduler) Run(ctx context.Context, builds []*domain.Build, opts RunOptions) error {
	cb := crossbuild.New()
	cb.ExpectDisposals(len(builds))
	if opts.OnDisposeAll != nil {
		cb.OnDisposeAll(opts.OnDisposeAll)
	}
	for _, b := range opts.Completed {
		cb.MarkDone(b)
	}
	s.initStatuses(builds)

	parallelism := opts.Parallelism
	if parallelism <= 0 || parallelism > len(builds) {
		parallelism = len(builds)
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(max(parallelism, 1))

	for _, b := range builds {
		g.Go(func() error {
			if err := s.runBuild(ctx, cb, b, opts); err != nil {
				mu.Lock()
				errs = errors.Join(errs, zerr.With(err, "build", b.Name))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	<-cb.AllDisposed()
	return errs
}

func (s *Scheduler) runBuild(ctx context.Context, cb *crossbuild.Coordinator, b *domain.Build, opts RunOptions) (err error) {
	coord := pipeline.New(b, pipeline.Config{
		ID:         cb.NextID(),
		Sink:       diag.NewSink(b.Name, s.logger),
		Completion: cb,
		Tracer:     s.tracer,
		Observer:   opts.Observer,
		Logger:     s.logger,
	})

	defer func() {
		if r := recover(); r != nil {
			err = zerr.With(domain.ErrBuildPanicked, "panic", fmt.Sprint(r))
		}
		if derr := coord.Dispose(ctx); derr != nil {
			err = errors.Join(err, derr)
		}
		if err != nil {
			s.updateStatus(b.Name, StatusFailed)
			return
		}
		s.updateStatus(b.Name, StatusCompleted)
	}()

	if opts.Setup != nil {
		if err := opts.Setup(coord, cb); err != nil {
			return err
		}
	}

	s.updateStatus(b.Name, StatusRunning)
	if err := coord.Run(ctx); err != nil {
		return err
	}
	if errs := coord.Compilation().Errors(); len(errs) > 0 {
		return zerr.With(domain.ErrCompilationFailed, "errors", len(errs))
	}
	return nil
}
