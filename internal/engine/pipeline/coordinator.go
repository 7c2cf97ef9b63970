package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Sink stores the messages of one Build.
type Sink interface {
	Reporter
	Drain()
}

// Completion is the cross-build state a pipeline reports to.
type Completion interface {
	MarkDone(build *domain.Build)
	Disposed(build string)
}

// Config holds the collaborators of a Coordinator. Tracer, Sink and Completion are required.
type Config struct {
	ID         int64
	Sink       Sink
	Completion Completion
	Tracer     ports.Tracer
	Observer   ports.StageObserver
	Logger     ports.Logger
}

// Coordinator runs the pipeline of one Build.
type Coordinator struct {
	build *domain.Build
	cfg   Config

	mu          sync.Mutex
	hooks       map[hookKey][]Registration
	logged      map[hookKey]bool
	compilation *domain.Compilation
	started     bool

	disposeOnce sync.Once
	disposeErr  error
}

// New creates a Coordinator for build.
func New(build *domain.Build, cfg Config) *Coordinator {
	return &Coordinator{
		build:  build,
		cfg:    cfg,
		hooks:  make(map[hookKey][]Registration),
		logged: make(map[hookKey]bool),
	}
}

// Build returns the Build the coordinator runs.
func (c *Coordinator) Build() *domain.Build {
	return c.build
}

// Register adds a handler. Handlers on the same point run in registration order.
// Registration is closed once Run starts.
func (c *Coordinator) Register(reg Registration) error {
	if err := validate(reg); err != nil {
		return zerr.With(err, "build", c.build.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return zerr.With(zerr.With(zerr.Wrap(errors.New("pipeline already started"),
			domain.ErrInvalidRegistration.Error()), "build", c.build.Name), "handler", reg.Name)
	}
	c.hooks[reg.key()] = append(c.hooks[reg.key()], reg)
	return nil
}

func validate(reg Registration) error {
	var reason string
	switch {
	case reg.Name == "":
		reason = "handler name is required"
	case reg.Handler == nil:
		reason = "handler is required"
	case !reg.Point.Valid():
		reason = fmt.Sprintf("unknown point %q", reg.Point)
	case reg.Point == PointCompilation && !reg.Stage.Valid():
		reason = fmt.Sprintf("compilation handlers need a known stage, got %q", reg.Stage)
	case reg.Point != PointCompilation && reg.Stage != "":
		reason = fmt.Sprintf("stage %q is only valid on the compilation point", reg.Stage)
	default:
		return nil
	}
	return zerr.With(zerr.Wrap(errors.New(reason), domain.ErrInvalidRegistration.Error()), "handler", reg.Name)
}

// Compilation returns the compilation of the current run, or nil before Run.
func (c *Coordinator) Compilation() *domain.Compilation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compilation
}

// Logged reports whether the point, or compilation sub-stage, has been logged.
func (c *Coordinator) Logged(point Point, stage Stage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logged[hookKey{point: point, stage: stage}]
}

// Run executes every point up to done in order, and the compilation sub-stages in
// their fixed order. It returns the first fatal handler error; the remaining points
// of this Build are skipped. A run without compilation errors marks the Build done.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return zerr.With(zerr.Wrap(errors.New("pipeline already ran"), domain.ErrStageFailed.Error()), "build", c.build.Name)
	}
	c.started = true
	c.compilation = domain.NewCompilation(c.build.Name, time.Now())
	c.mu.Unlock()

	ctx, span := c.cfg.Tracer.Start(ctx, c.build.Name,
		ports.WithAttribute("build", c.build.Name),
		ports.WithAttribute("id", c.cfg.ID),
		ports.WithAttribute("type", string(c.build.Type)),
	)
	defer span.End()

	started := fmt.Sprintf("build #%d %s started (%s, %s, %s)",
		c.cfg.ID, c.build.Name, c.build.Type, c.build.Mode, c.build.Target)
	if err := c.cfg.Sink.Add(domain.NewMessage(domain.CodeBuildStarted, started)); err != nil {
		return err
	}

	for _, point := range Points {
		if point == PointShutdown {
			break
		}
		if err := c.runPoint(ctx, point); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if errs := c.compilation.Errors(); len(errs) > 0 {
		span.SetAttribute("errors", len(errs))
		return nil
	}

	c.cfg.Completion.MarkDone(c.build)
	completed := fmt.Sprintf("build %s completed in %s", c.build.Name, time.Since(c.compilation.StartedAt).Round(time.Millisecond))
	return c.cfg.Sink.Add(domain.NewMessage(domain.CodeBuildCompleted, completed).In(c.compilation))
}

func (c *Coordinator) runPoint(ctx context.Context, point Point) error {
	if point != PointCompilation {
		return c.runHook(ctx, hookKey{point: point})
	}
	for _, stage := range Stages {
		if err := c.runHook(ctx, hookKey{point: point, stage: stage}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) runHook(ctx context.Context, key hookKey) error {
	c.mu.Lock()
	regs := append([]Registration(nil), c.hooks[key]...)
	first := !c.logged[key]
	if len(regs) > 0 {
		c.logged[key] = true
	}
	c.mu.Unlock()

	if len(regs) == 0 {
		return nil
	}
	if first && c.cfg.Logger != nil {
		c.cfg.Logger.Debug(fmt.Sprintf("[%s] %s (%d handlers)", c.build.Name, key, len(regs)))
	}

	for _, reg := range regs {
		if err := c.invoke(ctx, key, reg); err != nil {
			return c.fail(key, reg, err)
		}
	}
	return nil
}

func (c *Coordinator) invoke(ctx context.Context, key hookKey, reg Registration) error {
	start := time.Now()
	spanCtx, span := c.cfg.Tracer.Start(ctx, c.build.Name+"/"+key.String(),
		ports.WithAttribute("build", c.build.Name),
		ports.WithAttribute("point", key.String()),
		ports.WithAttribute("handler", reg.Name),
		ports.WithAttribute("tag", reg.Tag),
		ports.WithAttribute("async", reg.Handler.IsAsync()),
	)

	payload := &Payload{
		ID:          c.cfg.ID,
		Build:       c.build,
		Point:       key.point,
		Stage:       key.stage,
		Compilation: c.Compilation(),
		Messages:    c.cfg.Sink,
		Span:        span,
	}
	err := reg.Handler.Invoke(spanCtx, payload).Await(ctx)
	elapsed := time.Since(start)

	span.RecordError(err)
	span.End()

	if c.cfg.Observer != nil {
		c.cfg.Observer.ObserveInvocation(c.build.Name, key.String(), reg.Tag, elapsed, err)
	}
	if c.build.Debug && err == nil {
		timed := fmt.Sprintf("%s %s took %s", key, reg.Name, elapsed)
		if terr := c.cfg.Sink.Add(domain.NewMessage(domain.CodeStageTimed, timed)); terr != nil {
			return terr
		}
	}
	return err
}

// fail turns a handler error into the fatal error of the Build. Errors that
// already went through the sink as fatal messages are not reported twice.
func (c *Coordinator) fail(key hookKey, reg Registration, err error) error {
	var fatal *domain.FatalError
	if !errors.As(err, &fatal) {
		msg := domain.NewMessage(domain.CodeHandlerFailed, fmt.Sprintf("%s handler %q failed", key, reg.Name)).Because(err)
		if ferr := c.cfg.Sink.Add(msg); ferr != nil {
			err = ferr
		}
	}

	wrapped := zerr.Wrap(err, domain.ErrStageFailed.Error())
	wrapped = zerr.With(wrapped, "build", c.build.Name)
	wrapped = zerr.With(wrapped, "point", key.String())
	return zerr.With(wrapped, "handler", reg.Name)
}

// Dispose runs the shutdown handlers, drains the Build's messages and reports
// the disposal to the dispose-all barrier. Only the first call has an effect.
func (c *Coordinator) Dispose(ctx context.Context) error {
	c.disposeOnce.Do(func() {
		c.disposeErr = c.runHook(ctx, hookKey{point: PointShutdown})
		c.cfg.Sink.Drain()
		c.cfg.Completion.Disposed(c.build.Name)
	})
	return c.disposeErr
}
