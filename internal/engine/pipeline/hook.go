// Package pipeline runs the lifecycle points of one Build and the stage handlers registered on them.
package pipeline

import (
	"context"
	"fmt"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Point is a named lifecycle point of a Build's pipeline.
type Point string

const (
	PointInitialize    Point = "initialize"
	PointBeforeCompile Point = "beforeCompile"
	PointCompilation   Point = "compilation"
	PointAfterCompile  Point = "afterCompile"
	PointEmit          Point = "emit"
	PointDone          Point = "done"
	PointShutdown      Point = "shutdown"
)

// Points lists every lifecycle point in run order. Shutdown only runs on Dispose.
var Points = []Point{
	PointInitialize,
	PointBeforeCompile,
	PointCompilation,
	PointAfterCompile,
	PointEmit,
	PointDone,
	PointShutdown,
}

// Valid reports whether p is a known point.
func (p Point) Valid() bool {
	return slices.Contains(Points, p)
}

// Stage is a sub-stage of the compilation point.
type Stage string

const (
	StageAdditional            Stage = "additional"
	StagePreProcess            Stage = "preProcess"
	StageDerived               Stage = "derived"
	StageAdditions             Stage = "additions"
	StageOptimize              Stage = "optimize"
	StageOptimizeCount         Stage = "optimizeCount"
	StageOptimizeCompatibility Stage = "optimizeCompatibility"
	StageOptimizeSize          Stage = "optimizeSize"
	StageDevTooling            Stage = "devTooling"
	StageOptimizeInline        Stage = "optimizeInline"
	StageSummarize             Stage = "summarize"
	StageOptimizeHash          Stage = "optimizeHash"
	StageOptimizeTransfer      Stage = "optimizeTransfer"
	StageAnalyse               Stage = "analyse"
	StageReport                Stage = "report"
)

// Stages lists the compilation sub-stages in their fixed order.
var Stages = []Stage{
	StageAdditional,
	StagePreProcess,
	StageDerived,
	StageAdditions,
	StageOptimize,
	StageOptimizeCount,
	StageOptimizeCompatibility,
	StageOptimizeSize,
	StageDevTooling,
	StageOptimizeInline,
	StageSummarize,
	StageOptimizeHash,
	StageOptimizeTransfer,
	StageAnalyse,
	StageReport,
}

// Valid reports whether s is a known compilation sub-stage.
func (s Stage) Valid() bool {
	return slices.Contains(Stages, s)
}

// Reporter receives the messages a handler produces.
type Reporter interface {
	Add(msg domain.Message) error
}

// Payload is what a handler receives when its point runs.
type Payload struct {
	ID          int64
	Build       *domain.Build
	Point       Point
	Stage       Stage
	Compilation *domain.Compilation
	Messages    Reporter
	// Span traces the handler invocation. Handlers may write their output to it.
	Span ports.Span
}

// Report adds msg to the Build's messages.
func (p *Payload) Report(msg domain.Message) error {
	return p.Messages.Add(msg)
}

// Handler is the capability a stage handler registers with.
type Handler interface {
	// IsAsync reports whether Invoke returns before the work is finished.
	IsAsync() bool
	// Invoke starts the handler and returns a future for its result.
	Invoke(ctx context.Context, p *Payload) *Future
}

// HandlerFunc is the callback a handler wraps.
type HandlerFunc func(ctx context.Context, p *Payload) error

// Future is the pending result of a handler invocation.
type Future struct {
	done chan struct{}
	err  error
}

// Resolved returns a future that already holds err.
func Resolved(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Go runs fn on a new goroutine and returns its future.
// A panic in fn becomes the future's error.
func Go(fn func() error) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = zerr.With(domain.ErrBuildPanicked, "panic", fmt.Sprint(r))
			}
		}()
		f.err = fn()
	}()
	return f
}

// Done returns a channel closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available. Once ctx is done it still waits
// for the work to return, so the next point never overlaps it, and reports
// ctx.Err() unless the work failed on its own.
func (f *Future) Await(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		<-f.done
		if f.err != nil {
			return f.err
		}
		return ctx.Err()
	}
}

type syncHandler struct{ fn HandlerFunc }

func (syncHandler) IsAsync() bool { return false }

func (h syncHandler) Invoke(ctx context.Context, p *Payload) *Future {
	return Resolved(h.fn(ctx, p))
}

type asyncHandler struct{ fn HandlerFunc }

func (asyncHandler) IsAsync() bool { return true }

func (h asyncHandler) Invoke(ctx context.Context, p *Payload) *Future {
	return Go(func() error { return h.fn(ctx, p) })
}

// Sync wraps fn as a handler that finishes before Invoke returns.
func Sync(fn HandlerFunc) Handler {
	return syncHandler{fn: fn}
}

// Async wraps fn as a handler that runs on its own goroutine and is awaited before the pipeline advances.
func Async(fn HandlerFunc) Handler {
	return asyncHandler{fn: fn}
}

// Registration binds a handler to a point, or to a sub-stage of the compilation point.
type Registration struct {
	Name    string
	Point   Point
	Stage   Stage
	Tag     string
	Handler Handler
}

func (r Registration) key() hookKey {
	return hookKey{point: r.Point, stage: r.Stage}
}

type hookKey struct {
	point Point
	stage Stage
}

func (k hookKey) String() string {
	if k.stage == "" {
		return string(k.point)
	}
	return string(k.point) + "." + string(k.stage)
}
