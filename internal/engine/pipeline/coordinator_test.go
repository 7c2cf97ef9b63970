package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/crossbuild"
	"go.trai.ch/kiln/internal/engine/diag"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	coord    *pipeline.Coordinator
	sink     *diag.Sink
	sync     *crossbuild.Coordinator
	observer *mocks.MockStageObserver
	logger   *mocks.MockLogger
}

func setup(t *testing.T, build *domain.Build) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()

	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		},
	).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	observer := mocks.NewMockStageObserver(ctrl)
	observer.EXPECT().ObserveInvocation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	sink := diag.NewSink(build.Name, logger)
	cb := crossbuild.New()

	coord := pipeline.New(build, pipeline.Config{
		ID:         cb.NextID(),
		Sink:       sink,
		Completion: cb,
		Tracer:     tracer,
		Observer:   observer,
		Logger:     logger,
	})
	return fixture{coord: coord, sink: sink, sync: cb, observer: observer, logger: logger}
}

func appBuild() *domain.Build {
	return &domain.Build{Name: "app", Type: domain.TypeApp, Mode: domain.ModeProduction, Target: domain.TargetNode}
}

type trail struct {
	mu    sync.Mutex
	steps []string
}

func (tr *trail) add(s string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.steps = append(tr.steps, s)
}

func (tr *trail) handler(step string) pipeline.Handler {
	return pipeline.Sync(func(context.Context, *pipeline.Payload) error {
		tr.add(step)
		return nil
	})
}

func TestRun_OrderOfPointsAndStages(t *testing.T) {
	f := setup(t, appBuild())
	tr := &trail{}

	regs := []pipeline.Registration{
		{Name: "emit", Point: pipeline.PointEmit, Handler: tr.handler("emit")},
		{Name: "report", Point: pipeline.PointCompilation, Stage: pipeline.StageReport, Handler: tr.handler("report")},
		{Name: "wait-1", Point: pipeline.PointInitialize, Handler: tr.handler("initialize-1")},
		{Name: "additional", Point: pipeline.PointCompilation, Stage: pipeline.StageAdditional, Handler: tr.handler("additional")},
		{Name: "wait-2", Point: pipeline.PointInitialize, Handler: tr.handler("initialize-2")},
		{Name: "optimize", Point: pipeline.PointCompilation, Stage: pipeline.StageOptimize, Handler: tr.handler("optimize")},
		{Name: "clean", Point: pipeline.PointBeforeCompile, Handler: tr.handler("beforeCompile")},
		{Name: "done", Point: pipeline.PointDone, Handler: tr.handler("done")},
		{Name: "script", Point: pipeline.PointAfterCompile, Handler: tr.handler("afterCompile")},
		{Name: "bye", Point: pipeline.PointShutdown, Handler: tr.handler("shutdown")},
	}
	for _, reg := range regs {
		require.NoError(t, f.coord.Register(reg))
	}

	require.NoError(t, f.coord.Run(t.Context()))

	assert.Equal(t, []string{
		"initialize-1", "initialize-2", "beforeCompile",
		"additional", "optimize", "report",
		"afterCompile", "emit", "done",
	}, tr.steps)
	assert.True(t, f.sync.IsDone("app"))
}

func TestRun_AsyncHandlersAreAwaited(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := setup(t, appBuild())
		tr := &trail{}

		require.NoError(t, f.coord.Register(pipeline.Registration{
			Name:  "slow",
			Point: pipeline.PointInitialize,
			Handler: pipeline.Async(func(context.Context, *pipeline.Payload) error {
				time.Sleep(time.Second)
				tr.add("slow")
				return nil
			}),
		}))
		require.NoError(t, f.coord.Register(pipeline.Registration{
			Name:    "next",
			Point:   pipeline.PointBeforeCompile,
			Handler: tr.handler("next"),
		}))

		require.NoError(t, f.coord.Run(t.Context()))
		assert.Equal(t, []string{"slow", "next"}, tr.steps)
	})
}

func TestRun_PayloadCarriesCompilation(t *testing.T) {
	f := setup(t, appBuild())

	var seen *pipeline.Payload
	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name:  "add-asset",
		Point: pipeline.PointCompilation,
		Stage: pipeline.StageAdditions,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			seen = p
			p.Compilation.EmitAsset(&domain.Asset{Name: "main.js", Content: []byte("x")})
			return nil
		}),
	}))

	require.NoError(t, f.coord.Run(t.Context()))

	require.NotNil(t, seen)
	assert.Equal(t, pipeline.PointCompilation, seen.Point)
	assert.Equal(t, pipeline.StageAdditions, seen.Stage)
	assert.Equal(t, "app", seen.Build.Name)
	assert.Equal(t, int64(1), seen.ID)
	assert.Same(t, f.coord.Compilation(), seen.Compilation)
	assert.Len(t, f.coord.Compilation().Assets(), 1)
}

func TestRun_HandlerErrorIsFatal(t *testing.T) {
	f := setup(t, appBuild())
	tr := &trail{}
	cause := errors.New("boom")

	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name:  "broken",
		Point: pipeline.PointBeforeCompile,
		Handler: pipeline.Sync(func(context.Context, *pipeline.Payload) error {
			return cause
		}),
	}))
	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name: "emit", Point: pipeline.PointEmit, Handler: tr.handler("emit"),
	}))

	err := f.coord.Run(t.Context())
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrStageFailed.Error())
	assert.ErrorIs(t, err, cause)

	var fatal *domain.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, domain.CodeHandlerFailed, fatal.Message.Code)

	assert.Empty(t, tr.steps)
	assert.False(t, f.sync.IsDone("app"))
	assert.True(t, f.sink.HasFatal())
}

func TestRun_FatalMessageIsNotReportedTwice(t *testing.T) {
	f := setup(t, appBuild())

	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name:  "script",
		Point: pipeline.PointAfterCompile,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			return p.Report(domain.NewMessage(domain.CodeScriptFailed, "script failed"))
		}),
	}))

	require.Error(t, f.coord.Run(t.Context()))

	var errs []domain.Message
	for _, m := range f.sink.Messages() {
		if m.Severity() == domain.SeverityError {
			errs = append(errs, m)
		}
	}
	require.Len(t, errs, 1)
	assert.Equal(t, domain.CodeScriptFailed, errs[0].Code)
}

func TestRun_CompilationErrorsContinueButSkipDone(t *testing.T) {
	f := setup(t, appBuild())
	tr := &trail{}

	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name:  "asset",
		Point: pipeline.PointCompilation,
		Stage: pipeline.StagePreProcess,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			return p.Report(domain.NewMessage(domain.CodeAssetFailed, "cannot parse").In(p.Compilation))
		}),
	}))
	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name: "emit", Point: pipeline.PointEmit, Handler: tr.handler("emit"),
	}))

	require.NoError(t, f.coord.Run(t.Context()))

	assert.Equal(t, []string{"emit"}, tr.steps)
	assert.True(t, f.coord.Compilation().HasErrors())
	assert.False(t, f.sync.IsDone("app"))
}

func TestRun_OnlyOnce(t *testing.T) {
	f := setup(t, appBuild())

	require.NoError(t, f.coord.Run(t.Context()))
	require.Error(t, f.coord.Run(t.Context()))

	err := f.coord.Register(pipeline.Registration{
		Name: "late", Point: pipeline.PointEmit, Handler: pipeline.Sync(func(context.Context, *pipeline.Payload) error { return nil }),
	})
	assert.ErrorContains(t, err, domain.ErrInvalidRegistration.Error())
}

func TestRun_ObserverAndLoggedFlag(t *testing.T) {
	build := appBuild()
	f := setup(t, build)

	noop := pipeline.Sync(func(context.Context, *pipeline.Payload) error { return nil })
	require.NoError(t, f.coord.Register(pipeline.Registration{Name: "a", Point: pipeline.PointEmit, Tag: "emit", Handler: noop}))
	require.NoError(t, f.coord.Register(pipeline.Registration{Name: "b", Point: pipeline.PointEmit, Tag: "emit", Handler: noop}))

	assert.False(t, f.coord.Logged(pipeline.PointEmit, ""))
	require.NoError(t, f.coord.Run(t.Context()))

	assert.True(t, f.coord.Logged(pipeline.PointEmit, ""))
	assert.False(t, f.coord.Logged(pipeline.PointInitialize, ""))
}

func TestRun_DebugBuildReportsTimings(t *testing.T) {
	build := appBuild()
	build.Debug = true
	f := setup(t, build)

	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name: "emit", Point: pipeline.PointEmit,
		Handler: pipeline.Sync(func(context.Context, *pipeline.Payload) error { return nil }),
	}))
	require.NoError(t, f.coord.Run(t.Context()))

	var timed int
	for _, m := range f.sink.Messages() {
		if m.Code == domain.CodeStageTimed {
			timed++
		}
	}
	assert.Equal(t, 1, timed)
}

func TestRegister_Validation(t *testing.T) {
	noop := pipeline.Sync(func(context.Context, *pipeline.Payload) error { return nil })

	tests := []struct {
		name string
		reg  pipeline.Registration
	}{
		{name: "missing name", reg: pipeline.Registration{Point: pipeline.PointEmit, Handler: noop}},
		{name: "missing handler", reg: pipeline.Registration{Name: "x", Point: pipeline.PointEmit}},
		{name: "unknown point", reg: pipeline.Registration{Name: "x", Point: "later", Handler: noop}},
		{name: "compilation without stage", reg: pipeline.Registration{Name: "x", Point: pipeline.PointCompilation, Handler: noop}},
		{name: "unknown stage", reg: pipeline.Registration{Name: "x", Point: pipeline.PointCompilation, Stage: "minify", Handler: noop}},
		{name: "stage outside compilation", reg: pipeline.Registration{Name: "x", Point: pipeline.PointEmit, Stage: pipeline.StageReport, Handler: noop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, appBuild())
			err := f.coord.Register(tt.reg)
			require.Error(t, err)
			assert.ErrorContains(t, err, domain.ErrInvalidRegistration.Error())
		})
	}
}

func TestDispose(t *testing.T) {
	f := setup(t, appBuild())
	tr := &trail{}

	require.NoError(t, f.coord.Register(pipeline.Registration{
		Name: "bye", Point: pipeline.PointShutdown, Handler: tr.handler("shutdown"),
	}))
	f.sync.ExpectDisposals(1)

	require.NoError(t, f.coord.Run(t.Context()))
	require.NotEmpty(t, f.sink.Messages())

	require.NoError(t, f.coord.Dispose(t.Context()))
	require.NoError(t, f.coord.Dispose(t.Context()))

	assert.Equal(t, []string{"shutdown"}, tr.steps)
	assert.Empty(t, f.sink.Messages())
	<-f.sync.AllDisposed()
}

func TestFuture(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		assert.NoError(t, pipeline.Resolved(nil).Await(t.Context()))

		cause := errors.New("late")
		fut := pipeline.Go(func() error {
			time.Sleep(time.Second)
			return cause
		})
		select {
		case <-fut.Done():
			t.Fatal("future resolved early")
		default:
		}
		assert.ErrorIs(t, fut.Await(t.Context()), cause)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		blocked := pipeline.Go(func() error {
			time.Sleep(time.Hour)
			return nil
		})
		assert.ErrorIs(t, blocked.Await(ctx), context.Canceled)
		select {
		case <-blocked.Done():
		default:
			t.Fatal("Await returned before the work finished")
		}

		panicked := pipeline.Go(func() error { panic("nil map") })
		assert.ErrorContains(t, panicked.Await(t.Context()), domain.ErrBuildPanicked.Error())
	})
}

func TestRun_CancelWaitsForRunningHandlerBeforeShutdown(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := setup(t, appBuild())

		var running, overlapped atomic.Bool
		require.NoError(t, f.coord.Register(pipeline.Registration{
			Name:  "slow",
			Point: pipeline.PointBeforeCompile,
			Handler: pipeline.Async(func(context.Context, *pipeline.Payload) error {
				running.Store(true)
				defer running.Store(false)
				time.Sleep(200 * time.Millisecond)
				return nil
			}),
		}))
		require.NoError(t, f.coord.Register(pipeline.Registration{
			Name:  "bye",
			Point: pipeline.PointShutdown,
			Handler: pipeline.Sync(func(context.Context, *pipeline.Payload) error {
				overlapped.Store(running.Load())
				return nil
			}),
		}))
		f.sync.ExpectDisposals(1)

		ctx, cancel := context.WithCancel(t.Context())
		time.AfterFunc(50*time.Millisecond, cancel)

		start := time.Now()
		err := f.coord.Run(ctx)
		require.Error(t, err)
		assert.ErrorContains(t, err, context.Canceled.Error())
		assert.Equal(t, 200*time.Millisecond, time.Since(start))

		require.NoError(t, f.coord.Dispose(t.Context()))
		assert.False(t, overlapped.Load())
	})
}

func TestHandlerCapabilities(t *testing.T) {
	fn := func(context.Context, *pipeline.Payload) error { return nil }
	assert.False(t, pipeline.Sync(fn).IsAsync())
	assert.True(t, pipeline.Async(fn).IsAsync())
}
