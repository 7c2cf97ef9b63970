package diag_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/diag"
	"go.uber.org/mock/gomock"
)

func newSink(t *testing.T) (*diag.Sink, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return diag.NewSink("app", log), log
}

func TestSink_InfoAndWarning(t *testing.T) {
	sink, log := newSink(t)
	comp := domain.NewCompilation("app", time.Now())

	var warned string
	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) { warned = msg })

	require.NoError(t, sink.Add(domain.NewMessage(domain.CodeBuildStarted, "started")))
	require.NoError(t, sink.Add(domain.NewMessage(domain.CodeWaitTimeout, "slow").In(comp)))
	assert.Equal(t, "[app] K0301 slow", warned, "warnings are logged on arrival")

	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.CodeBuildStarted, msgs[0].Code)
	assert.Equal(t, domain.CodeWaitTimeout, msgs[1].Code)

	assert.Empty(t, comp.Infos())
	require.Len(t, comp.Warnings(), 1)
	assert.False(t, sink.HasErrors())
}

func TestSink_ErrorWithCompilationDoesNotThrow(t *testing.T) {
	sink, _ := newSink(t)
	comp := domain.NewCompilation("app", time.Now())

	err := sink.Add(domain.NewMessage(domain.CodeAssetFailed, "bad asset").In(comp))
	require.NoError(t, err)

	require.Len(t, comp.Errors(), 1)
	assert.Equal(t, "bad asset", comp.Errors()[0].Text)
	assert.True(t, sink.HasErrors())
	assert.False(t, sink.HasFatal())
}

func TestSink_ErrorWithoutCompilationIsFatal(t *testing.T) {
	sink, _ := newSink(t)
	cause := errors.New("exit status 2")

	err := sink.Add(domain.NewMessage(domain.CodeScriptFailed, "script failed").Because(cause))
	require.Error(t, err)

	var fatal *domain.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "app", fatal.Build)
	assert.Equal(t, domain.CodeScriptFailed, fatal.Message.Code)
	assert.ErrorIs(t, err, cause)
	assert.True(t, sink.HasErrors())
	assert.True(t, sink.HasFatal())
}

func TestSink_ReservedCodes(t *testing.T) {
	sink, log := newSink(t)
	var logged string
	log.EXPECT().Info(gomock.Any()).Do(func(msg string) { logged = msg })

	require.NoError(t, sink.Add(domain.NewMessage(domain.CodeReserved, "odd")))
	assert.Equal(t, "[app] K0900 odd (reserved)", logged)
	assert.Empty(t, sink.Messages())
}

func TestSink_UnrecognizedCodes(t *testing.T) {
	sink, log := newSink(t)
	var warned string
	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) { warned = msg })

	require.NoError(t, sink.Add(domain.NewMessage(1234, "odd")))
	assert.Contains(t, warned, domain.CodeUnrecognizedFallback.String())
	assert.Contains(t, warned, "[app]")
	assert.Empty(t, sink.Messages())
}

func TestSink_DrainInSeverityOrder(t *testing.T) {
	sink, log := newSink(t)
	comp := domain.NewCompilation("app", time.Now())

	log.EXPECT().Warn("[app] K0301 wait")
	require.NoError(t, sink.Add(domain.NewMessage(domain.CodeEmitFailed, "emit").In(comp)))
	require.NoError(t, sink.Add(domain.NewMessage(domain.CodeWaitTimeout, "wait")))
	require.NoError(t, sink.Add(domain.NewMessage(domain.CodeBuildCompleted, "done")))

	var order []string
	gomock.InOrder(
		log.EXPECT().Info(gomock.Any()).Do(func(string) { order = append(order, "info") }),
		log.EXPECT().Warn(gomock.Any()).Do(func(string) { order = append(order, "warn") }),
		log.EXPECT().Error(gomock.Any()).Do(func(err error) {
			order = append(order, "error")
			assert.ErrorContains(t, err, "[app] K0630 emit")
		}),
	)

	sink.Drain()

	assert.Equal(t, []string{"info", "warn", "error"}, order)
	assert.Empty(t, sink.Messages())
	assert.False(t, sink.HasErrors())

	// A second drain prints nothing.
	sink.Drain()
}

func TestSink_NilLogger(t *testing.T) {
	sink := diag.NewSink("app", nil)

	assert.NotPanics(t, func() {
		_ = sink.Add(domain.NewMessage(domain.CodeBuildStarted, "x"))
		_ = sink.Add(domain.NewMessage(999, "x"))
		sink.Drain()
	})
	assert.Equal(t, "app", sink.Build())
}
