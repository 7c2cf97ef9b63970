package app_test

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/logger"
	"go.trai.ch/kiln/internal/adapters/schema"
	"go.trai.ch/kiln/internal/adapters/stats"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

const twoBuilds = `
builds:
  - name: app
    type: app
    target: node
  - name: lib
    type: module
    target: web
    paths:
      src: lib
development:
  builds:
    - name: app
      paths:
        dist: out
`

type testProject struct {
	root string
	logs *bytes.Buffer
	app  *app.App
}

func newTestProject(t *testing.T, cfg string) *testProject {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, domain.ConfigFileName), []byte(cfg), domain.FilePerm))

	logs := new(bytes.Buffer)
	log := logger.New()
	log.SetOutput(logs)

	walker := fs.NewWalker()
	a := app.New(
		config.NewLoader(log),
		schema.NewDefaults(),
		schema.NewValidator(),
		scheduler.NewScheduler(telemetry.NoOpTracer{}, log),
		nil,
		walker,
		cas.NewOpener(fs.NewSnapshotter(walker)),
		log,
	).WithDir(root).WithOutput(new(bytes.Buffer))

	return &testProject{root: root, logs: logs, app: a}
}

func (p *testProject) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(p.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}

func (p *testProject) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (p *testProject) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(p.root, filepath.FromSlash(rel)))
	return err == nil
}

func TestApp_Run_EmitsEveryBuild(t *testing.T) {
	p := newTestProject(t, twoBuilds)
	p.write(t, "src/main.js", "console.log(1)")
	p.write(t, "lib/index.js", "export {}")

	err := p.app.Run(context.Background(), app.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "console.log(1)", p.read(t, "dist/app/main.js"))
	assert.Equal(t, "export {}", p.read(t, "dist/lib/index.js"))
	assert.Contains(t, p.logs.String(), "2 builds completed")
	assert.True(t, p.exists(".kiln/cache"))
}

func TestApp_Run_SelectsBuilds(t *testing.T) {
	p := newTestProject(t, twoBuilds)
	p.write(t, "src/main.js", "console.log(1)")
	p.write(t, "lib/index.js", "export {}")

	err := p.app.Run(context.Background(), app.RunOptions{
		SelectOptions: app.SelectOptions{Builds: []string{"module"}},
	})
	require.NoError(t, err)

	assert.True(t, p.exists("dist/lib/index.js"))
	assert.False(t, p.exists("dist/app"))
}

func TestApp_Run_AppliesModeLayer(t *testing.T) {
	p := newTestProject(t, twoBuilds)
	p.write(t, "src/main.js", "console.log(1)")

	err := p.app.Run(context.Background(), app.RunOptions{
		SelectOptions: app.SelectOptions{Mode: "development", Builds: []string{"app"}},
	})
	require.NoError(t, err)

	assert.True(t, p.exists("out/main.js"))
	assert.False(t, p.exists("dist/app"))
}

func TestApp_Run_NoCache(t *testing.T) {
	p := newTestProject(t, twoBuilds)
	p.write(t, "src/main.js", "console.log(1)")

	err := p.app.Run(context.Background(), app.RunOptions{NoCache: true})
	require.NoError(t, err)

	assert.True(t, p.exists("dist/app/main.js"))
	assert.False(t, p.exists(".kiln/cache"))
}

func TestApp_Run_UnresolvedBuildFailsTheRun(t *testing.T) {
	p := newTestProject(t, `
builds:
  - name: app
    type: app
    target: node
  - name: broken
    type: bogus
`)
	p.write(t, "src/main.js", "console.log(1)")

	err := p.app.Run(context.Background(), app.RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBuildExecutionFailed))
	assert.ErrorContains(t, err, domain.ErrBuildResolutionFailed.Error())

	assert.True(t, p.exists("dist/app/main.js"), "resolved builds still run")
}

func TestApp_Run_UnknownBuild(t *testing.T) {
	p := newTestProject(t, twoBuilds)

	err := p.app.Run(context.Background(), app.RunOptions{
		SelectOptions: app.SelectOptions{Builds: []string{"website"}},
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrBuildNotFound.Error())
	assert.False(t, errors.Is(err, domain.ErrBuildExecutionFailed))
}

func TestApp_Run_LoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	log := mocks.NewMockLogger(ctrl)
	loader.EXPECT().Load("/work").Return(nil, domain.ErrConfigNotFound)

	a := app.New(loader, schema.NewDefaults(), schema.NewValidator(),
		scheduler.NewScheduler(telemetry.NoOpTracer{}, log), nil, nil, nil, log).WithDir("/work")

	err := a.Run(context.Background(), app.RunOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load configuration")
	assert.ErrorContains(t, err, domain.ErrConfigNotFound.Error())
}

func TestApp_Run_WritesStats(t *testing.T) {
	p := newTestProject(t, twoBuilds)
	p.write(t, "src/main.js", "console.log(1)")
	p.app.WithStats(stats.NewCollector())
	statsFile := filepath.Join(t.TempDir(), "stats.prom")

	err := p.app.Run(context.Background(), app.RunOptions{StatsFile: statsFile})
	require.NoError(t, err)

	data, err := os.ReadFile(statsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kiln_stage_invocations_total")
	assert.Contains(t, string(data), "kiln_cache_lookups_total")
	assert.Contains(t, p.logs.String(), "statistics for 2 builds written")
}

func TestApp_Builds(t *testing.T) {
	p := newTestProject(t, twoBuilds)

	builds, err := p.app.Builds(context.Background(), app.SelectOptions{Builds: []string{"app"}})
	require.NoError(t, err)
	require.Len(t, builds, 2)

	assert.Equal(t, "app", builds[0].Name)
	assert.True(t, builds[0].Active)
	assert.Equal(t, domain.ModeProduction, builds[0].Mode)
	assert.Equal(t, "lib", builds[1].Name)
	assert.False(t, builds[1].Active)
}

func TestApp_Clean(t *testing.T) {
	p := newTestProject(t, twoBuilds)
	p.write(t, ".kiln/cache/app/blob", "x")
	p.write(t, "dist/app/main.js", "x")

	require.NoError(t, p.app.Clean(context.Background(), app.CleanOptions{}))
	assert.False(t, p.exists(".kiln/cache"))
	assert.True(t, p.exists("dist/app/main.js"))
	assert.Contains(t, p.logs.String(), "removed content cache")

	require.NoError(t, p.app.Clean(context.Background(), app.CleanOptions{Dist: true}))
	assert.False(t, p.exists("dist/app"))
}

func TestApp_Clean_RefusesDistOutsideRoot(t *testing.T) {
	p := newTestProject(t, `
builds:
  - name: app
    type: app
    target: node
    paths:
      dist: ..
`)

	err := p.app.Clean(context.Background(), app.CleanOptions{Dist: true})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrOutputPathOutsideRoot.Error())
	assert.True(t, p.exists(domain.ConfigFileName))
}

type fakeWatcher struct {
	events chan ports.WatchEvent
	roots  []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan ports.WatchEvent)}
}

func (w *fakeWatcher) Start(_ context.Context, roots ...string) error {
	w.roots = roots
	return nil
}

func (w *fakeWatcher) Stop() error {
	close(w.events)
	return nil
}

func (w *fakeWatcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func TestApp_Run_WatchRebuildsAffectedBuilds(t *testing.T) {
	p := newTestProject(t, twoBuilds)
	p.write(t, "src/main.js", "v1")
	p.write(t, "lib/index.js", "export {}")

	synctest.Test(t, func(t *testing.T) {
		w := newFakeWatcher()
		p.app.WithWatcher(func() (ports.Watcher, error) { return w, nil })

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- p.app.Run(ctx, app.RunOptions{Watch: true})
		}()
		synctest.Wait()

		assert.Equal(t, "v1", p.read(t, "dist/app/main.js"))
		assert.ElementsMatch(t, []string{filepath.Join(p.root, "src"), filepath.Join(p.root, "lib")}, w.roots)

		require.NoError(t, os.Remove(filepath.Join(p.root, "dist", "lib", "index.js")))
		p.write(t, "src/main.js", "v2")
		w.events <- ports.WatchEvent{Path: filepath.Join(p.root, "src", "main.js"), Operation: ports.OpWrite}

		time.Sleep(time.Second)
		synctest.Wait()

		assert.Equal(t, "v2", p.read(t, "dist/app/main.js"))
		assert.False(t, p.exists("dist/lib/index.js"), "unaffected builds are not rebuilt")

		cancel()
		require.NoError(t, <-errCh)
	})
}

func TestApp_Run_WatchUnavailable(t *testing.T) {
	p := newTestProject(t, twoBuilds)

	err := p.app.Run(context.Background(), app.RunOptions{Watch: true})
	require.ErrorIs(t, err, domain.ErrWatchUnavailable)
}
