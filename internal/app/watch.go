package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/scheduler"
)

// watch rebuilds the Builds affected by source changes until ctx is done.
// A failed rebuild is reported and watching goes on.
func (a *App) watch(ctx context.Context, root string, active []*domain.Build, opts RunOptions) error {
	if a.watchers == nil {
		return domain.ErrWatchUnavailable
	}
	w, err := a.watchers()
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Stop()
	}()

	dirs := sourceDirs(active)
	if err := w.Start(ctx, dirs...); err != nil {
		return err
	}

	batches := make(chan []string)
	debouncer := watcher.NewDebouncer(debounceWindow(active), func(paths []string) {
		select {
		case batches <- paths:
		case <-ctx.Done():
		}
	})
	go func() {
		for event := range w.Events() {
			debouncer.Add(event.Path)
		}
	}()

	done := a.completedBuilds(active)
	a.logger.Info(fmt.Sprintf("watching %d source directories for changes", len(dirs)))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stopped watching")
			return nil
		case paths := <-batches:
			affected := affectedBuilds(active, paths)
			if len(affected) == 0 {
				continue
			}
			a.logger.Info(fmt.Sprintf("%d files changed", len(paths)))

			var completed []*domain.Build
			for _, b := range active {
				if done[b.Name] && !slices.Contains(affected, b) {
					completed = append(completed, b)
				}
			}
			_ = a.execute(ctx, root, affected, completed, opts)
			for name, ok := range a.completedBuilds(affected) {
				done[name] = ok
			}
		}
	}
}

// completedBuilds reports for each of builds whether it completed in the latest run.
func (a *App) completedBuilds(builds []*domain.Build) map[string]bool {
	done := make(map[string]bool, len(builds))
	for _, b := range builds {
		status, _ := a.scheduler.Status(b.Name)
		done[b.Name] = status == scheduler.StatusCompleted
	}
	return done
}

// sourceDirs returns the existing src directories of builds, without duplicates.
func sourceDirs(builds []*domain.Build) []string {
	var dirs []string
	for _, b := range builds {
		src := b.Paths.Src
		if src == "" || slices.Contains(dirs, src) {
			continue
		}
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, src)
	}
	return dirs
}

// debounceWindow returns the longest debounce any Build asks for in its watch option.
func debounceWindow(builds []*domain.Build) time.Duration {
	window := watcher.DefaultDebounceWindow
	for _, b := range builds {
		opt, ok := b.Options.Get("watch")
		if !ok {
			continue
		}
		ms := time.Duration(opt.Int("debounce", 0)) * time.Millisecond
		window = max(window, ms)
	}
	return window
}

// affectedBuilds returns the Builds whose src contains one of paths, followed by
// the Builds depending on those, in the order of builds.
func affectedBuilds(builds []*domain.Build, paths []string) []*domain.Build {
	changed := make(map[string]bool)
	for _, b := range builds {
		if b.Paths.Src == "" {
			continue
		}
		for _, p := range paths {
			if within(b.Paths.Src, p) {
				changed[b.Name] = true
				break
			}
		}
	}

	var out []*domain.Build
	for _, b := range builds {
		if changed[b.Name] {
			out = append(out, b)
			continue
		}
		for name := range changed {
			if b.DependsOn(name) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
