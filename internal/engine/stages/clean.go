package stages

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// Clean empties the dist directory before compiling when the clean option is enabled.
// Entries whose name matches a pattern of the option's keep list survive.
func Clean(root string) pipeline.Registration {
	return pipeline.Registration{
		Name:  "clean",
		Point: pipeline.PointBeforeCompile,
		Tag:   Tag,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			opt, ok := p.Build.Options.Get("clean")
			if !ok {
				return nil
			}
			return cleanDist(root, p.Build.Paths.Dist, opt.Strings("keep"))
		}),
	}
}

func cleanDist(root, dist string, keep []string) error {
	if err := CheckInside(root, dist); err != nil {
		return err
	}

	entries, err := os.ReadDir(dist)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "dist", dist)
	}

	for _, entry := range entries {
		if slices.ContainsFunc(keep, func(pattern string) bool {
			matched, _ := filepath.Match(pattern, entry.Name())
			return matched
		}) {
			continue
		}
		path := filepath.Join(dist, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "file", path)
		}
	}
	return nil
}

// CheckInside rejects a dist directory that is the root itself or lies outside it.
func CheckInside(root, dist string) error {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "root", root)
	}
	distAbs, err := filepath.Abs(dist)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "dist", dist)
	}

	rel, err := filepath.Rel(rootAbs, distAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return zerr.With(domain.ErrOutputPathOutsideRoot, "dist", dist)
	}
	return nil
}
