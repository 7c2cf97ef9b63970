package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// Emit writes the asset set to the dist directory. Nothing is written when the
// compilation already holds errors.
func Emit() pipeline.Registration {
	return pipeline.Registration{
		Name:  "emit",
		Point: pipeline.PointEmit,
		Tag:   Tag,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			if p.Compilation.HasErrors() {
				return nil
			}
			assets := p.Compilation.Assets()
			if len(assets) == 0 {
				return nil
			}

			dist := p.Build.Paths.Dist
			var written, size int
			for _, a := range assets {
				if err := writeAsset(dist, a); err != nil {
					msg := domain.NewMessage(domain.CodeEmitFailed, "could not emit "+a.Name).In(p.Compilation).Because(err)
					if rerr := p.Report(msg); rerr != nil {
						return rerr
					}
					continue
				}
				written++
				size += a.Size()
			}

			text := fmt.Sprintf("emitted %d assets (%d bytes) to %s", written, size, dist)
			return p.Report(domain.NewMessage(domain.CodeAssetsEmitted, text).In(p.Compilation))
		}),
	}
}

func writeAsset(dist string, a *domain.Asset) error {
	path := filepath.Join(dist, filepath.FromSlash(a.Name))
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrEmitFailed.Error()), "path", path)
	}
	//nolint:gosec // Asset names are relative to the Build's src directory
	if err := os.WriteFile(path, a.Content, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrEmitFailed.Error()), "path", path)
	}
	return nil
}
