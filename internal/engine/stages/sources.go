package stages

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// sourceIdentifier keys the cached read of a source file.
const sourceIdentifier = "source"

// Walker yields the files below a directory.
type Walker interface {
	WalkFiles(root string, ignores []string) iter.Seq[string]
}

// Sources reads the files of the Build's src directory into the asset set. With a cache,
// unchanged files are taken from the content cache instead of being read again.
// A file that cannot be read is a compilation error; the other files are still read.
func Sources(walker Walker, caches CacheOpener, cacheDir string) pipeline.Registration {
	return pipeline.Registration{
		Name:  "sources",
		Point: pipeline.PointCompilation,
		Stage: pipeline.StageAdditional,
		Tag:   Tag,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			src := p.Build.Paths.Src
			if walker == nil || src == "" || p.Build.Type == domain.TypeScript {
				return nil
			}
			if _, err := os.Stat(src); err != nil {
				return nil
			}

			cache := openCache(p, caches, cacheDir)

			var hits, misses int
			for path := range walker.WalkFiles(src, nil) {
				rel, err := filepath.Rel(src, path)
				if err != nil {
					rel = filepath.Base(path)
				}
				name := filepath.ToSlash(rel)

				artifact, hit, err := loadSource(cache, path)
				if err != nil {
					msg := domain.NewMessage(domain.CodeAssetFailed, "could not read "+name).In(p.Compilation).Because(err)
					if rerr := p.Report(msg); rerr != nil {
						return rerr
					}
					continue
				}
				if hit {
					hits++
				} else {
					misses++
				}

				p.Compilation.EmitAsset(&domain.Asset{
					Name:         name,
					SourcePath:   path,
					Content:      artifact.Content,
					Hash:         artifact.Hash,
					Dependencies: artifact.Dependencies,
				})
			}

			if cache == nil {
				return nil
			}
			return reportCache(p, cache, hits, misses)
		}),
	}
}

func openCache(p *pipeline.Payload, caches CacheOpener, dir string) *cas.Cache {
	if caches == nil || dir == "" {
		return nil
	}
	cache, err := caches.Open(dir, p.Build, "sources", p.Messages)
	if err != nil {
		_ = p.Report(domain.NewMessage(domain.CodeCachePersistFailed, "could not open source cache, reading every file").Because(err))
		return nil
	}
	return cache
}

func loadSource(cache *cas.Cache, path string) (*domain.Artifact, bool, error) {
	if cache == nil {
		artifact, err := readSource(path)
		return artifact, false, err
	}
	return cache.CheckSnapshot(path, sourceIdentifier, func() (*domain.Artifact, error) {
		return readSource(path)
	})
}

func readSource(path string) (*domain.Artifact, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from walking the Build's src directory
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrSourceReadFailed.Error()), "path", path)
	}
	return &domain.Artifact{Content: data, Hash: contentHash(data)}, nil
}

func contentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func reportCache(p *pipeline.Payload, cache *cas.Cache, hits, misses int) error {
	if err := cache.Save(); err != nil {
		msg := domain.NewMessage(domain.CodeCachePersistFailed, "could not save source cache").Because(err)
		if rerr := p.Report(msg); rerr != nil {
			return rerr
		}
	}
	if hits > 0 {
		if err := p.Report(domain.NewMessage(domain.CodeCacheHit,
			fmt.Sprintf("%d of %d sources unchanged", hits, hits+misses))); err != nil {
			return err
		}
	}
	if misses > 0 {
		return p.Report(domain.NewMessage(domain.CodeCacheMiss,
			fmt.Sprintf("%d of %d sources read", misses, hits+misses)))
	}
	return nil
}
