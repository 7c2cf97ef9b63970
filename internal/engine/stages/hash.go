package stages

import (
	"context"
	"path"
	"strings"

	"go.trai.ch/kiln/internal/engine/pipeline"
)

// Hash renames every asset to carry a prefix of its content hash when the hash option
// is enabled: "js/main.js" becomes "js/main.<hash>.js".
func Hash() pipeline.Registration {
	return pipeline.Registration{
		Name:  "hash",
		Point: pipeline.PointCompilation,
		Stage: pipeline.StageOptimizeHash,
		Tag:   Tag,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			opt, ok := p.Build.Options.Get("hash")
			if !ok {
				return nil
			}
			length := opt.Int("length", 8)

			for _, asset := range p.Compilation.Assets() {
				if asset.Hash == "" {
					continue
				}
				renamed := *asset
				renamed.Name = hashedName(asset.Name, asset.Hash, length)
				p.Compilation.DeleteAsset(asset.Name)
				p.Compilation.EmitAsset(&renamed)
			}
			return nil
		}),
	}
}

func hashedName(name, hash string, length int) string {
	if length > 0 && length < len(hash) {
		hash = hash[:length]
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + hash + ext
}
