package stages

import (
	"context"
	"fmt"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/pipeline"
)

// Report attaches a summary of the asset set to the compilation. With the report option's
// assets field set, the summary also names every asset.
func Report() pipeline.Registration {
	return pipeline.Registration{
		Name:  "report",
		Point: pipeline.PointCompilation,
		Stage: pipeline.StageReport,
		Tag:   Tag,
		Handler: pipeline.Sync(func(_ context.Context, p *pipeline.Payload) error {
			assets := p.Compilation.Assets()

			var size int
			names := make([]string, 0, len(assets))
			for _, a := range assets {
				size += a.Size()
				names = append(names, a.Name)
			}

			text := fmt.Sprintf("%d assets, %d bytes, %d warnings, %d errors",
				len(assets), size, len(p.Compilation.Warnings()), len(p.Compilation.Errors()))
			if opt, ok := p.Build.Options.Get("report"); ok && opt.Bool("assets", true) && len(names) > 0 {
				text += ": " + strings.Join(names, ", ")
			}
			return p.Report(domain.NewMessage(domain.CodeCompilationReport, text).In(p.Compilation))
		}),
	}
}
