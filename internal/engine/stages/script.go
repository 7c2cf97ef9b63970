package stages

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/pipeline"
)

const defaultShell = "/bin/sh"

// Script runs the Build's script command after compiling. It applies to script Builds
// and to any Build with the script option enabled. A single command string runs through
// the option's shell. A failing command is a compilation error unless the option sets
// failOnError to false, in which case it is only a warning. Command output is also
// written to the invocation span.
func Script(executor ports.Executor, out io.Writer) pipeline.Registration {
	return pipeline.Registration{
		Name:  "script",
		Point: pipeline.PointAfterCompile,
		Tag:   Tag,
		Handler: pipeline.Sync(func(ctx context.Context, p *pipeline.Payload) error {
			opt, enabled := p.Build.Options.Get("script")
			if executor == nil || (!enabled && p.Build.Type != domain.TypeScript) {
				return nil
			}

			args := scriptArgs(p.Build, opt)
			if len(args) == 0 {
				return nil
			}

			cmd := ports.Command{
				Args:        args,
				WorkingDir:  p.Build.Paths.Ctx,
				Environment: scriptEnv(p.Build),
			}
			w := scriptOutput(out, p.Span)
			err := executor.Execute(ctx, cmd, w, w)
			if err == nil {
				return nil
			}

			if !opt.Bool("failOnError", true) {
				return p.Report(domain.NewMessage(domain.CodeStageNonFatal, "script failed, continuing").Because(err))
			}
			return p.Report(domain.NewMessage(domain.CodeScriptFailed, "script failed").In(p.Compilation).Because(err))
		}),
	}
}

func scriptOutput(out io.Writer, span ports.Span) io.Writer {
	switch {
	case span == nil:
		return out
	case out == nil:
		return span
	default:
		return io.MultiWriter(out, span)
	}
}

// scriptArgs returns the argv of the Build's script. The Build's script list wins over
// the option's command field.
func scriptArgs(b *domain.Build, opt domain.Option) []string {
	args := b.Script
	if len(args) == 0 {
		if command := opt.String("command", ""); command != "" {
			args = []string{command}
		}
	}
	if len(args) == 1 {
		return []string{opt.String("shell", defaultShell), "-c", args[0]}
	}
	return args
}

func scriptEnv(b *domain.Build) map[string]string {
	return map[string]string{
		"KILN_BUILD":  b.Name,
		"KILN_TYPE":   string(b.Type),
		"KILN_MODE":   string(b.Mode),
		"KILN_TARGET": string(b.Target),
		"KILN_SRC":    b.Paths.Src,
		"KILN_DIST":   b.Paths.Dist,
	}
}
