// Package output provides termenv and lipgloss outputs with consistent color
// profile handling, and the listings the CLI prints.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/ui/style"
)

// ColorProfile returns the color profile to use.
// It checks if NO_COLOR is set, returning Ascii if so.
// Otherwise, it detects the terminal's capabilities automatically.
func ColorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// New creates a new termenv.Output with the specific profile logic.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}

	opts = append(opts,
		termenv.WithProfile(ColorProfile()),
		termenv.WithTTY(true),
	)

	return termenv.NewOutput(w, opts...)
}

// NewRenderer creates a lipgloss renderer for w using the same profile as New.
func NewRenderer(w io.Writer) *lipgloss.Renderer {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(ColorProfile())
	return r
}

// Builds writes a table of builds to w: one row per Build with its name, type,
// mode, target and whether it is part of the run.
func Builds(w io.Writer, builds []*domain.Build) error {
	r := NewRenderer(w)
	header, cell, muted := style.Table(r)

	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		rows = append(rows, []string{b.Name, string(b.Type), string(b.Mode), string(b.Target), state(b)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(style.Slate)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case row < len(builds) && !builds[row].Active:
				return muted
			default:
				return cell
			}
		}).
		Headers("NAME", "TYPE", "MODE", "TARGET", "STATE").
		Rows(rows...)

	_, err := io.WriteString(w, t.String()+"\n")
	return err
}

func state(b *domain.Build) string {
	switch {
	case b.Auto:
		return style.Plus + " auto"
	case b.Active:
		return style.Dot + " active"
	default:
		return style.Circle + " inactive"
	}
}
