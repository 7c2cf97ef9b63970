// Package commands implements the CLI commands for the kiln build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
	"go.trai.ch/kiln/internal/core/domain"
)

// CLI represents the command line interface for kiln.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, opts app.RunOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
	Builds(ctx context.Context, opts app.SelectOptions) ([]*domain.Build, error)
	ConfigureLogger(opts app.LogOptions)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "kiln",
		Short:         "Layered build configuration and pipeline runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().Bool("debug", false, "Show debug output")
	rootCmd.PersistentFlags().Bool("json-log", false, "Log as JSON lines")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		jsonLog, _ := cmd.Flags().GetBool("json-log")
		a.ConfigureLogger(app.LogOptions{Debug: debug, JSON: jsonLog})
	}

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newBuildsCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// addSelectFlags adds the flags choosing the mode and the Builds to work on.
func addSelectFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", string(domain.ModeProduction), "Mode layer to apply: development, production, test or none")
	cmd.Flags().StringSliceP("build", "b", nil, "Build to activate, by name or type (repeatable)")
	cmd.Flags().String("type", "", "Type of builds that declare none")
	cmd.Flags().String("target", "", "Target of builds that declare none")
}

func selectOptions(cmd *cobra.Command, args []string) app.SelectOptions {
	mode, _ := cmd.Flags().GetString("mode")
	builds, _ := cmd.Flags().GetStringSlice("build")
	buildType, _ := cmd.Flags().GetString("type")
	target, _ := cmd.Flags().GetString("target")

	var selected []string
	selected = append(selected, builds...)
	selected = append(selected, args...)

	return app.SelectOptions{
		Mode:   mode,
		Builds: selected,
		Type:   buildType,
		Target: target,
	}
}
