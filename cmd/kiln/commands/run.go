package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [builds...]",
		Short: "Run the selected builds, or every build",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noCache, _ := cmd.Flags().GetBool("no-cache")
			parallel, _ := cmd.Flags().GetInt("parallel")
			statsFile, _ := cmd.Flags().GetString("stats")
			watch, _ := cmd.Flags().GetBool("watch")

			return c.app.Run(cmd.Context(), app.RunOptions{
				SelectOptions: selectOptions(cmd, args),
				NoCache:       noCache,
				Parallelism:   parallel,
				StatsFile:     statsFile,
				Watch:         watch,
			})
		},
	}
	addSelectFlags(cmd)
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the content cache and read every source")
	cmd.Flags().IntP("parallel", "p", 0, "Maximum number of builds running at once (0 runs all)")
	cmd.Flags().String("stats", "", "Write stage statistics to this file")
	cmd.Flags().BoolP("watch", "w", false, "Rebuild affected builds when sources change")
	return cmd
}
