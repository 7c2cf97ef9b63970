package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [builds...]",
		Short: "Clean the content cache and build output",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dist, _ := cmd.Flags().GetBool("dist")

			return c.app.Clean(cmd.Context(), app.CleanOptions{
				SelectOptions: selectOptions(cmd, args),
				Dist:          dist,
			})
		},
	}

	addSelectFlags(cmd)
	cmd.Flags().BoolP("dist", "d", false, "Also empty the dist directory of the selected builds")

	return cmd
}
