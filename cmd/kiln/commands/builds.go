package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/ui/output"
)

func (c *CLI) newBuildsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builds [builds...]",
		Short: "List the resolved builds",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			builds, err := c.app.Builds(cmd.Context(), selectOptions(cmd, args))
			if len(builds) > 0 {
				if werr := output.Builds(cmd.OutOrStdout(), builds); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	addSelectFlags(cmd)
	return cmd
}
