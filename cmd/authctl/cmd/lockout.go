package cmd

import (
	"fmt"

	"github.com/pilab-dev/shadow-auth/config"
	"github.com/spf13/cobra"
)

func newParseLockoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-lockout <expr>",
		Short: "Show how a LOCKOUT_TIME value is interpreted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := config.ParseLockoutDuration(args[0])
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%d ms)\n", d, d.Milliseconds())
			return err
		},
	}
}
