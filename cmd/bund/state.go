package main

import (
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state [bundle]",
	Short: "Print the combined state, or one bundle's state.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.flush(cmd.Context())

		if len(args) == 0 {
			return printJSON(cmd.OutOrStdout(), a.root.State())
		}
		b, err := a.root.Bundle(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), b.State())
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
