package main

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset every bundle to its initial state and save the result.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}

		a.root.Reset()
		if err := printJSON(cmd.OutOrStdout(), a.root.State()); err != nil {
			return err
		}
		return a.flush(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
