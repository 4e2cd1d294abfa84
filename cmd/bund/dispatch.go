package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/bund/bridge"
)

var trace bool

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <bundle> <action> [args...]",
	Short: "Dispatch an action, wait for async work to settle and print the bundle state.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}

		if trace {
			store := bridge.NewStore(bridge.Reducers(a.root))
			unsub := store.Subscribe(func(ev bridge.Event) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", ev.Type)
			})
			defer unsub()
			disconnect := bridge.Connect(a.root, store,
				bridge.WithContext(cmd.Context()),
				bridge.WithObserver(a.observer),
			)
			defer disconnect()
		}

		key, action := args[0], args[1]
		if err := a.root.Dispatch(key, action, parseArgs(args[2:])...); err != nil {
			return err
		}
		if err := a.settle(cmd.Context()); err != nil {
			return fmt.Errorf("waiting for async actions: %w", err)
		}

		b, err := a.root.Bundle(key)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), b.State()); err != nil {
			return err
		}
		return a.flush(cmd.Context())
	},
}

func init() {
	dispatchCmd.Flags().BoolVar(&trace, "trace", false, "print every action signal to stderr")
	rootCmd.AddCommand(dispatchCmd)
}
