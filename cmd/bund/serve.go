package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/bund/bridge"
	"github.com/tailored-agentic-units/bund/devtools"
)

var (
	serveAddr    string
	publishRedis string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the devtools inspector until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}

		if publishRedis != "" {
			client := redis.NewClient(&redis.Options{Addr: publishRedis})
			defer client.Close()
			disconnect := bridge.Connect(a.root, bridge.NewRedisSink(client, ""),
				bridge.WithContext(ctx),
				bridge.WithObserver(a.observer),
			)
			defer disconnect()
		}

		addr := a.cfg.DevTools.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		inspector := devtools.New(a.root,
			devtools.WithSignals(a.cfg.DevTools.Signals),
			devtools.WithObserver(a.observer),
			devtools.WithLoop(a.loop),
		)
		defer inspector.Close()

		loopErr := make(chan error, 1)
		go func() { loopErr <- a.loop.Run(ctx) }()

		ready := make(chan string, 1)
		go func() {
			if bound, ok := <-ready; ok {
				a.logger.Info("devtools listening", "addr", bound)
			}
		}()

		err = inspector.Serve(ctx, addr, ready)
		close(ready)
		if err != nil {
			return err
		}

		if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return a.flush(context.Background())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides devtools.addr)")
	serveCmd.Flags().StringVar(&publishRedis, "publish-redis", "", "publish action signals to this Redis address")
	rootCmd.AddCommand(serveCmd)
}
