package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/config"
	"github.com/tailored-agentic-units/bund/observability"
	"github.com/tailored-agentic-units/bund/persist"
	"github.com/tailored-agentic-units/bund/scheduler"
)

var (
	configFile string
	envFiles   []string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "bund",
	Short: "Inspect and drive a bundle-based application state.",
	Long: `bund runs a demo application made of three bundles: counter, todos
and remote. State is restored from the configured snapshot store before each
command and saved after it.`,
}

// Execute runs the root command and exits through atexit so registered
// flushes run.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file (.json, .yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, ".env files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// app is the state shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	observer observability.Observer
	loop     *scheduler.Loop
	root     *bundle.Combined
	snap     *persist.Snapshotter
	idleWait time.Duration

	flushOnce sync.Once
	flushErr  error
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		d := config.Default()
		cfg = &d
	}

	if err := cfg.LoadEnv(envFiles...); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newApp loads configuration, builds the demo root on a fresh loop and
// restores any saved snapshot. The snapshot flush is registered with atexit.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	obs, err := resolveObserver(cfg.Observer, logger)
	if err != nil {
		return nil, err
	}

	mechanism, err := cfg.Mechanism()
	if err != nil {
		return nil, err
	}

	idleWait, err := time.ParseDuration(cfg.Scheduler.IdleWait)
	if err != nil {
		return nil, fmt.Errorf("invalid idle_wait %q: %w", cfg.Scheduler.IdleWait, err)
	}

	loop := scheduler.New(scheduler.WithObserver(obs), scheduler.WithContext(ctx))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		observer: obs,
		loop:     loop,
		root:     newDemoRoot(loop, mechanism, obs),
		idleWait: idleWait,
	}

	a.snap, err = persist.NewSnapshotterFromConfig(ctx, &cfg.Persist, persist.WithObserver(obs))
	if err != nil {
		return nil, err
	}
	if a.snap != nil {
		keys, err := a.snap.Restore(ctx, a.root)
		if err != nil {
			return nil, err
		}
		logger.Debug("snapshot restored", "store", cfg.Persist.Store, "bundles", keys)
		atexit.Register(func() {
			if err := a.flush(context.Background()); err != nil {
				logger.Error("snapshot flush failed", "error", err)
			}
		})
	}

	return a, nil
}

// resolveObserver builds the observer named by a comma-separated list.
// "slog" logs through logger; other names come from the registry.
func resolveObserver(names string, logger *slog.Logger) (observability.Observer, error) {
	var resolved []observability.Observer
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case "slog":
			resolved = append(resolved, observability.NewSlogObserver(logger))
		default:
			obs, err := observability.GetObserver(name)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, obs)
		}
	}
	return observability.Combine(resolved...), nil
}

// flush saves the root once and releases the store. Later calls return the
// first result.
func (a *app) flush(ctx context.Context) error {
	a.flushOnce.Do(func() {
		if a.snap == nil {
			return
		}
		a.flushErr = a.snap.Save(ctx, a.root)
		if c, ok := a.snap.Store().(io.Closer); ok {
			if err := c.Close(); err != nil && a.flushErr == nil {
				a.flushErr = err
			}
		}
	})
	return a.flushErr
}

// settle drains the loop, bounded by the configured idle wait.
func (a *app) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.idleWait)
	defer cancel()
	return a.loop.RunUntilIdle(ctx)
}

// parseArgs turns command-line words into action arguments. Words that
// parse as JSON keep their JSON value; the rest stay strings.
func parseArgs(words []string) []any {
	args := make([]any, len(words))
	for i, w := range words {
		var v any
		if err := json.Unmarshal([]byte(w), &v); err == nil {
			args[i] = v
			continue
		}
		args[i] = w
	}
	return args
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
