package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/iorepl/internal/config"
	"github.com/timvw/iorepl/internal/layout"
	"github.com/timvw/iorepl/internal/mux"
	telem "github.com/timvw/iorepl/internal/otel"
	"github.com/timvw/iorepl/internal/preflight"
)

// Version is set at build time with -ldflags "-X github.com/timvw/iorepl/cmd.Version=...".
var Version = "dev"

var (
	// Replaced in tests.
	preflightEnv preflight.Env = preflight.OSEnv{}
	newRunner                  = func() mux.Runner { return mux.NewExecRunner() }
)

var rootCmd = &cobra.Command{
	Use:   "iorepl <run_id>",
	Short: "Watch three process logs and write to two of the processes from one tmux screen",
	Long: `iorepl builds a six-pane tmux session and attaches to it:

  0 | 1 | 2    tail -f /tmp/logfiles/example{1,2,3}<run_id>.log
  3 | 4 | 5    quit | netcat localhost 123 | netcat localhost 124

Pane 3 has "tmux kill-session" typed in; press Enter there to end the session.
Detach with C-b d and re-attach with "tmux attach-session -t iorepl_tmux".

tmux control commands are re-sent until tmux reports success, so the layout
also comes out right over a slow connection.`,
	// The run id goes through preflight exactly as typed, -h included.
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceErrors:      true,
	SilenceUsage:       true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLayout(cmd, args)
	},
}

func init() {
	// "help" and "completion" are not run ids either: they go through
	// preflight like any other word and fail the integer check.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:                "help",
		Hidden:             true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.Root(), append([]string{cmd.Name()}, args...))
		},
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var perr *preflight.Error
		if errors.As(err, &perr) {
			fmt.Fprintln(os.Stderr, perr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runLayout(cmd *cobra.Command, args []string) error {
	l := config.DefaultLayout()

	res, err := preflight.Check(cmd.Root().Name(), args, l, preflightEnv)
	if err != nil {
		return err
	}
	if res.Help {
		return cmd.Help()
	}

	// Load configuration: defaults -> config file -> env vars.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(cfg.Level)
	if cfg.ConfigFile != "" {
		logger.Info("config loaded", "path", cfg.ConfigFile)
	}

	ctx := cmd.Context()

	telem.Version = Version
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		logger.Warn("otel init failed", "err", err)
	}
	if tel != nil {
		defer tel.Shutdown(context.WithoutCancel(ctx))
	}

	m := mux.NewTmux(l.Multiplexer)
	steps := layout.Plan(l, m, res.LogFiles)

	driver := &layout.Driver{
		Runner:        newRunner(),
		RetryInterval: l.RetryInterval,
		MaxAttempts:   cfg.MaxAttempts,
		RetryTimeout:  cfg.RetryTimeoutDuration,
		Logger:        logger,
	}
	if tel != nil {
		driver.Tracer = tel.Tracer
		driver.Metrics = tel.Metrics
		driver.BeforeStep = func(ctx context.Context, step layout.Step) {
			if step.Name != "attach" {
				return
			}
			if err := tel.Flush(ctx); err != nil {
				logger.Warn("otel flush failed", "err", err)
			}
		}
	}

	logger.Info("building layout", "session", l.Session, "run_id", res.RunID, "steps", len(steps))
	return driver.Run(ctx, steps)
}

// newLogger returns a text logger on stderr at level.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getMultiplexer returns the multiplexer of the fixed layout.
func getMultiplexer() (mux.Multiplexer, error) {
	return mux.Detect(config.DefaultLayout().Multiplexer)
}
