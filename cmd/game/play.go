package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tatianab/dungeon-floor/internal/app"
	"github.com/tatianab/dungeon-floor/internal/tui"
)

// defaultLogFile keeps logs off the terminal while the TUI owns it.
const defaultLogFile = "dungeon.log"

func newPlayCmd(g *globals) *cobra.Command {
	var (
		sessionID   string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start a new game or resume a saved one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}

			output := cfg.Log.Output
			if output == "" || output == "stdout" || output == "stderr" {
				output = defaultLogFile
			}
			log, err := newLogger(cfg, output)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Metrics.Addr != "" {
				app.ServeMetrics(ctx, cfg.Metrics.Addr, log)
			}
			return tui.Run(ctx, a.Master, tui.Options{
				SessionID:   sessionID,
				EventLength: cfg.Game.EventLength,
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume the session with this id")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}
