package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/centinela-io/centinela/fetch"
	"github.com/centinela-io/centinela/monitor"
	"github.com/centinela-io/centinela/store"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor every active page in the store",
		Long: `Run processes all active monitored pages through the scan pipeline.
With monitor.interval configured it keeps looping until interrupted;
--once forces a single pass regardless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			fetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxContentSize)
			mon := monitor.New(st, fetcher, monitor.Options{
				Workers: cfg.Monitor.Workers,
				Logger:  slog.Default(),
			})

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			interval := cfg.Monitor.Interval
			if once || interval <= 0 {
				return runOnce(ctx, mon)
			}

			slog.Info("monitor loop started", "interval", interval)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := runOnce(ctx, mon); err != nil {
					slog.Error("monitoring run failed", "error", err)
				}
				select {
				case <-ctx.Done():
					slog.Info("monitor loop stopped")
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass even when an interval is configured")

	return cmd
}

func runOnce(ctx context.Context, mon *monitor.Monitor) error {
	res, err := mon.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("monitoring run finished",
		"status", res.Status,
		"pages", res.Pages,
		"successes", res.Successes,
		"failures", res.Failures,
		"events", res.Events,
		"duration", res.Duration)
	return nil
}
