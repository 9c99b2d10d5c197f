package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/centinela-io/centinela/fetch"
	"github.com/centinela-io/centinela/monitor"
	"github.com/centinela-io/centinela/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve scan requests from NATS JetStream",
		Long: `Serve connects to NATS and consumes scan requests from JetStream,
running each through the scan pipeline and publishing resulting change
events. With metrics.addr configured it also exposes Prometheus
metrics over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.NATS.URL == "" {
				return fmt.Errorf("nats.url is required for serve")
			}

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			registry := prometheus.NewRegistry()
			fetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxContentSize)
			mon := monitor.New(st, fetcher, monitor.Options{
				Workers: cfg.Monitor.Workers,
				Logger:  slog.Default(),
				Metrics: monitor.NewMetrics(registry),
			})

			conn, err := nats.Connect(cfg.NATS.URL,
				nats.Name("centinela-serve"),
				nats.MaxReconnects(-1),
				nats.ReconnectWait(2*time.Second))
			if err != nil {
				return fmt.Errorf("connect to NATS %s: %w", cfg.NATS.URL, err)
			}
			defer conn.Close()

			worker, err := monitor.NewStreamWorker(conn, mon, st, cfg.NATS, slog.Default())
			if err != nil {
				return fmt.Errorf("create stream worker: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := worker.Start(ctx); err != nil {
				return fmt.Errorf("start stream worker: %w", err)
			}

			var metricsSrv *http.Server
			if cfg.Metrics.Addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
				go func() {
					slog.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
					if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("metrics server failed", "error", err)
					}
				}()
			}

			slog.Info("serving scan requests",
				"stream", cfg.NATS.Stream,
				"subject", cfg.NATS.ScanSubject)
			<-ctx.Done()
			slog.Info("received shutdown signal")

			if metricsSrv != nil {
				_ = metricsSrv.Close()
			}
			if err := worker.Stop(10 * time.Second); err != nil {
				return fmt.Errorf("stop stream worker: %w", err)
			}
			return nil
		},
	}
}
