package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/centinela-io/centinela/fetch"
	"github.com/centinela-io/centinela/monitor"
	"github.com/centinela-io/centinela/store"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		competitorID string
		pageKind     string
	)

	cmd := &cobra.Command{
		Use:   "scan URL",
		Short: "Run one URL through the full pipeline",
		Long: `Scan fetches a single URL, detects the platform, extracts signals,
persists a snapshot and reports any change events against the previous
observation of the same page.`,
		Args: cobra.ExactArgs(1),
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

			ctx := cmd.Context()
			url := args[0]

			page, err := st.PageByURL(ctx, url)
			if err != nil {
				page = store.Page{
					ID:           uuid.NewString(),
					CompetitorID: competitorID,
					URL:          url,
					Kind:         pageKind,
					Active:       true,
				}
				if err := st.UpsertPage(ctx, page); err != nil {
					return fmt.Errorf("register page: %w", err)
				}
				page, err = st.PageByURL(ctx, url)
				if err != nil {
					return fmt.Errorf("reload page: %w", err)
				}
			}

			fetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxContentSize)
			mon := monitor.New(st, fetcher, monitor.Options{Logger: slog.Default()})

			events, err := mon.ProcessPage(ctx, page)
			if err != nil {
				return fmt.Errorf("scan %s: %w", url, err)
			}

			slog.Info("scan complete", "url", url, "events", len(events))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		},
	}

	cmd.Flags().StringVar(&competitorID, "competitor", "", "Competitor ID to attribute the page to")
	cmd.Flags().StringVar(&pageKind, "kind", "OTHER", "Page kind (HOME, PROMO_PAGE, FINANCING_PAGE, SHIPPING_PAGE, CATEGORY, OTHER)")

	return cmd
}
