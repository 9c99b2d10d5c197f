package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/centinela-io/centinela/discovery"
	"github.com/centinela-io/centinela/fetch"
	"github.com/centinela-io/centinela/platform"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var maxPages int

	cmd := &cobra.Command{
		Use:   "discover URL",
		Short: "Discover monitorable pages from a site's navigation",
		Long: `Discover fetches the given page and walks its header, navigation and
footer zones for same-domain links worth monitoring, classifying each
as a promo, financing, shipping or category page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			fetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxContentSize)
			res, err := fetcher.Fetch(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}

			plat := platform.Detect(res.HTML, res.Headers)
			limit := cfg.Discovery.MaxPages
			if maxPages > 0 {
				limit = maxPages
			}
			pages := discovery.Discover(res.HTML, args[0], plat, discovery.Options{
				MaxPages:    limit,
				IgnoreGlobs: cfg.Discovery.IgnoreGlobs,
				Logger:      slog.Default(),
			})

			slog.Info("discovery complete", "url", args[0], "platform", plat, "pages", len(pages))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pages)
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Cap on discovered pages (0 = config default)")

	return cmd
}
