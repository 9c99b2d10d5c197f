package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/centinela-io/centinela/fetch"
	"github.com/centinela-io/centinela/platform"
)

func newDetectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect URL",
		Short: "Detect the e-commerce platform behind a URL",
		Args:  cobra.ExactArgs(1),
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

			fmt.Fprintln(cmd.OutOrStdout(), platform.Detect(res.HTML, res.Headers))
			return nil
		},
	}
}
