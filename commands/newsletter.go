package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/centinela-io/centinela/newsletter"
)

func newNewsletterCmd(opts *rootOptions) *cobra.Command {
	var (
		subject      string
		withMarkdown bool
	)

	cmd := &cobra.Command{
		Use:   "newsletter FILE",
		Short: "Extract commercial signals from a newsletter email",
		Long: `Newsletter parses a saved email HTML body for promotion, financing and
shipping signals found in the subject line, image alt texts, call to
action links and headlines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read email body: %w", err)
			}

			parser := newsletter.NewParser(slog.Default())
			res, err := parser.Parse(newsletter.Email{
				Subject: subject,
				HTML:    string(body),
			})
			if err != nil {
				return fmt.Errorf("parse newsletter: %w", err)
			}

			slog.Info("newsletter parsed", "file", args[0], "signals", len(res.Signals))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res.Signals); err != nil {
				return err
			}
			if withMarkdown {
				fmt.Fprintln(cmd.OutOrStdout(), res.Markdown)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Email subject line to scan alongside the body")
	cmd.Flags().BoolVar(&withMarkdown, "markdown", false, "Also print the extracted body as Markdown")

	return cmd
}
