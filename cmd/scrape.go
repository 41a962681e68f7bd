package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sitedigest/internal/crawler"
	"sitedigest/internal/logging"
	"sitedigest/internal/scrape"
)

// newScrapeCmd creates the 'scrape' subcommand. It crawls a website through
// its sitemap feed and persists pages to a local database.
func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <sitemap-url> <db>",
		Short: "Scrape a website using its sitemap and save pages to a local database",
		Long: `Reads the sitemap feed at the given URL, decides which pages need
(re)fetching by comparing lastmod timestamps against the database, crawls
only those pages, and removes database rows no longer present on the site.`,
		Args: cobra.ExactArgs(2),
		RunE: runScrapeCommand,
	}

	cmd.Flags().Int("delay", 1000, "delay between requests in milliseconds")
	cmd.Flags().Int("concurrency", 1, "number of concurrent requests")
	mustBindFlag("scrape.delay_ms", cmd, "delay")
	mustBindFlag("scrape.concurrency", cmd, "concurrency")

	return cmd
}

func runScrapeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := crawler.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load crawler config: %w", err)
	}

	params := scrape.Params{
		SitemapURL: args[0],
		DBPath:     args[1],
		Crawler:    cfg,
	}
	if err := scrape.Run(cmd.Context(), params, logging.L); err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	return nil
}

// mustBindFlag wires a cobra flag into the viper keyspace; a failure here is
// a programming error.
func mustBindFlag(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}
