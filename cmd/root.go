// Package cmd defines and implements the CLI commands for the sitedigest
// executable.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitedigest/internal/logging"
	"sitedigest/pkg/config"
)

var verbosity int

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitedigest",
		Short: "Build an llms.txt digest from a website's sitemap.",
		Long: `sitedigest scrapes a website through its sitemap feed, stores page
content in a local SQLite database, summarizes pages with an LLM, and
composes the summaries into a digest file for AI crawlers.`,
		SilenceUsage: true,
	}

	// Flags are parsed before initializers run, so the logger picks up the
	// requested verbosity before configuration loading logs anything.
	cobra.OnInitialize(func() {
		logging.InitLogger(verbosity)
		config.InitConfig()
	})

	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"output verbosity: info (default), debug (-v)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newSummarizeCmd())
	cmd.AddCommand(newComposeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
