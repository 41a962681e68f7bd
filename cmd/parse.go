package cmd

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/spf13/cobra"

	"sitedigest/internal/extract"
	"sitedigest/internal/logging"
	"sitedigest/internal/store"
)

// newParseCmd creates the 'parse' subcommand. It re-extracts article text
// (and titles) from HTML already stored in the database.
func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <db>",
		Short: "Re-extract content from HTML in the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runParseCommand,
	}

	cmd.Flags().StringP("target", "t", "all", `target to parse: "all" or a page URL`)
	cmd.Flags().StringP("selector", "s", "",
		"CSS selector limiting the HTML subset content is extracted from")

	return cmd
}

func runParseCommand(cmd *cobra.Command, args []string) error {
	// A malformed selector is a configuration error; reject it before any
	// page work starts.
	var selector cascadia.Selector
	if query, _ := cmd.Flags().GetString("selector"); query != "" {
		var err error
		if selector, err = extract.ParseSelector(query); err != nil {
			return err
		}
	}

	st, err := store.Open(args[0])
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	target, _ := cmd.Flags().GetString("target")
	if target == "all" {
		return extract.ApplyAll(st, selector, logging.L)
	}
	return extract.ApplyOne(st, target, selector, logging.L)
}
