package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitedigest/internal/compose"
	"sitedigest/internal/logging"
	"sitedigest/internal/store"
)

// newComposeCmd creates the 'compose' subcommand. It writes summarized pages
// to the digest output file.
func newComposeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compose <db> <output-file>",
		Short: "Compose stored summaries into a digest file",
		Args:  cobra.ExactArgs(2),
		RunE:  runComposeCommand,
	}
}

func runComposeCommand(_ *cobra.Command, args []string) error {
	st, err := store.Open(args[0])
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if _, err := compose.Compose(st, args[1], logging.L); err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	return nil
}
