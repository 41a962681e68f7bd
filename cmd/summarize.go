package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sitedigest/internal/llm"
	"sitedigest/internal/logging"
	"sitedigest/internal/ratelimit"
	"sitedigest/internal/store"
	"sitedigest/internal/summarize"
)

// newSummarizeCmd creates the 'summarize' subcommand. It drives the LLM
// summarization call over stored pages and writes summaries back.
func newSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <db> <model-url>",
		Short: "Summarize scraped pages using an LLM model",
		Long: `Summarizes stored pages through an OpenAI-compatible chat endpoint and
stores each summary back in the database. The model URL selects backend and
model, e.g. ollama://llama3 or openai://gpt-4o-mini. An API key is read from
the environment variable named by summarize.api_key_env.`,
		Args: cobra.ExactArgs(2),
		RunE: runSummarizeCommand,
	}

	cmd.Flags().StringP("prompt-file", "p", "", "path to a file with a prompt template")
	cmd.Flags().StringP("target", "t", "unsummarized",
		`target to summarize: "unsummarized", "all", or a page URL`)
	cmd.Flags().IntP("rpm", "r", 0, "rate limit in requests per minute (0 = no limit)")

	return cmd
}

func runSummarizeCommand(cmd *cobra.Command, args []string) error {
	ref, err := llm.ParseModelURL(args[1])
	if err != nil {
		return err
	}
	apiKey := os.Getenv(viper.GetString("summarize.api_key_env"))
	client := llm.NewClient(ref, viper.GetString("summarize.base_url"), apiKey)

	template := ""
	if promptFile, _ := cmd.Flags().GetString("prompt-file"); promptFile != "" {
		content, err := os.ReadFile(promptFile)
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}
		template = string(content)
	}

	var limiter *ratelimit.Limiter
	if rpm, _ := cmd.Flags().GetInt("rpm"); rpm > 0 {
		if limiter, err = ratelimit.NewPerMinute(rpm, nil); err != nil {
			return err
		}
	}

	st, err := store.Open(args[0])
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	pipeline := summarize.New(summarize.Config{
		Store:     st,
		Model:     client,
		Template:  template,
		Limiter:   limiter,
		BatchSize: viper.GetInt("summarize.batch_size"),
		Logger:    logging.L,
	})

	target, _ := cmd.Flags().GetString("target")
	logging.L.Info("Summarizing pages",
		zap.String("target", target),
		zap.String("model", ref.Model),
	)
	if _, err := pipeline.Run(cmd.Context(), summarize.ParseTarget(target)); err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	return nil
}
