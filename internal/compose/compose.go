// Package compose writes the digest file from summarized pages.
package compose

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"sitedigest/internal/store"
)

// PageSource is the slice of the page store compose reads.
type PageSource interface {
	ListURLs() ([]string, error)
	GetPage(url string) (*store.Page, error)
}

// Compose writes one digest block per store row carrying a non-empty
// summary: a heading of [title](url) or the bare URL, the summary, and a
// blank line. Iteration follows the store's native listing order. It returns
// the number of blocks written.
func Compose(src PageSource, outputPath string, logger *zap.Logger) (int, error) {
	urls, err := src.ListURLs()
	if err != nil {
		return 0, fmt.Errorf("list urls: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}

	composed := 0
	for _, url := range urls {
		page, err := src.GetPage(url)
		if err != nil {
			_ = file.Close()
			return composed, fmt.Errorf("get page %s: %w", url, err)
		}
		if page == nil || page.Summary == "" {
			continue
		}

		if _, err := file.WriteString(Block(page)); err != nil {
			_ = file.Close()
			return composed, fmt.Errorf("write block for %s: %w", url, err)
		}
		composed++
	}

	if err := file.Close(); err != nil {
		return composed, fmt.Errorf("close output file: %w", err)
	}
	logger.Info("Composed digest", zap.Int("pages", composed), zap.String("output", outputPath))
	return composed, nil
}

// Block renders one digest entry for a summarized page.
func Block(page *store.Page) string {
	heading := page.URL
	if page.Title != "" {
		heading = fmt.Sprintf("[%s](%s)", page.Title, page.URL)
	}
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(page.Summary)
	b.WriteString("\n\n")
	return b.String()
}
