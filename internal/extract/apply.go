package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"

	"sitedigest/internal/store"
)

// PageRepo is the slice of the page store re-extraction needs.
type PageRepo interface {
	ListURLs() ([]string, error)
	GetPage(url string) (*store.Page, error)
	UpsertPage(p *store.Page) error
}

// ApplyAll re-extracts every stored page. Rows that disappear between the
// URL listing and the row read are skipped.
func ApplyAll(repo PageRepo, selector cascadia.Selector, logger *zap.Logger) error {
	urls, err := repo.ListURLs()
	if err != nil {
		return fmt.Errorf("list urls: %w", err)
	}
	for _, url := range urls {
		logger.Info("Parsing page", zap.String("url", url))
		page, err := repo.GetPage(url)
		if err != nil {
			return fmt.Errorf("get page %s: %w", url, err)
		}
		if page == nil {
			continue
		}
		if err := applyPage(repo, page, selector); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOne re-extracts a single page. A missing page is reported, not an
// error.
func ApplyOne(repo PageRepo, url string, selector cascadia.Selector, logger *zap.Logger) error {
	page, err := repo.GetPage(url)
	if err != nil {
		return fmt.Errorf("get page %s: %w", url, err)
	}
	if page == nil {
		logger.Error("Page not found", zap.String("url", url))
		return nil
	}
	return applyPage(repo, page, selector)
}

func applyPage(repo PageRepo, page *store.Page, selector cascadia.Selector) error {
	article, err := Extract(page.HTML, selector)
	if err != nil {
		return fmt.Errorf("extract %s: %w", page.URL, err)
	}
	page.ApplyArticle(article.Title, article.Text)
	if err := repo.UpsertPage(page); err != nil {
		return fmt.Errorf("store %s: %w", page.URL, err)
	}
	return nil
}
