// Package scrape orchestrates one crawl run: sitemap diff, the crawl engine,
// the intake pipeline, and post-crawl reconciliation.
package scrape

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitedigest/internal/clock/system"
	"sitedigest/internal/crawler"
	"sitedigest/internal/sitemap"
	"sitedigest/internal/store"
)

// Params configures one scrape run.
type Params struct {
	SitemapURL string
	DBPath     string
	Crawler    crawler.Config
}

// Run executes a full scrape: read the sitemap feed, resolve which URLs need
// fetching, crawl them while the intake consumer persists results, then
// reconcile the store against the visited set. Reconciliation is skipped on
// a cold-start store so a first, possibly partial, run cannot delete pages
// that simply have not been visited yet.
func Run(ctx context.Context, params Params, logger *zap.Logger) error {
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	base, err := siteBase(params.SitemapURL)
	if err != nil {
		return err
	}

	st, err := store.Open(params.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	targets, err := resolveTargets(ctx, st, params.SitemapURL, logger)
	if err != nil {
		return err
	}

	engine, err := crawler.NewEngine(params.Crawler, base, logger)
	if err != nil {
		return fmt.Errorf("init crawl engine: %w", err)
	}

	intakeDone := make(chan IntakeResult, 1)
	go func() {
		intakeDone <- consumeEvents(engine.Events(), st, system.New(), logger)
	}()

	logger.Info("Starting crawl", zap.String("base", base), zap.Int("targets", len(targets)))
	engine.Run(targets)

	// The engine has closed the event channel; wait for the consumer to
	// flush every persisted write before reconciliation reads the store.
	result := <-intakeDone
	logger.Info("Crawl complete",
		zap.Int("stored", result.Stored),
		zap.Int("failed", len(result.Failed)),
	)

	if err := reconcile(engine, result, st, logger); err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("intake: %w", result.Err)
	}
	return nil
}

// resolveTargets reads the sitemap feed and narrows it through the diff
// resolver. A freshly created store bypasses the resolver entirely and takes
// the full sitemap URL set.
func resolveTargets(ctx context.Context, st *store.Store, sitemapURL string, logger *zap.Logger) ([]string, error) {
	entries, err := sitemap.NewReader(nil).Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("read sitemap: %w", err)
	}

	var targets []string
	if st.Preexisting() {
		targets, err = sitemap.Resolve(st, entries)
		if err != nil {
			return nil, fmt.Errorf("resolve sitemap diff: %w", err)
		}
	} else {
		targets = make([]string, 0, len(entries))
		for u := range entries {
			targets = append(targets, u)
		}
	}

	logger.Info("Sitemap entries resolved",
		zap.Int("selected", len(targets)),
		zap.Int("total", len(entries)),
	)
	return targets, nil
}

// VisitedSource is the slice of the crawl engine reconciliation needs.
type VisitedSource interface {
	// Visited returns a copy of the requested-URL set; reconcile mutates it.
	Visited() map[string]struct{}
}

// reconcile removes store rows for URLs the run did not confirm. It is a
// no-op on a freshly created store so a first, possibly partial, run cannot
// delete pages that simply have not been visited yet. URLs that failed are
// subtracted from the visited set first: a transient failure must not
// protect a row as authoritative.
func reconcile(src VisitedSource, result IntakeResult, st *store.Store, logger *zap.Logger) error {
	if !st.Preexisting() {
		return nil
	}

	visited := src.Visited()
	for failed := range result.Failed {
		delete(visited, failed)
	}

	removed, err := st.RemoveUnvisited(visited)
	if err != nil {
		return fmt.Errorf("remove unvisited pages: %w", err)
	}
	logger.Info("Removed unvisited pages", zap.Int("count", removed))
	return nil
}

// siteBase derives the crawl root from the sitemap URL, e.g.
// https://example.com/sitemap.xml -> https://example.com/.
func siteBase(sitemapURL string) (string, error) {
	u, err := url.Parse(sitemapURL)
	if err != nil {
		return "", fmt.Errorf("invalid sitemap url: %w", err)
	}
	root, err := u.Parse("/")
	if err != nil {
		return "", fmt.Errorf("derive site base: %w", err)
	}
	return root.String(), nil
}
