package scrape

import (
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"sitedigest/internal/clock"
	"sitedigest/internal/crawler"
	"sitedigest/internal/extract"
	"sitedigest/internal/store"
)

// PageSink is the slice of the page store the intake consumer needs.
type PageSink interface {
	UpsertPage(p *store.Page) error
}

// IntakeResult summarizes one drain of the crawl event stream.
type IntakeResult struct {
	// Stored counts pages durably written to the store.
	Stored int
	// Failed holds every URL whose fetch attempt or persistence failed.
	// Reconciliation subtracts these from the visited set so a transient
	// failure is neither treated as authoritative nor deleted before the
	// next run can retry it.
	Failed map[string]struct{}
	// Err joins per-page storage errors. A storage failure does not stop
	// the drain; the URL is recorded as failed and consumption continues,
	// leaving the retry/abort decision to the caller.
	Err error
}

// consumeEvents drains the engine's event channel until it closes, writing
// successful fetches to the sink. It runs concurrently with the engine's own
// fetch goroutines; they communicate only through the channel.
func consumeEvents(events <-chan crawler.Event, sink PageSink, clk clock.Clock, logger *zap.Logger) IntakeResult {
	result := IntakeResult{Failed: make(map[string]struct{})}
	var errs []error

	for event := range events {
		logger.Debug("Crawled page",
			zap.String("url", event.URL),
			zap.Int("status_code", event.StatusCode),
		)

		if !event.Success() {
			logger.Warn("Skipping failed fetch",
				zap.String("url", event.URL),
				zap.Int("status_code", event.StatusCode),
			)
			result.Failed[event.URL] = struct{}{}
			continue
		}
		if u, err := url.ParseRequestURI(event.URL); err != nil || u.Host == "" {
			logger.Error("Malformed URL in crawl result", zap.String("url", event.URL), zap.Error(err))
			result.Failed[event.URL] = struct{}{}
			continue
		}

		now := clk.Now()
		page := &store.Page{
			URL:     event.URL,
			AddedAt: now,
			LastMod: now,
			HTML:    event.HTML,
			Title:   extract.DocumentTitle(event.HTML),
		}
		if err := sink.UpsertPage(page); err != nil {
			logger.Error("Failed to store page", zap.String("url", event.URL), zap.Error(err))
			result.Failed[event.URL] = struct{}{}
			errs = append(errs, fmt.Errorf("store %s: %w", event.URL, err))
			continue
		}
		result.Stored++
	}

	result.Err = errors.Join(errs...)
	return result
}
