// Package summarize drives the external summarization call over persisted
// pages in bounded batches, under an optional requests-per-minute cap.
package summarize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sitedigest/internal/llm"
	"sitedigest/internal/ratelimit"
	"sitedigest/internal/store"
)

// Mode selects which pages a pipeline run processes.
type Mode int

const (
	// ModeUnsummarized processes pages with no summary yet.
	ModeUnsummarized Mode = iota
	// ModeAll processes every page, overwriting existing summaries.
	ModeAll
	// ModePage processes exactly one page by URL.
	ModePage
)

// Target is a parsed summarization target.
type Target struct {
	Mode Mode
	URL  string
}

// ParseTarget interprets the CLI target value: "unsummarized", "all", or a
// page URL.
func ParseTarget(value string) Target {
	switch value {
	case "unsummarized":
		return Target{Mode: ModeUnsummarized}
	case "all":
		return Target{Mode: ModeAll}
	default:
		return Target{Mode: ModePage, URL: value}
	}
}

// ChatProvider is the slice of the LLM client the pipeline needs.
type ChatProvider interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// PageSource is the slice of the page store the pipeline needs.
type PageSource interface {
	FetchUnsummarized(limit int) ([]store.PageText, error)
	FetchPages(limit, offset int) ([]store.PageText, error)
	GetPage(url string) (*store.Page, error)
	UpdateSummary(url, summary string) error
}

// Pipeline summarizes pages from a store through a chat provider.
type Pipeline struct {
	store     PageSource
	model     ChatProvider
	template  string
	limiter   *ratelimit.Limiter
	batchSize int
	logger    *zap.Logger
}

// Config assembles a Pipeline. Template defaults to DefaultPromptTemplate,
// BatchSize to 100. Limiter may be nil for uncapped throughput.
type Config struct {
	Store     PageSource
	Model     ChatProvider
	Template  string
	Limiter   *ratelimit.Limiter
	BatchSize int
	Logger    *zap.Logger
}

// New creates a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	if cfg.Template == "" {
		cfg.Template = DefaultPromptTemplate
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{
		store:     cfg.Store,
		model:     cfg.Model,
		template:  cfg.Template,
		limiter:   cfg.Limiter,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
	}
}

// Run processes the target and returns the number of pages summarized. A
// summarization failure aborts the invocation; re-invoking is safe because
// each page's summarization is independently idempotent. An empty result is
// a success outcome reported with a mode-specific status, never an error.
func (p *Pipeline) Run(ctx context.Context, target Target) (int, error) {
	var (
		processed int
		err       error
	)
	switch target.Mode {
	case ModeUnsummarized:
		processed, err = p.runBatches(ctx, p.unsummarizedFetcher())
	case ModeAll:
		processed, err = p.runBatches(ctx, p.paginatedFetcher())
	case ModePage:
		processed, err = p.runSingle(ctx, target.URL)
	default:
		return 0, fmt.Errorf("unknown summarize mode %d", target.Mode)
	}
	if err != nil {
		return processed, err
	}

	if processed == 0 {
		switch target.Mode {
		case ModeUnsummarized:
			p.logger.Info("No pages to summarize. All pages already have summaries.")
		case ModeAll:
			p.logger.Info("No pages in the database.")
		case ModePage:
			p.logger.Info("Page not found in the database.", zap.String("url", target.URL))
		}
	} else {
		p.logger.Info("Summarized pages", zap.Int("count", processed))
	}
	return processed, nil
}

// unsummarizedFetcher re-queries the unsummarized set each round; processed
// rows gain a summary and drop out, so an empty batch means done.
func (p *Pipeline) unsummarizedFetcher() func() ([]store.PageText, error) {
	return func() ([]store.PageText, error) {
		return p.store.FetchUnsummarized(p.batchSize)
	}
}

// paginatedFetcher walks the whole table by limit/offset; a short batch
// signals end-of-data.
func (p *Pipeline) paginatedFetcher() func() ([]store.PageText, error) {
	offset := 0
	done := false
	return func() ([]store.PageText, error) {
		if done {
			return nil, nil
		}
		batch, err := p.store.FetchPages(p.batchSize, offset)
		if err != nil {
			return nil, err
		}
		offset += p.batchSize
		if len(batch) < p.batchSize {
			done = true
		}
		return batch, nil
	}
}

func (p *Pipeline) runBatches(ctx context.Context, fetch func() ([]store.PageText, error)) (int, error) {
	processed := 0
	for {
		batch, err := fetch()
		if err != nil {
			return processed, fmt.Errorf("fetch batch: %w", err)
		}
		if len(batch) == 0 {
			return processed, nil
		}
		for _, page := range batch {
			if err := p.summarizeAndStore(ctx, page.URL, page.Text); err != nil {
				return processed, err
			}
			processed++
		}
	}
}

func (p *Pipeline) runSingle(ctx context.Context, url string) (int, error) {
	page, err := p.store.GetPage(url)
	if err != nil {
		return 0, fmt.Errorf("fetch page: %w", err)
	}
	if page == nil {
		return 0, nil
	}
	if err := p.summarizeAndStore(ctx, url, page.Text); err != nil {
		return 0, err
	}
	return 1, nil
}

func (p *Pipeline) summarizeAndStore(ctx context.Context, url, text string) error {
	summary, err := p.summarizePage(ctx, url, text)
	if err != nil {
		return err
	}
	if err := p.store.UpdateSummary(url, summary); err != nil {
		return err
	}
	p.logger.Debug("Summarized page", zap.String("url", url))
	return nil
}

func (p *Pipeline) summarizePage(ctx context.Context, url, text string) (string, error) {
	messages := buildMessages(p.template, url, text)

	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			return "", err
		}
	}

	response, err := p.model.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", url, err)
	}
	return cleanResponse(response), nil
}
