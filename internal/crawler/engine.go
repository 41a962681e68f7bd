// Package crawler wraps the Colly library into the crawl engine used by the
// scrape pipeline: a configured collector that fetches an explicit target
// set, follows discovered links, and emits one event per completed fetch
// attempt on a bounded channel.
package crawler

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sync"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Event describes one completed fetch attempt.
type Event struct {
	URL        string
	StatusCode int
	HTML       string
}

// Success reports whether the fetch returned an HTTP success-class status.
func (e Event) Success() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// Engine drives a Colly collector over a bounded target-URL set. Consumers
// subscribe through Events; the channel is closed once the crawl completes
// and every event has been flushed.
type Engine struct {
	cfg       Config
	collector *colly.Collector
	events    chan Event
	logger    *zap.Logger

	mu      sync.Mutex
	visited map[string]struct{}
	retries map[string]int
}

// NewEngine builds an engine rooted at baseURL. The event channel capacity
// comes from cfg.EventBuffer so bursts of results never stall in-flight
// fetches beyond that buffer.
func NewEngine(cfg Config, baseURL string, logger *zap.Logger) (*Engine, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Hostname() == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}

	e := &Engine{
		cfg:     cfg,
		events:  make(chan Event, cfg.EventBuffer),
		logger:  logger,
		visited: make(map[string]struct{}),
		retries: make(map[string]int),
	}
	e.collector, err = e.initCollector(base)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Events returns the fetch-result stream. It is closed by Run.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run visits every target URL, waits for the crawl (including followed
// links) to finish, then closes the event channel. It must be called once.
func (e *Engine) Run(targets []string) {
	for _, target := range targets {
		if err := e.collector.Visit(target); err != nil {
			e.logger.Warn("Failed to visit target", zap.String("url", target), zap.Error(err))
		}
	}
	e.collector.Wait()
	close(e.events)
}

// Visited returns the full set of URLs requested during the run, which may
// exceed the target set due to link following.
func (e *Engine) Visited() map[string]struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]struct{}, len(e.visited))
	for u := range e.visited {
		out[u] = struct{}{}
	}
	return out
}

func (e *Engine) initCollector(base *url.URL) (*colly.Collector, error) {
	host := base.Hostname()

	opts := []colly.CollectorOption{
		colly.UserAgent(e.cfg.UserAgent),
		colly.MaxDepth(e.cfg.MaxDepth),
		colly.Async(true),
	}
	if e.cfg.AllowSubdomains {
		filter, err := regexp.Compile(`^https?://([a-z0-9-]+\.)*` + regexp.QuoteMeta(host) + `(:\d+)?(/|$)`)
		if err != nil {
			return nil, fmt.Errorf("compile subdomain filter: %w", err)
		}
		opts = append(opts, colly.URLFilters(filter))
	} else {
		opts = append(opts, colly.AllowedDomains(host))
	}

	collector := colly.NewCollector(opts...)
	collector.AllowURLRevisit = false
	collector.IgnoreRobotsTxt = !e.cfg.RespectRobots

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: e.cfg.Concurrency,
		Delay:       e.cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("set collector limits: %w", err)
	}

	collector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) > e.cfg.RedirectLimit {
			return http.ErrUseLastResponse
		}
		return nil
	})

	collector.OnRequest(e.handleRequest)
	collector.OnHTML("a[href]", e.handleLink)
	collector.OnResponse(e.handleResponse)
	collector.OnError(e.handleError)

	return collector, nil
}

func (e *Engine) handleRequest(r *colly.Request) {
	e.mu.Lock()
	e.visited[r.URL.String()] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) handleLink(el *colly.HTMLElement) {
	if err := el.Request.Visit(el.Attr("href")); err != nil {
		e.logger.Debug("Skipping link", zap.String("href", el.Attr("href")), zap.Error(err))
	}
}

func (e *Engine) handleResponse(r *colly.Response) {
	// Blocking send: persistence slower than the buffer applies backpressure
	// to the collector's fetch goroutines.
	e.events <- Event{
		URL:        r.Request.URL.String(),
		StatusCode: r.StatusCode,
		HTML:       string(r.Body),
	}
}

func (e *Engine) handleError(r *colly.Response, err error) {
	url := r.Request.URL.String()

	e.mu.Lock()
	attempts := e.retries[url]
	e.retries[url] = attempts + 1
	e.mu.Unlock()

	if attempts < e.cfg.Retries {
		e.logger.Warn("Retrying request",
			zap.String("url", url),
			zap.Int("attempt", attempts+1),
			zap.Error(err),
		)
		if rerr := r.Request.Retry(); rerr == nil {
			return
		}
	}

	e.logger.Error("Request failed",
		zap.String("url", url),
		zap.Int("status_code", r.StatusCode),
		zap.Error(err),
	)
	e.events <- Event{
		URL:        url,
		StatusCode: r.StatusCode,
		HTML:       string(r.Body),
	}
}
