// Package sitemap reads a site's sitemap feed and decides which URLs need
// re-fetching.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LastModState classifies the freshness hint attached to a sitemap entry.
type LastModState int

const (
	// LastModAbsent means the entry carried no lastmod at all.
	LastModAbsent LastModState = iota
	// LastModParsed means LastMod holds a concrete timestamp.
	LastModParsed
	// LastModInvalid means the entry carried a lastmod that did not parse.
	LastModInvalid
)

// Entry is one URL from the sitemap feed with its freshness hint. Entries
// live only for the duration of one diff computation and are never
// persisted.
type Entry struct {
	URL          string
	LastMod      time.Time
	LastModState LastModState
}

// W3C datetime layouts permitted in sitemap lastmod values, most precise
// first.
var lastModLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

// Reader fetches and parses sitemap feeds, following nested sitemap
// references.
type Reader struct {
	client *http.Client
}

// NewReader creates a Reader. A nil client falls back to a default with a
// sane timeout.
func NewReader(client *http.Client) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Reader{client: client}
}

// document matches both <urlset> and <sitemapindex> payloads.
type document struct {
	URLs []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Fetch retrieves the sitemap at sitemapURL and returns every URL entry it
// (or any nested sitemap) contains, keyed by URL.
func (r *Reader) Fetch(ctx context.Context, sitemapURL string) (map[string]Entry, error) {
	entries := make(map[string]Entry)
	pending := []string{sitemapURL}

	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		doc, err := r.fetchOne(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("fetch sitemap %s: %w", current, err)
		}

		for _, u := range doc.URLs {
			if u.Loc == "" {
				continue
			}
			entry := parseLastMod(u.LastMod)
			entry.URL = u.Loc
			entries[u.Loc] = entry
		}
		for _, sm := range doc.Sitemaps {
			if sm.Loc != "" {
				pending = append(pending, sm.Loc)
			}
		}
	}
	return entries, nil
}

func (r *Reader) fetchOne(ctx context.Context, url string) (*document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var doc document
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return &doc, nil
}

func parseLastMod(raw string) Entry {
	if raw == "" {
		return Entry{LastModState: LastModAbsent}
	}
	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Entry{LastMod: t.UTC(), LastModState: LastModParsed}
		}
	}
	return Entry{LastModState: LastModInvalid}
}
