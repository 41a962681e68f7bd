// Package extract turns stored HTML into readable article text and titles.
// It uses go-readability for the article body and goquery for title
// heuristics and optional CSS-selector scoping.
package extract

import (
	"fmt"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Article is the result of extracting one page.
type Article struct {
	// Title is empty when no heading could be derived from the document.
	Title string
	// Text is the extracted article body.
	Text string
}

// ParseSelector compiles a CSS selector. A malformed selector is a
// configuration error and must be rejected before any page work starts.
func ParseSelector(query string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid CSS selector %q: %w", query, err)
	}
	return sel, nil
}

// Extract derives an Article from raw HTML. A non-nil selector limits the
// HTML subset from which the body is extracted; the title is always derived
// from the full document.
func Extract(html string, selector cascadia.Selector) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Article{}, fmt.Errorf("parse html: %w", err)
	}

	title := titleFrom(doc)

	scoped := html
	if selector != nil {
		var parts []string
		doc.FindMatcher(selector).Each(func(_ int, s *goquery.Selection) {
			if fragment, err := goquery.OuterHtml(s); err == nil {
				parts = append(parts, fragment)
			}
		})
		scoped = strings.Join(parts, "\n")
	}

	text, err := readableText(scoped)
	if err != nil {
		return Article{}, err
	}
	return Article{Title: title, Text: text}, nil
}

// DocumentTitle returns the best-effort title for raw HTML, or "" when the
// document yields none. Used by the intake pipeline at fetch time.
func DocumentTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return titleFrom(doc)
}

// titleFrom prefers the document <title>, then falls back to the first
// non-empty h1 or h2.
func titleFrom(doc *goquery.Document) string {
	for _, tag := range []string{"title", "h1", "h2"} {
		text := ""
		doc.Find(tag).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text = strings.Join(strings.Fields(s.Text()), " ")
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

func readableText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
