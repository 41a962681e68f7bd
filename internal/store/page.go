package store

import "time"

// Page is the unit of persisted knowledge about one URL.
//
// Title, Text and Summary use the empty string to mean "absent"; they map to
// NULL columns in the database. A page with an empty Summary is considered
// unsummarized.
type Page struct {
	URL     string
	AddedAt time.Time
	LastMod time.Time
	HTML    string
	Title   string
	Text    string
	Summary string
}

// PageText is the (url, text) projection used by the summarization batch
// read paths.
type PageText struct {
	URL  string
	Text string
}

// ApplyArticle merges an extraction result into the page. The extracted text
// always replaces the stored text; the title only fills in when the
// extraction produced one, so a known title is never lost to a heuristic
// that found nothing.
func (p *Page) ApplyArticle(title, text string) {
	p.Text = text
	if title != "" {
		p.Title = title
	}
}
