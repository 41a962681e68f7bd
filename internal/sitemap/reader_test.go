package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLastMod(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		state LastModState
		want  time.Time
	}{
		{name: "absent", raw: "", state: LastModAbsent},
		{
			name:  "date only",
			raw:   "2025-06-01",
			state: LastModParsed,
			want:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "datetime with offset",
			raw:   "2025-06-01T12:30:00+02:00",
			state: LastModParsed,
			want:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "datetime without seconds",
			raw:   "2025-06-01T12:30Z",
			state: LastModParsed,
			want:  time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		{name: "garbage", raw: "yesterday", state: LastModInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := parseLastMod(tt.raw)
			assert.Equal(t, tt.state, entry.LastModState)
			if tt.state == LastModParsed {
				assert.True(t, entry.LastMod.Equal(tt.want), "got %v, want %v", entry.LastMod, tt.want)
			}
		})
	}
}

func TestFetchFlatSitemap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc><lastmod>2025-06-01</lastmod></url>
  <url><loc>https://example.com/b</loc></url>
  <url><loc>https://example.com/c</loc><lastmod>not-a-date</lastmod></url>
</urlset>`)
	}))
	defer srv.Close()

	entries, err := NewReader(srv.Client()).Fetch(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, LastModParsed, entries["https://example.com/a"].LastModState)
	assert.Equal(t,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		entries["https://example.com/a"].LastMod,
	)
	assert.Equal(t, LastModAbsent, entries["https://example.com/b"].LastModState)
	assert.Equal(t, LastModInvalid, entries["https://example.com/c"].LastModState)
}

func TestFetchFollowsSitemapIndex(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/sitemap-posts.xml</loc></sitemap>
  <sitemap><loc>%s/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/sitemap-posts.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://example.com/post-1</loc></url></urlset>`)
	})
	mux.HandleFunc("/sitemap-pages.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://example.com/about</loc></url></urlset>`)
	})

	entries, err := NewReader(srv.Client()).Fetch(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	assert.Contains(t, entries, "https://example.com/post-1")
	assert.Contains(t, entries, "https://example.com/about")
	assert.Len(t, entries, 2)
}

func TestFetchNonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewReader(srv.Client()).Fetch(context.Background(), srv.URL+"/sitemap.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchMalformedXMLIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>broken`)
	}))
	defer srv.Close()

	_, err := NewReader(srv.Client()).Fetch(context.Background(), srv.URL+"/sitemap.xml")
	require.Error(t, err)
}
