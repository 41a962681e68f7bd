package sitemap

import (
	"fmt"
	"time"
)

// LastmodSource is the slice of the page store the diff resolver needs.
type LastmodSource interface {
	GetLastmod(url string) (time.Time, bool, error)
}

// Resolve returns the subset of sitemap URLs that must be (re)fetched:
// URLs the store has never seen, URLs whose sitemap lastmod is absent or
// unparsable (freshness cannot be proven, so re-fetch), and URLs whose
// concrete lastmod differs from the stored one.
//
// Callers handle the cold-start fast path themselves: a freshly created
// store takes the full sitemap URL set without consulting the resolver.
func Resolve(src LastmodSource, entries map[string]Entry) ([]string, error) {
	selected := make([]string, 0, len(entries))
	for url, entry := range entries {
		include, err := shouldFetch(src, url, entry)
		if err != nil {
			return nil, err
		}
		if include {
			selected = append(selected, url)
		}
	}
	return selected, nil
}

func shouldFetch(src LastmodSource, url string, entry Entry) (bool, error) {
	switch entry.LastModState {
	case LastModAbsent, LastModInvalid:
		return true, nil
	case LastModParsed:
		stored, ok, err := src.GetLastmod(url)
		if err != nil {
			return false, fmt.Errorf("resolve %s: %w", url, err)
		}
		if !ok {
			// No record in the store, must fetch.
			return true, nil
		}
		// Stored timestamps carry second precision.
		return entry.LastMod.Unix() != stored.Unix(), nil
	default:
		return true, nil
	}
}
