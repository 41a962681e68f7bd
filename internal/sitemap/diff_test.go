package sitemap

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLastmodSource struct {
	lastmods map[string]time.Time
	err      error
}

func (f *fakeLastmodSource) GetLastmod(url string) (time.Time, bool, error) {
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	t, ok := f.lastmods[url]
	return t, ok, nil
}

func TestResolveSelection(t *testing.T) {
	known := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeLastmodSource{lastmods: map[string]time.Time{
		"https://example.com/unchanged": known,
		"https://example.com/stale":     known,
	}}

	entries := map[string]Entry{
		"https://example.com/unchanged": {LastMod: known, LastModState: LastModParsed},
		"https://example.com/stale":     {LastMod: known.Add(24 * time.Hour), LastModState: LastModParsed},
		"https://example.com/new":       {LastMod: known, LastModState: LastModParsed},
		"https://example.com/no-hint":   {LastModState: LastModAbsent},
		"https://example.com/bad-hint":  {LastModState: LastModInvalid},
	}

	selected, err := Resolve(src, entries)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"https://example.com/stale",
		"https://example.com/new",
		"https://example.com/no-hint",
		"https://example.com/bad-hint",
	}, selected)
}

func TestResolveSubSecondDriftIsUnchanged(t *testing.T) {
	known := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeLastmodSource{lastmods: map[string]time.Time{
		"https://example.com/a": known,
	}}
	entries := map[string]Entry{
		"https://example.com/a": {
			LastMod:      known.Add(500 * time.Millisecond),
			LastModState: LastModParsed,
		},
	}

	selected, err := Resolve(src, entries)
	require.NoError(t, err)
	assert.Empty(t, selected, "timestamps matching at second precision must not trigger a re-fetch")
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	src := &fakeLastmodSource{err: fmt.Errorf("disk gone")}
	entries := map[string]Entry{
		"https://example.com/a": {LastMod: time.Now(), LastModState: LastModParsed},
	}

	_, err := Resolve(src, entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}
