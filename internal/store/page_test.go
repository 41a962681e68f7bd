package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyArticleReplacesText(t *testing.T) {
	p := &Page{URL: "https://example.com/a", Text: "old"}
	p.ApplyArticle("New Title", "new text")

	assert.Equal(t, "New Title", p.Title)
	assert.Equal(t, "new text", p.Text)
}

func TestApplyArticleKeepsTitleWhenExtractionFoundNone(t *testing.T) {
	p := &Page{URL: "https://example.com/a", Title: "Known Title", Text: "old"}
	p.ApplyArticle("", "new text")

	assert.Equal(t, "Known Title", p.Title)
	assert.Equal(t, "new text", p.Text)
}

func TestApplyArticleClearsTextWhenExtractionIsEmpty(t *testing.T) {
	p := &Page{URL: "https://example.com/a", Text: "old"}
	p.ApplyArticle("", "")

	assert.Empty(t, p.Text)
}
