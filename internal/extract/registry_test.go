package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SelectsSpecificExtractorOverGeneric(t *testing.T) {
	r := NewRegistry()

	selected := r.Select("https://github.com/owner/repo")
	assert.Equal(t, "github-repo", selected.Name())

	selected = r.Select("https://youtube.com/watch?v=abc123")
	assert.Equal(t, "youtube-video", selected.Name())

	selected = r.Select("https://example.com/some-article")
	assert.Equal(t, "generic-html", selected.Name())
}

func TestRegistry_SelectionIsDeterministic(t *testing.T) {
	r := NewRegistry()
	first := r.Select("https://github.com/owner/repo")
	second := r.Select("https://github.com/owner/repo")
	assert.Equal(t, first.Name(), second.Name())
	assert.Equal(t, first.Version(), second.Version())
}

func TestGenericExtractor_PullsTitleAndDescription(t *testing.T) {
	html := `<html><head><title>Hello</title><meta property="og:description" content="A test page"></head><body><h1>Welcome</h1><p>Some content here.</p></body></html>`
	g := newGenericHTMLExtractor()
	c, err := g.Extract(context.Background(), "https://example.com/a", []byte(html), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "Hello", c.Title)
	assert.Equal(t, "A test page", c.Description)
	assert.Contains(t, c.MainContentMD, "Welcome")
}

func TestGitHubExtractor_ParsesOwnerRepo(t *testing.T) {
	g := newGitHubExtractor()
	body := `<meta property="og:description" content="A great repo">{"stargazers_count":42,"forks_count":7}`
	c, err := g.Extract(context.Background(), "https://github.com/acme/widgets", []byte(body), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", c.Title)
	assert.Equal(t, "R", c.ContentTypeHint)
	assert.Equal(t, 42, c.TypeSpecific["stars"])
}
