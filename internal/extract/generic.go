package extract

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// genericHTMLExtractor is the fallback extractor used when no specific
// extractor's CanHandle matches (spec §4.2: "if none applies, a generic
// HTML extractor is used"). Its recursive-descent markdown conversion
// follows the teacher's internal/tools/research/web_fetch.go htmlToMarkdown
// walk, generalized to also pull out <title>/<meta> fields instead of
// discarding them.
type genericHTMLExtractor struct{}

func newGenericHTMLExtractor() *genericHTMLExtractor { return &genericHTMLExtractor{} }

func (g *genericHTMLExtractor) Name() string     { return "generic-html" }
func (g *genericHTMLExtractor) Version() string  { return "1.0.0" }
func (g *genericHTMLExtractor) Priority() int    { return 0 }
func (g *genericHTMLExtractor) CanHandle(_ string) bool { return true }

func (g *genericHTMLExtractor) Extract(_ context.Context, canonicalURL string, body []byte, contentType string) (*Content, error) {
	if !strings.Contains(contentType, "html") && contentType != "" {
		return g.extractPlainText(string(body)), nil
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, &ParseError{Cause: err}
	}

	meta := map[string]string{}
	collectMeta(doc, meta)

	var sb strings.Builder
	extractText(doc, &sb, 0)
	markdown := cleanMarkdown(sb.String())

	c := &Content{
		Title:            firstNonEmpty(meta["og:title"], meta["title"]),
		Description:      firstNonEmpty(meta["og:description"], meta["description"]),
		Author:           meta["author"],
		SiteName:         meta["og:site_name"],
		ImageURL:         meta["og:image"],
		MainContentMD:    markdown,
		WordCount:        len(strings.Fields(markdown)),
		Language:         firstNonEmpty(meta["html-lang"], "en"),
		ContentTypeHint:  "A",
		ExtractorName:    g.Name(),
		ExtractorVersion: g.Version(),
	}
	return c, nil
}

func (g *genericHTMLExtractor) extractPlainText(body string) *Content {
	return &Content{
		MainContentMD:    body,
		WordCount:        len(strings.Fields(body)),
		ContentTypeHint:  "A",
		ExtractorName:    g.Name(),
		ExtractorVersion: g.Version(),
	}
}

func collectMeta(n *html.Node, out map[string]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if n.FirstChild != nil {
				out["title"] = strings.TrimSpace(n.FirstChild.Data)
			}
		case "meta":
			var name, property, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "property":
					property = a.Val
				case "content":
					content = a.Val
				}
			}
			if property != "" {
				out[property] = content
			} else if name != "" {
				out[name] = content
			}
		case "html":
			for _, a := range n.Attr {
				if a.Key == "lang" && a.Val != "" {
					out["html-lang"] = a.Val
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, out)
	}
}

// extractText walks the DOM emitting a simplified markdown rendering,
// following the teacher's recursion-depth-capped text walk.
func extractText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}
	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
			return
		case "h1":
			sb.WriteString("\n\n# ")
		case "h2":
			sb.WriteString("\n\n## ")
		case "h3":
			sb.WriteString("\n\n### ")
		case "p", "div":
			sb.WriteString("\n\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb, depth+1)
	}
}

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

func cleanMarkdown(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
