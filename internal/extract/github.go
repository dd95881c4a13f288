package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// githubExtractor recognizes github.com/<owner>/<repo> URLs and pulls
// repository metadata out of the page's embedded JSON or meta tags
// (spec §4.2: "type-specific payload (e.g., ... repository stars)").
type githubExtractor struct{}

func newGitHubExtractor() *githubExtractor { return &githubExtractor{} }

func (g *githubExtractor) Name() string    { return "github-repo" }
func (g *githubExtractor) Version() string { return "1.0.0" }
func (g *githubExtractor) Priority() int   { return 50 }

var githubRepoPattern = regexp.MustCompile(`^https://github\.com/[^/]+/[^/]+/?$`)

func (g *githubExtractor) CanHandle(canonicalURL string) bool {
	return githubRepoPattern.MatchString(canonicalURL)
}

func (g *githubExtractor) Extract(_ context.Context, canonicalURL string, body []byte, _ string) (*Content, error) {
	text := string(body)

	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(canonicalURL, "https://github.com/"), "/"), "/")
	owner, repo := "", ""
	if len(parts) == 2 {
		owner, repo = parts[0], parts[1]
	}

	stars := extractMetaInt(text, `"stargazers_count":(\d+)`)
	forks := extractMetaInt(text, `"forks_count":(\d+)`)
	description := extractMetaContent(text, "og:description")

	return &Content{
		Title:           owner + "/" + repo,
		Description:     description,
		SiteName:        "GitHub",
		MainContentMD:   description,
		WordCount:       len(strings.Fields(description)),
		Language:        "en",
		ContentTypeHint: "R",
		TypeSpecific: map[string]any{
			"owner": owner, "repo": repo, "stars": stars, "forks": forks,
		},
		ExtractorName:    g.Name(),
		ExtractorVersion: g.Version(),
	}, nil
}

func extractMetaInt(text, pattern string) int {
	re := regexp.MustCompile(pattern)
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func extractMetaContent(text, property string) string {
	re := regexp.MustCompile(`<meta property="` + regexp.QuoteMeta(property) + `" content="([^"]*)"`)
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	var unescaped string
	_ = json.Unmarshal([]byte(`"`+m[1]+`"`), &unescaped)
	if unescaped != "" {
		return unescaped
	}
	return m[1]
}
