package classify

import "strings"

// fallbackRule maps a URL substring (usually a domain) to a content type
// and organization, used when the LLM is unreachable (spec §4.3/scenario
// S6: "github.com → contentType=R, organization=GHUB").
type fallbackRule struct {
	match       string
	segment     string
	category    string
	contentType string
	organization string
}

// fallbackConfidence is the confidence ceiling for any URL-pattern fallback
// classification (spec §4.3: "confidence for fallback is ≤ 0.3").
const fallbackConfidence = 0.3

var fallbackRules = []fallbackRule{
	{match: "github.com", segment: "T", category: "DEV", contentType: "R", organization: "GHUB"},
	{match: "gitlab.com", segment: "T", category: "DEV", contentType: "R", organization: "GTLB"},
	{match: "youtube.com", segment: "T", category: "DEV", contentType: "V", organization: "GOOG"},
	{match: "youtu.be", segment: "T", category: "DEV", contentType: "V", organization: "GOOG"},
	{match: "medium.com", segment: "T", category: "DEV", contentType: "A", organization: "MEDM"},
	{match: "arxiv.org", segment: "S", category: "RES", contentType: "A", organization: "ARXV"},
	{match: "twitter.com", segment: "O", category: "GEN", contentType: "T", organization: "TWTR"},
	{match: "x.com", segment: "O", category: "GEN", contentType: "T", organization: "TWTR"},
	{match: "news.ycombinator.com", segment: "T", category: "DEV", contentType: "N", organization: "YCOM"},
	{match: "npmjs.com", segment: "T", category: "DEV", contentType: "S", organization: "NPMJ"},
	{match: "spotify.com", segment: "O", category: "GEN", contentType: "P", organization: "SPOT"},
}

// urlPatternFallback classifies by URL substring matching alone, used when
// the LLM call fails outright (spec §4.3, scenario S6).
func urlPatternFallback(url string) Classification {
	lower := strings.ToLower(url)
	for _, rule := range fallbackRules {
		if strings.Contains(lower, rule.match) {
			return Classification{
				Segment:      rule.segment,
				Category:     rule.category,
				ContentType:  rule.contentType,
				Organization: rule.organization,
				Confidence:   fallbackConfidence,
				Reasoning:    "fallback",
				Fallback:     true,
			}
		}
	}
	return Classification{
		Segment:      DefaultSegment,
		Category:     DefaultCategory,
		ContentType:  DefaultContentType,
		Organization: DefaultOrganization,
		Confidence:   fallbackConfidence,
		Reasoning:    "fallback",
		Fallback:     true,
	}
}
