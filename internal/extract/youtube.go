package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// youtubeExtractor recognizes youtube.com/watch and youtu.be links and
// pulls title/channel/duration out of the page's meta tags (spec §4.2:
// "type-specific payload (e.g., ... video duration)").
type youtubeExtractor struct{}

func newYouTubeExtractor() *youtubeExtractor { return &youtubeExtractor{} }

func (y *youtubeExtractor) Name() string    { return "youtube-video" }
func (y *youtubeExtractor) Version() string { return "1.0.0" }
func (y *youtubeExtractor) Priority() int   { return 50 }

func (y *youtubeExtractor) CanHandle(canonicalURL string) bool {
	return strings.Contains(canonicalURL, "youtube.com/watch") || strings.Contains(canonicalURL, "youtu.be/")
}

func (y *youtubeExtractor) Extract(_ context.Context, _ string, body []byte, _ string) (*Content, error) {
	text := string(body)
	title := extractMetaContent(text, "og:title")
	description := extractMetaContent(text, "og:description")
	image := extractMetaContent(text, "og:image")
	channel := extractMetaContent(text, "og:video:tag")
	durationSeconds := extractDurationSeconds(text)

	return &Content{
		Title:           title,
		Description:     description,
		SiteName:        "YouTube",
		ImageURL:        image,
		Author:          channel,
		MainContentMD:   description,
		WordCount:       len(strings.Fields(description)),
		Language:        "en",
		ContentTypeHint: "V",
		TypeSpecific: map[string]any{
			"durationSeconds": durationSeconds,
		},
		ExtractorName:    y.Name(),
		ExtractorVersion: y.Version(),
	}, nil
}

var durationPattern = regexp.MustCompile(`"lengthSeconds":"(\d+)"`)

func extractDurationSeconds(text string) int {
	m := durationPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
