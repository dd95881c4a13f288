// Package extract implements the Extractor Registry (C2) and Extractors
// (C3): content-type routing over a fetched HTTP body, producing a
// normalized extracted-content contract (spec §4.2).
package extract

import "context"

// Content is the result of C3 (spec §4.2's "Extracted contract").
type Content struct {
	Title           string
	Description     string
	Author          string
	SiteName        string
	FaviconURL      string
	ImageURL        string
	MainContentMD   string
	WordCount       int
	Language        string
	ContentTypeHint string // one of T, A, V, P, R, G, S, C, I, N, K, U
	TypeSpecific    map[string]any
	ExtractorName    string
	ExtractorVersion string
}

// Extractor is the C3 capability set: name/version/priority/canHandle/extract
// (spec §4.2, design note "Dynamic dispatch / extractor plugins").
type Extractor interface {
	Name() string
	Version() string
	Priority() int
	CanHandle(canonicalURL string) bool
	Extract(ctx context.Context, canonicalURL string, body []byte, contentType string) (*Content, error)
}

// FetchResult is what the HTTP fetch stage hands to an Extractor.
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
}
