package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nodecurio/curator/internal/llmclient"
	"github.com/nodecurio/curator/internal/logging"
)

// Classifier is the Phase-1 Classifier (C4).
type Classifier struct {
	llm   *llmclient.Client
	cache *cache
}

// New constructs a Classifier with a cache TTL (spec §4.3 default 1 hour).
func New(llm *llmclient.Client, cacheTTL time.Duration) *Classifier {
	return &Classifier{llm: llm, cache: newCache(cacheTTL)}
}

// Classify runs classify(extracted) → {segment, category, contentType,
// organization, confidence, reasoning} per spec §4.3, using the cache
// unless forceRefresh is set, and falling back to URL-pattern matching on
// any LLM failure.
func (c *Classifier) Classify(ctx context.Context, canonicalURL string, in Input, forceRefresh bool) Classification {
	if !forceRefresh {
		if cached, ok := c.cache.get(canonicalURL); ok {
			cached.FromCache = true
			return cached
		}
	}

	result, err := c.llm.GenerateJSON(ctx, "classify", systemPrompt(), userPrompt(in), responseSchema())
	var classification Classification
	if err != nil {
		logging.ClassifyWarn("llm classify failed for %s, using url-pattern fallback: %v", canonicalURL, err)
		classification = urlPatternFallback(canonicalURL)
	} else {
		var raw rawOutput
		if jsonErr := json.Unmarshal(result.JSON, &raw); jsonErr != nil {
			logging.ClassifyWarn("llm classify returned unparseable json for %s: %v", canonicalURL, jsonErr)
			classification = urlPatternFallback(canonicalURL)
		} else {
			classification = validate(raw)
		}
	}

	c.cache.set(canonicalURL, classification)
	logging.Classify("classified %s as %s.%s.%s org=%s confidence=%.2f fallback=%v",
		canonicalURL, classification.Segment, classification.Category, classification.ContentType,
		classification.Organization, classification.Confidence, classification.Fallback)
	return classification
}

// Invalidate drops any cached classification for a canonical URL, used
// when a node is force-refreshed.
func (c *Classifier) Invalidate(canonicalURL string) {
	c.cache.invalidate(canonicalURL)
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a content classifier. Classify the given content into exactly one segment, one category within that segment, one content type, and one 4-letter organization code.\n\n")
	b.WriteString("Segments (choose exactly one letter):\n")
	for code, desc := range Segments {
		fmt.Fprintf(&b, "  %s: %s\n", code, desc)
	}
	b.WriteString("\nCategories by segment (choose one belonging to the chosen segment):\n")
	for seg, cats := range Categories {
		fmt.Fprintf(&b, "  %s:\n", seg)
		for code, desc := range cats {
			fmt.Fprintf(&b, "    %s: %s\n", code, desc)
		}
	}
	b.WriteString("\nContent types (choose exactly one letter):\n")
	for code, desc := range ContentTypes {
		fmt.Fprintf(&b, "  %s: %s\n", code, desc)
	}
	b.WriteString("\nOrganization is a 4 uppercase letter (or underscore) code identifying the producing company or platform, e.g. GHUB for GitHub, OAIA for OpenAI. If unknown, use UNKN.\n")
	b.WriteString("Respond with strict JSON matching the schema: {segment, category, contentType, organization, confidence, reasoning}. reasoning is optional and at most 200 characters.\n")
	return b.String()
}

func userPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", in.URL)
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	fmt.Fprintf(&b, "Domain: %s\n", in.Domain)
	if in.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", in.Description)
	}
	if in.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", in.Author)
	}
	if in.SiteName != "" {
		fmt.Fprintf(&b, "Site: %s\n", in.SiteName)
	}
	if excerpt := in.truncatedExcerpt(); excerpt != "" {
		fmt.Fprintf(&b, "Excerpt: %s\n", excerpt)
	}
	return b.String()
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"segment":      {Type: genai.TypeString},
			"category":     {Type: genai.TypeString},
			"contentType":  {Type: genai.TypeString},
			"organization": {Type: genai.TypeString},
			"confidence":   {Type: genai.TypeNumber},
			"reasoning":    {Type: genai.TypeString},
		},
		Required: []string{"segment", "category", "contentType", "organization", "confidence"},
	}
}
