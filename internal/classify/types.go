package classify

import "regexp"

// Input is what the classifier reasons over (spec §4.3: "URL, title,
// domain, optional description/author/siteName, optional content excerpt
// truncated to 1500 characters").
type Input struct {
	URL          string
	Title        string
	Domain       string
	Description  string
	Author       string
	SiteName     string
	ContentExcerpt string
}

const excerptMaxChars = 1500
const reasoningMaxChars = 200

func (in Input) truncatedExcerpt() string {
	if len(in.ContentExcerpt) <= excerptMaxChars {
		return in.ContentExcerpt
	}
	return in.ContentExcerpt[:excerptMaxChars]
}

// Classification is the classifier's validated output.
type Classification struct {
	Segment     string
	Category    string
	ContentType string
	Organization string
	Confidence  float64
	Reasoning   string
	FromCache   bool
	Fallback    bool
}

// rawOutput is the shape requested from the LLM before validation/clamping.
type rawOutput struct {
	Segment      string  `json:"segment"`
	Category     string  `json:"category"`
	ContentType  string  `json:"contentType"`
	Organization string  `json:"organization"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

var organizationPattern = regexp.MustCompile(`^[A-Z_]{4}$`)

// validate applies spec §4.3's validation policy: any field outside its
// allowed set is replaced by the safe default; confidence is clamped into
// [0,1]; category is checked against the chosen segment and coerced to OTH
// on mismatch; reasoning is truncated to 200 characters.
func validate(raw rawOutput) Classification {
	c := Classification{
		Segment:      raw.Segment,
		Category:     raw.Category,
		ContentType:  raw.ContentType,
		Organization: raw.Organization,
		Confidence:   raw.Confidence,
		Reasoning:    raw.Reasoning,
	}

	if !isValidSegment(c.Segment) {
		c.Segment = DefaultSegment
	}
	if !isValidContentType(c.ContentType) {
		c.ContentType = DefaultContentType
	}
	if !isValidCategoryForSegment(c.Segment, c.Category) {
		c.Category = DefaultCategory
	}
	if !organizationPattern.MatchString(c.Organization) {
		c.Organization = DefaultOrganization
	}

	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}

	if len(c.Reasoning) > reasoningMaxChars {
		c.Reasoning = c.Reasoning[:reasoningMaxChars]
	}

	return c
}
