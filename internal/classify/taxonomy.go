// Package classify implements the Phase-1 Classifier (C4): a fast,
// cached LLM call that assigns a segment/category/contentType/organization
// to freshly extracted content, falling back to URL-pattern heuristics
// when the LLM is unavailable (spec §4.3).
package classify

// DefaultSegment, DefaultCategory, DefaultContentType and DefaultOrganization
// are the safe defaults substituted for any classifier output outside its
// allowed set (spec §4.3).
const (
	DefaultSegment     = "T"
	DefaultCategory     = "OTH"
	DefaultContentType  = "A"
	DefaultOrganization = "UNKN"
)

// Segments is the fixed 10-letter segment set (spec §4.3/glossary).
var Segments = map[string]string{
	"T": "Technology & Engineering",
	"A": "AI & Machine Learning",
	"B": "Business & Strategy",
	"S": "Science & Research",
	"H": "Health & Medicine",
	"F": "Finance & Economics",
	"E": "Education & Learning",
	"D": "Design & Product",
	"G": "Government & Policy",
	"O": "Other & General",
}

// Categories maps each segment to its fixed 3-letter category set. Every
// segment's set includes OTH, the coercion target on category/segment
// mismatch (spec §4.3, §8 invariant 3).
var Categories = map[string]map[string]string{
	"T": {"DEV": "Developer Tools", "SEC": "Security", "CLD": "Cloud & Infra", "SRE": "Site Reliability", "OTH": "Other"},
	"A": {"LLM": "Large Language Models", "VIS": "Computer Vision", "NLP": "Natural Language", "AGT": "Agents", "OTH": "Other"},
	"B": {"MKT": "Marketing", "OPS": "Operations", "SAL": "Sales", "STR": "Strategy", "OTH": "Other"},
	"S": {"PHY": "Physics", "BIO": "Biology", "CHM": "Chemistry", "RES": "Research", "OTH": "Other"},
	"H": {"CLN": "Clinical", "PHM": "Pharma", "MEN": "Mental Health", "FIT": "Fitness", "OTH": "Other"},
	"F": {"INV": "Investing", "BNK": "Banking", "TAX": "Tax", "CRY": "Crypto", "OTH": "Other"},
	"E": {"K12": "K-12", "HED": "Higher Ed", "MOO": "MOOCs", "SKL": "Skills", "OTH": "Other"},
	"D": {"UXD": "UX Design", "GFX": "Graphics", "ARC": "Architecture", "PRD": "Product", "OTH": "Other"},
	"G": {"LAW": "Law", "REG": "Regulation", "POL": "Policy", "INT": "International", "OTH": "Other"},
	"O": {"GEN": "General", "MSC": "Misc", "NWS": "News", "OTH": "Other"},
}

// ContentTypes is the fixed 12-letter content-type set shared with the
// extractor's type-hint output (spec §4.2/§4.3).
var ContentTypes = map[string]string{
	"T": "Tweet/Thread",
	"A": "Article",
	"V": "Video",
	"P": "Podcast",
	"R": "Repository",
	"G": "Guide/Documentation",
	"S": "Software/Service",
	"C": "Course",
	"I": "Image",
	"N": "News",
	"K": "Book",
	"U": "Unknown/Other",
}

func isValidSegment(s string) bool {
	_, ok := Segments[s]
	return ok
}

func isValidCategoryForSegment(segment, category string) bool {
	cats, ok := Categories[segment]
	if !ok {
		return false
	}
	_, ok = cats[category]
	return ok
}

func isValidContentType(ct string) bool {
	_, ok := ContentTypes[ct]
	return ok
}
