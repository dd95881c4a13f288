package enrich

import (
	"sort"
	"strings"

	"github.com/nodecurio/curator/internal/store"
)

// maxCodesPerType caps how many metadata codes of one type survive
// normalization (spec §4.7: "<= 5 per type").
const maxCodesPerType = 5

// minCodeLen/maxCodeLen bound a normalized code's length (spec §4.7:
// "max 50 chars; min 2").
const (
	minCodeLen = 2
	maxCodeLen = 50
)

// rawMetadataCode is one typed tag as the LLM returns it, before
// normalization and confidence-based capping.
type rawMetadataCode struct {
	Type       string
	Code       string
	Confidence float64
}

// normalizeCodes applies spec §4.7's code normalization rules (uppercase,
// spaces become underscores, strip anything not alphanumeric/underscore,
// length-bound) and keeps only the top maxCodesPerType codes per type by
// confidence, dropping codes whose type isn't in the fixed registry.
func normalizeCodes(raw []rawMetadataCode, source string) []store.MetadataCode {
	byType := make(map[string][]store.MetadataCode)
	for _, r := range raw {
		if !store.MetadataTypes[r.Type] {
			continue
		}
		code, ok := normalizeCode(r.Code)
		if !ok {
			continue
		}
		confidence := r.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		byType[r.Type] = append(byType[r.Type], store.MetadataCode{
			Type:       r.Type,
			Code:       code,
			Confidence: confidence,
			Source:     source,
		})
	}

	var out []store.MetadataCode
	for mtype, codes := range byType {
		sort.SliceStable(codes, func(i, j int) bool { return codes[i].Confidence > codes[j].Confidence })
		if len(codes) > maxCodesPerType {
			codes = codes[:maxCodesPerType]
		}
		out = append(out, codes...)
		_ = mtype
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// normalizeCode uppercases a raw code string, replaces runs of whitespace
// with a single underscore, and drops any remaining character outside
// [A-Z0-9_]. Returns ok=false if the result falls outside the length
// bound.
func normalizeCode(raw string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	fields := strings.Fields(upper)
	joined := strings.Join(fields, "_")

	var b strings.Builder
	for _, r := range joined {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) > maxCodeLen {
		code = code[:maxCodeLen]
	}
	if len(code) < minCodeLen {
		return "", false
	}
	return code, true
}
