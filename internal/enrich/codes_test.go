package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode_UppercasesAndUnderscoresSpaces(t *testing.T) {
	got, ok := normalizeCode("open ai")
	assert.True(t, ok)
	assert.Equal(t, "OPEN_AI", got)
}

func TestNormalizeCode_StripsDisallowedCharacters(t *testing.T) {
	got, ok := normalizeCode("go-lang!!v2")
	assert.True(t, ok)
	assert.Equal(t, "GOLANGV2", got)
}

func TestNormalizeCode_RejectsTooShort(t *testing.T) {
	_, ok := normalizeCode("x")
	assert.False(t, ok)
}

func TestNormalizeCode_TruncatesTooLong(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "a"
	}
	got, ok := normalizeCode(long)
	assert.True(t, ok)
	assert.Len(t, got, maxCodeLen)
}

func TestNormalizeCodes_DropsUnknownType(t *testing.T) {
	codes := normalizeCodes([]rawMetadataCode{{Type: "BOGUS", Code: "FOO", Confidence: 0.9}}, "enrich")
	assert.Empty(t, codes)
}

func TestNormalizeCodes_CapsAtFivePerTypeByConfidence(t *testing.T) {
	var raw []rawMetadataCode
	for i := 0; i < 8; i++ {
		raw = append(raw, rawMetadataCode{Type: "TEC", Code: "code" + string(rune('a'+i)), Confidence: float64(i) / 10})
	}
	codes := normalizeCodes(raw, "enrich")
	assert.Len(t, codes, maxCodesPerType)
}

func TestNormalizeCodes_ClampsConfidenceToUnitRange(t *testing.T) {
	codes := normalizeCodes([]rawMetadataCode{{Type: "TEC", Code: "go", Confidence: 5}}, "enrich")
	assert.Equal(t, 1.0, codes[0].Confidence)
}

func TestParentPath_StripsTrailingSegment(t *testing.T) {
	assert.Equal(t, "A.LLM.T.2", parentPath("A.LLM.T.2.1"))
	assert.Equal(t, "", parentPath("A"))
}

func TestFirstTag_EmptyWhenNoTags(t *testing.T) {
	assert.Equal(t, "", firstTag(nil))
	assert.Equal(t, "TEC:GO", firstTag([]string{"TEC:GO", "CON:SDK"}))
}
