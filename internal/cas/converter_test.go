package cas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleCAS builds a minimal INCEpTION CAS export. The sofa text lays
// out as:
//
//	0..8    "politics" style topic span (not part of the claims)
//	10..20  publication time
//	22..40  claim one
//	42..60  non-claim
const sampleText = "topicmeta 2024-03-01 the claim sentence. a non-claim span."

func sampleCAS(t *testing.T) []byte {
	t.Helper()

	export := map[string]interface{}{
		"%FEATURE_STRUCTURES": []map[string]interface{}{
			{"%TYPE": "uima.cas.Sofa", "sofaString": sampleText},
			{
				"%TYPE":         "de.tudarmstadt.ukp.dkpro.core.api.metadata.type.DocumentMetaData",
				"documentTitle": "news_0001.txt",
			},
			{"%TYPE": "custom.Span", "Metadata": "News Article Topic", "categoria": "politics"},
			{"%TYPE": "custom.Span", "Metadata": "Publication Time", "begin": 10, "end": 20},
			{"%TYPE": "custom.Span", "label": "Claim", "begin": 21, "end": 40},
			{"%TYPE": "custom.Span", "label": "Claim span", "begin": 25, "end": 30},
			{"%TYPE": "custom.Span", "label": "Claimer", "begin": 0, "end": 5},
			{"%TYPE": "custom.Span", "label": "Non-claim", "begin": 41, "end": 58},
		},
	}

	data, err := json.Marshal(export)
	require.NoError(t, err)
	return data
}

func TestConvert(t *testing.T) {
	doc, err := Convert(sampleCAS(t))
	require.NoError(t, err)

	assert.Equal(t, "news_0001.txt", doc.Document)
	assert.Equal(t, "politics", doc.NewsArticleTopic)
	assert.Equal(t, "2024-03-01", doc.PublicationTime)
	require.Len(t, doc.Items, 2)

	// Items are sorted by begin offset; the claim starts first.
	claim := doc.Items[0]
	v, ok := claim.IsClaim()
	require.True(t, ok)
	assert.True(t, v)
	assert.Equal(t, "news_0001_c1", claim.ID)
	assert.Equal(t, 21, claim.BeginCharacter)
	assert.Equal(t, sampleText[21:40], claim.TextSegment)
	assert.Equal(t, "politics", claim.ClaimTopic, "claim topic should fall back to the article topic")
	assert.NotNil(t, claim.ClaimSpan, "overlapping claim span should be attached")
	assert.Nil(t, claim.ClaimObject, "no claim object annotated")
	assert.NotEqual(t, json.RawMessage(`[]`), claim.Claimer, "document-level claimer should be attached")
	assert.Equal(t, json.RawMessage(`""`), claim.Time, "no time annotation yields the empty-string placeholder")

	nonClaim := doc.Items[1]
	v, ok = nonClaim.IsClaim()
	require.True(t, ok)
	assert.False(t, v)
	assert.Equal(t, "news_0001_c2", nonClaim.ID)
	assert.Empty(t, nonClaim.ClaimTopic)
}

func TestConvert_NonASCIIOffsets(t *testing.T) {
	// Annotation offsets count characters, and accented runes before a
	// span must not shift or truncate it.
	text := "Nas eleições de março: 2024-03-01. Isto é um claim. Não é um claim."

	charAt := func(sub string) int {
		idx := strings.Index(text, sub)
		require.GreaterOrEqual(t, idx, 0, "fixture substring %q not found", sub)
		return len([]rune(text[:idx]))
	}
	charEnd := func(sub string) int {
		return charAt(sub) + len([]rune(sub))
	}

	pubTime := "2024-03-01"
	claim := "Isto é um claim."
	nonClaim := "Não é um claim."

	export := map[string]interface{}{
		"%FEATURE_STRUCTURES": []map[string]interface{}{
			{"%TYPE": "uima.cas.Sofa", "sofaString": text},
			{
				"%TYPE":         "de.tudarmstadt.ukp.dkpro.core.api.metadata.type.DocumentMetaData",
				"documentTitle": "news_0002.txt",
			},
			{"%TYPE": "custom.Span", "Metadata": "News Article Topic", "categoria": "eleições"},
			{"%TYPE": "custom.Span", "Metadata": "Publication Time", "begin": charAt(pubTime), "end": charEnd(pubTime)},
			{"%TYPE": "custom.Span", "label": "Claim", "begin": charAt(claim), "end": charEnd(claim)},
			{"%TYPE": "custom.Span", "label": "Non-claim", "begin": charAt(nonClaim), "end": charEnd(nonClaim)},
		},
	}
	data, err := json.Marshal(export)
	require.NoError(t, err)

	doc, err := Convert(data)
	require.NoError(t, err)

	assert.Equal(t, "eleições", doc.NewsArticleTopic)
	assert.Equal(t, pubTime, doc.PublicationTime)
	require.Len(t, doc.Items, 2)

	assert.Equal(t, claim, doc.Items[0].TextSegment)
	assert.Equal(t, charAt(claim), doc.Items[0].BeginCharacter)
	assert.Equal(t, nonClaim, doc.Items[1].TextSegment)

	for _, item := range doc.Items {
		assert.True(t, utf8.ValidString(item.TextSegment), "segment %q must be valid UTF-8", item.TextSegment)
	}
}

func TestConvert_SingleSpanFoldsToObject(t *testing.T) {
	doc, err := Convert(sampleCAS(t))
	require.NoError(t, err)

	// Exactly one overlapping claim span: the value must be a single
	// object, not a one-element list.
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(doc.Items[0].ClaimSpan, &obj))
	assert.Equal(t, sampleText[25:30], obj["text"])
}

func TestConvert_Errors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		_, err := Convert([]byte("not json"))
		assert.Error(t, err)
	})

	t.Run("missing sofa", func(t *testing.T) {
		data, _ := json.Marshal(map[string]interface{}{
			"%FEATURE_STRUCTURES": []map[string]interface{}{
				{"%TYPE": "de.tudarmstadt.ukp.dkpro.core.api.metadata.type.DocumentMetaData", "documentTitle": "x.txt"},
			},
		})
		_, err := Convert(data)
		assert.ErrorContains(t, err, "uima.cas.Sofa")
	})

	t.Run("missing metadata", func(t *testing.T) {
		data, _ := json.Marshal(map[string]interface{}{
			"%FEATURE_STRUCTURES": []map[string]interface{}{
				{"%TYPE": "uima.cas.Sofa", "sofaString": "text"},
			},
		})
		_, err := Convert(data)
		assert.ErrorContains(t, err, "DocumentMetaData")
	})
}

func TestConvertDir(t *testing.T) {
	dir := t.TempDir()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), sampleCAS(t), 0644))

	second := sampleCAS(t)
	second = []byte(string(second)) // independent copy
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), second, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	docs, err := ConvertDir(dir, logger)
	require.NoError(t, err)
	assert.Len(t, docs, 2, "only .json files should be converted")

	t.Run("empty directory", func(t *testing.T) {
		_, err := ConvertDir(t.TempDir(), logger)
		assert.ErrorContains(t, err, "no .json files")
	})
}
