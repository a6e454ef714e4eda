package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

func sampleDocs() []models.Document {
	return []models.Document{
		{
			Document:         "news_0001.txt",
			NewsArticleTopic: "politics",
			Items: []models.Item{
				{ID: "news_0001_c1", Claim: label(true), BeginCharacter: 0, EndCharacter: 5, TextSegment: "claim"},
			},
		},
		{Document: "news_0002.txt", Items: []models.Item{}},
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleDocs()))

	assert.True(t, strings.HasPrefix(buf.String(), "["), "output should be a JSON list")

	docs, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "politics", docs[0].NewsArticleTopic)

	v, ok := docs[0].Items[0].IsClaim()
	assert.True(t, ok)
	assert.True(t, v)
}

func TestWriteJSONL_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleDocs()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2, "one JSON object per line")

	docs, err := Load(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "train.json")
	jsonlPath := filepath.Join(dir, "train.jsonl")

	require.NoError(t, WriteJSONFile(jsonPath, sampleDocs()))
	require.NoError(t, WriteJSONLFile(jsonlPath, sampleDocs()))

	for _, path := range []string{jsonPath, jsonlPath} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())

		docs, err := LoadFile(path)
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	}
}
