package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("json list", func(t *testing.T) {
		input := `[
  {"document": "news_0001.txt", "items": [{"claim": true, "begin_character": 0, "end_character": 5, "text_segment": "claim"}]},
  {"document": "news_0002.txt", "items": []}
]`
		docs, err := Load(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "news_0001.txt", docs[0].Document)

		v, ok := docs[0].Items[0].IsClaim()
		assert.True(t, ok)
		assert.True(t, v)
	})

	t.Run("single top-level object", func(t *testing.T) {
		input := `{"document": "news_0001.txt", "items": []}`
		docs, err := Load(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "news_0001.txt", docs[0].Document)
	})

	t.Run("jsonl fallback", func(t *testing.T) {
		input := `{"document": "news_0001.txt", "items": [{"claim": false, "begin_character": 0, "end_character": 3, "text_segment": "abc"}]}
{"document": "news_0002.txt", "items": []}

{"document": "news_0003.txt", "items": []}`
		docs, err := Load(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})

	t.Run("non-boolean claim is tolerated", func(t *testing.T) {
		input := `[{"document": "news_0001.txt", "items": [{"claim": "yes", "begin_character": 0, "end_character": 1, "text_segment": "x"}]}]`
		docs, err := Load(strings.NewReader(input))
		require.NoError(t, err)

		_, ok := docs[0].Items[0].IsClaim()
		assert.False(t, ok, "non-boolean claim should be treated as unlabeled")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Load(strings.NewReader("   \n  "))
		assert.Error(t, err)
	})

	t.Run("invalid jsonl line is reported with its number", func(t *testing.T) {
		input := `{"document": "news_0001.txt", "items": []}
not json at all`
		_, err := Load(strings.NewReader(input))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "dataset.jsonl")
	content := `{"document": "news_0001.txt", "items": []}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	docs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
