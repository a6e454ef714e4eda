package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// Load reads a full dataset from r into a list of documents.
// The input is parsed as a JSON list first (a single top-level object is
// accepted and wrapped); anything else falls back to JSONL, one document
// per line, with line-numbered errors.
func Load(r io.Reader) ([]models.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("dataset input is empty")
	}

	// Try plain JSON first.
	switch trimmed[0] {
	case '[':
		var docs []models.Document
		if err := json.Unmarshal(trimmed, &docs); err == nil {
			return docs, nil
		}
	case '{':
		// A lone top-level object could be either a single document or
		// the first line of a JSONL file; only treat it as a single
		// document when the whole input parses as one.
		var doc models.Document
		if err := json.Unmarshal(trimmed, &doc); err == nil {
			return []models.Document{doc}, nil
		}
	}

	return loadJSONL(bytes.NewReader(trimmed))
}

// LoadFile loads a dataset from a JSON or JSONL file on disk.
func LoadFile(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	docs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// loadJSONL parses one document per non-empty line.
func loadJSONL(r io.Reader) ([]models.Document, error) {
	var docs []models.Document

	scanner := bufio.NewScanner(r)
	// Dataset lines carry full article texts; allow long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var doc models.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", lineNo, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents found in dataset")
	}
	return docs, nil
}
