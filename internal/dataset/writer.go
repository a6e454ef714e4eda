package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// WriteJSON writes the documents as an indented JSON list.
func WriteJSON(w io.Writer, docs []models.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return nil
}

// WriteJSONL writes the documents as JSONL, one object per line.
func WriteJSONL(w io.Writer, docs []models.Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range docs {
		// Encode appends the trailing newline itself.
		if err := enc.Encode(&docs[i]); err != nil {
			return fmt.Errorf("failed to encode document %q: %w", docs[i].Document, err)
		}
	}
	return nil
}

// WriteJSONFile writes the documents as an indented JSON list to path.
func WriteJSONFile(path string, docs []models.Document) error {
	return writeFile(path, docs, WriteJSON)
}

// WriteJSONLFile writes the documents as JSONL to path.
func WriteJSONLFile(path string, docs []models.Document) error {
	return writeFile(path, docs, WriteJSONL)
}

func writeFile(path string, docs []models.Document, write func(io.Writer, []models.Document) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := write(f, docs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
