package storage

import (
	"io"
)

// FileInfo describes a stored file
type FileInfo struct {
	ID       string // unique file identifier
	Name     string // original file name
	Size     int64  // size in bytes
	MimeType string // MIME type, best effort
	Path     string // storage path, implementation specific
}

// Storage is the artifact store for uploaded corpora and split
// outputs. Implementations exist for the local filesystem and MinIO.
type Storage interface {
	// Save stores a file and returns its info
	Save(reader io.Reader, filename string) (FileInfo, error)

	// Get fetches a file's content
	Get(id string) (io.ReadCloser, error)

	// Delete removes a file
	Delete(id string) error

	// List lists all stored files
	List() ([]FileInfo, error)

	// Exists reports whether a file exists
	Exists(id string) (bool, error)
}

// Factory builds a storage backend from its configuration
type Factory func(cfg interface{}) (Storage, error)
