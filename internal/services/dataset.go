package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/cas"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/dataset"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/repository"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/storage"
)

// DatasetService manages uploaded corpus files: storing them,
// validating and counting their annotations, and serving their
// documents to the split service.
type DatasetService struct {
	storage storage.Storage
	repo    repository.DatasetRepository
	logger  *logrus.Logger
}

// DatasetOption configures the dataset service
type DatasetOption func(*DatasetService)

// NewDatasetService creates a dataset service
func NewDatasetService(store storage.Storage, opts ...DatasetOption) *DatasetService {
	srv := &DatasetService{
		storage: store,
		logger:  logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithDatasetLogger sets the logger
func WithDatasetLogger(logger *logrus.Logger) DatasetOption {
	return func(s *DatasetService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDatasetRepository sets the metadata repository
func WithDatasetRepository(repo repository.DatasetRepository) DatasetOption {
	return func(s *DatasetService) {
		s.repo = repo
	}
}

// Init makes sure required dependencies are set
func (s *DatasetService) Init() error {
	if s.repo == nil {
		s.repo = repository.NewDatasetRepository()
	}
	return nil
}

// UploadDataset stores a corpus file, parses it and records its
// per-label counts. A file that fails parsing is kept with status
// invalid so the error stays inspectable.
func (s *DatasetService) UploadDataset(ctx context.Context, reader io.Reader, filename string) (*models.DatasetFile, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, errors.New("filename cannot be empty")
	}

	// Buffer the upload so it can be both stored and parsed.
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	info, err := s.storage.Save(bytes.NewReader(content), filename)
	if err != nil {
		return nil, fmt.Errorf("failed to store dataset file: %w", err)
	}

	file := &models.DatasetFile{
		ID:       info.ID,
		FileName: filename,
		FilePath: info.Path,
		FileSize: info.Size,
		Status:   models.DatasetStatusUploaded,
	}

	docs, err := dataset.Load(bytes.NewReader(content))
	if err == nil {
		var corpus *dataset.Corpus
		corpus, err = dataset.Summarize(docs)
		if err == nil {
			file.Status = models.DatasetStatusReady
			file.DocumentCount = len(docs)
			file.ClaimCount = corpus.TotalClaims
			file.NonClaimCount = corpus.TotalNonClaims
		}
	}
	if err != nil {
		file.Status = models.DatasetStatusInvalid
		file.Error = err.Error()
	}

	if err := s.repo.Create(file); err != nil {
		return nil, fmt.Errorf("failed to record dataset: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"dataset_id": file.ID,
		"file_name":  file.FileName,
		"status":     file.Status,
		"documents":  file.DocumentCount,
		"claims":     file.ClaimCount,
		"non_claims": file.NonClaimCount,
	}).Info("Dataset uploaded")

	return file, nil
}

// ImportCasDirectory converts a directory of CAS JSON exports into a
// dataset and registers it like an upload.
func (s *DatasetService) ImportCasDirectory(ctx context.Context, dir string) (*models.DatasetFile, int, error) {
	if err := s.Init(); err != nil {
		return nil, 0, err
	}

	docs, err := cas.ConvertDir(dir, s.logger)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to convert CAS directory: %w", err)
	}

	var buf bytes.Buffer
	if err := dataset.WriteJSON(&buf, docs); err != nil {
		return nil, 0, fmt.Errorf("failed to serialize converted dataset: %w", err)
	}

	name := filepath.Base(filepath.Clean(dir)) + ".json"
	file, err := s.UploadDataset(ctx, &buf, name)
	if err != nil {
		return nil, 0, err
	}

	return file, len(docs), nil
}

// GetDataset fetches a dataset record
func (s *DatasetService) GetDataset(ctx context.Context, id string) (*models.DatasetFile, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// ListDatasets lists dataset records with pagination and filters
func (s *DatasetService) ListDatasets(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.DatasetFile, int64, error) {
	if err := s.Init(); err != nil {
		return nil, 0, err
	}
	return s.repo.List(offset, limit, filters)
}

// DeleteDataset removes the stored file and the metadata record
func (s *DatasetService) DeleteDataset(ctx context.Context, id string) error {
	if err := s.Init(); err != nil {
		return err
	}

	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	if err := s.storage.Delete(id); err != nil {
		// The file may already be gone; the record is authoritative.
		s.logger.WithError(err).WithField("dataset_id", id).Warn("Failed to delete stored dataset file")
	}

	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete dataset record: %w", err)
	}

	s.logger.WithField("dataset_id", id).Info("Dataset deleted")
	return nil
}

// LoadDocuments reads the stored corpus of a dataset back into memory
func (s *DatasetService) LoadDocuments(ctx context.Context, id string) ([]models.Document, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	file, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if file.Status != models.DatasetStatusReady {
		return nil, fmt.Errorf("dataset %s is not ready: status %s", id, file.Status)
	}

	reader, err := s.storage.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer reader.Close()

	docs, err := dataset.Load(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset file: %w", err)
	}
	return docs, nil
}
