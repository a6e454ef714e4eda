package repository

import "github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"

// DatasetRepository stores dataset file metadata
type DatasetRepository interface {
	// Create creates a dataset file record
	Create(file *models.DatasetFile) error

	// Update updates a dataset file record
	Update(file *models.DatasetFile) error

	// GetByID fetches a dataset file by id
	GetByID(id string) (*models.DatasetFile, error)

	// List lists dataset files with pagination and filters
	List(offset, limit int, filters map[string]interface{}) ([]*models.DatasetFile, int64, error)

	// Delete removes a dataset file and its split runs
	Delete(id string) error

	// UpdateStatus updates the dataset status and counters
	UpdateStatus(id string, status models.DatasetStatus, errorMsg string) error
}

// SplitRepository stores split run records
type SplitRepository interface {
	// Create creates a split run record
	Create(run *models.SplitRun) error

	// Update updates a split run record
	Update(run *models.SplitRun) error

	// GetByID fetches a split run by id
	GetByID(id string) (*models.SplitRun, error)

	// ListByDataset lists the split runs of one dataset
	ListByDataset(datasetID string, offset, limit int) ([]*models.SplitRun, int64, error)

	// UpdateStatus updates the run status and error message
	UpdateStatus(id string, status models.SplitStatus, errorMsg string) error
}
