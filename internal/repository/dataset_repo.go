package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/database"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// datasetRepository is the gorm-backed DatasetRepository
type datasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository creates a dataset repository on the global connection
func NewDatasetRepository() DatasetRepository {
	return &datasetRepository{db: database.MustDB()}
}

// NewDatasetRepositoryWithDB creates a dataset repository on the given connection
func NewDatasetRepositoryWithDB(db *gorm.DB) DatasetRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &datasetRepository{db: db}
}

// Create creates a dataset file record
func (r *datasetRepository) Create(file *models.DatasetFile) error {
	if file.ID == "" {
		return errors.New("dataset ID cannot be empty")
	}
	return r.db.Create(file).Error
}

// Update updates a dataset file record
func (r *datasetRepository) Update(file *models.DatasetFile) error {
	if file.ID == "" {
		return errors.New("dataset ID cannot be empty")
	}
	return r.db.Save(file).Error
}

// GetByID fetches a dataset file by id
func (r *datasetRepository) GetByID(id string) (*models.DatasetFile, error) {
	var file models.DatasetFile
	err := r.db.Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrDatasetNotFound, id)
		}
		return nil, err
	}
	return &file, nil
}

// List lists dataset files with pagination and filters
func (r *datasetRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.DatasetFile, int64, error) {
	var files []*models.DatasetFile
	var total int64

	query := r.db.Model(&models.DatasetFile{})

	if filters != nil {
		if status, ok := filters["status"]; ok {
			switch s := status.(type) {
			case models.DatasetStatus:
				query = query.Where("status = ?", string(s))
			case string:
				if s != "" {
					query = query.Where("status = ?", s)
				}
			}
		}

		if fileName, ok := filters["file_name"].(string); ok && fileName != "" {
			query = query.Where("file_name LIKE ?", "%"+fileName+"%")
		}

		if startTime, ok := filters["start_time"].(string); ok && startTime != "" {
			query = query.Where("uploaded_at >= ?", startTime)
		}
		if endTime, ok := filters["end_time"].(string); ok && endTime != "" {
			query = query.Where("uploaded_at <= ?", endTime)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("uploaded_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

// Delete removes a dataset file together with its split runs
func (r *datasetRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ?", id).Delete(&models.SplitRun{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.DatasetFile{}).Error
	})
}

// UpdateStatus updates the dataset status and error message
func (r *datasetRepository) UpdateStatus(id string, status models.DatasetStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}

	return r.db.Model(&models.DatasetFile{}).
		Where("id = ?", id).
		Updates(updates).Error
}
