package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/database"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// splitRepository is the gorm-backed SplitRepository
type splitRepository struct {
	db *gorm.DB
}

// NewSplitRepository creates a split repository on the global connection
func NewSplitRepository() SplitRepository {
	return &splitRepository{db: database.MustDB()}
}

// NewSplitRepositoryWithDB creates a split repository on the given connection
func NewSplitRepositoryWithDB(db *gorm.DB) SplitRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &splitRepository{db: db}
}

// Create creates a split run record
func (r *splitRepository) Create(run *models.SplitRun) error {
	if run.ID == "" {
		return errors.New("split run ID cannot be empty")
	}
	if run.DatasetID == "" {
		return errors.New("split run dataset ID cannot be empty")
	}
	return r.db.Create(run).Error
}

// Update updates a split run record
func (r *splitRepository) Update(run *models.SplitRun) error {
	if run.ID == "" {
		return errors.New("split run ID cannot be empty")
	}
	return r.db.Save(run).Error
}

// GetByID fetches a split run by id
func (r *splitRepository) GetByID(id string) (*models.SplitRun, error) {
	var run models.SplitRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrSplitRunNotFound, id)
		}
		return nil, err
	}
	return &run, nil
}

// ListByDataset lists the split runs of one dataset, newest first
func (r *splitRepository) ListByDataset(datasetID string, offset, limit int) ([]*models.SplitRun, int64, error) {
	var runs []*models.SplitRun
	var total int64

	query := r.db.Model(&models.SplitRun{}).Where("dataset_id = ?", datasetID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// UpdateStatus updates the run status, stamping the completion time on
// terminal states
func (r *splitRepository) UpdateStatus(id string, status models.SplitStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	if status == models.SplitStatusCompleted || status == models.SplitStatusFailed {
		now := time.Now()
		updates["completed_at"] = &now
	}

	return r.db.Model(&models.SplitRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}
