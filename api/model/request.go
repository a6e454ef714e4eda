package model

import (
	"mime/multipart"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations installs custom binding validations.
// Called once from SetupRouter.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("testsize", validateTestSize)
	}
}

// validateTestSize accepts only the open interval (0, 1).
func validateTestSize(fl validator.FieldLevel) bool {
	val := fl.Field().Float()
	return val > 0 && val < 1
}

// PaginationRequest carries common paging parameters
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // page number, starting at 1
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // records per page
}

// GetPage returns the page number, defaulting to 1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize returns the page size, defaulting to 10 and capped at 100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// DatasetUploadRequest carries an uploaded corpus file
type DatasetUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // corpus file
}

// DatasetGetRequest identifies a dataset by path parameter
type DatasetGetRequest struct {
	ID string `uri:"id" binding:"required"` // dataset id
}

// DatasetListRequest filters the dataset listing
type DatasetListRequest struct {
	PaginationRequest
	Status    string     `form:"status" json:"status" binding:"omitempty,oneof=uploaded ready invalid"` // dataset status
	FileName  string     `form:"file_name" json:"file_name" binding:"omitempty"`                        // file name substring
	StartTime *time.Time `form:"start_time" json:"start_time" binding:"omitempty"`                      // uploaded after
	EndTime   *time.Time `form:"end_time" json:"end_time" binding:"omitempty"`                          // uploaded before
}

// DatasetDeleteRequest identifies a dataset to remove
type DatasetDeleteRequest struct {
	ID string `uri:"id" binding:"required"` // dataset id
}

// SplitCreateRequest requests a new split run
type SplitCreateRequest struct {
	DatasetID string  `json:"dataset_id" binding:"required"`          // dataset to split
	TestSize  float64 `json:"test_size" binding:"omitempty,testsize"` // claim share routed to test, defaults to 0.2
	KeepRatio bool    `json:"keep_ratio" binding:"omitempty"`         // preserve the global claim-doc ratio in test
	Seed      int64   `json:"seed" binding:"omitempty"`               // shuffle seed, defaults to 42
	Async     bool    `json:"async" binding:"omitempty"`              // enqueue instead of running inline
}

// SplitGetRequest identifies a split run by path parameter
type SplitGetRequest struct {
	ID string `uri:"id" binding:"required"` // run id
}

// SplitListRequest lists the runs of one dataset
type SplitListRequest struct {
	PaginationRequest
	DatasetID string `form:"dataset_id" binding:"required"` // dataset id
}

// ArtifactRequest identifies one output file of a run
type ArtifactRequest struct {
	ID   string `uri:"id" binding:"required"`                                                   // run id
	Name string `uri:"name" binding:"required,oneof=train.json test.json train.jsonl test.jsonl"` // artifact name
}

// TaskGetRequest identifies a queued task
type TaskGetRequest struct {
	ID string `uri:"id" binding:"required"` // task id
}
