package model

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// Response is the common envelope of all endpoints
type Response struct {
	Code    int         `json:"code"`               // 0 on success
	Message string      `json:"message"`            // status message
	Data    interface{} `json:"data,omitempty"`     // payload, may be empty
	TraceID string      `json:"trace_id,omitempty"` // request trace id
}

// NewSuccessResponse wraps a payload in a success envelope
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// DatasetInfo describes one uploaded corpus file
type DatasetInfo struct {
	DatasetID     string    `json:"dataset_id"`      // dataset id
	FileName      string    `json:"filename"`        // original file name
	Status        string    `json:"status"`          // uploaded, ready or invalid
	DocumentCount int       `json:"document_count"`  // documents in the corpus
	ClaimCount    int       `json:"claim_count"`     // claim items across all documents
	NonClaimCount int       `json:"non_claim_count"` // non-claim items across all documents
	Error         string    `json:"error,omitempty"` // parse error for invalid files
	UploadedAt    time.Time `json:"uploaded_at"`     // upload time
}

// NewDatasetInfo converts a dataset record into its API shape
func NewDatasetInfo(f *models.DatasetFile) DatasetInfo {
	return DatasetInfo{
		DatasetID:     f.ID,
		FileName:      f.FileName,
		Status:        string(f.Status),
		DocumentCount: f.DocumentCount,
		ClaimCount:    f.ClaimCount,
		NonClaimCount: f.NonClaimCount,
		Error:         f.Error,
		UploadedAt:    f.UploadedAt,
	}
}

// DatasetListResponse is a paged dataset listing
type DatasetListResponse struct {
	Total    int64         `json:"total"`     // total records
	Page     int           `json:"page"`      // current page
	PageSize int           `json:"page_size"` // page size
	Datasets []DatasetInfo `json:"datasets"`  // records of this page
}

// DatasetDeleteResponse confirms a deletion
type DatasetDeleteResponse struct {
	Success   bool   `json:"success"`    // always true on 200
	DatasetID string `json:"dataset_id"` // removed dataset id
}

// SplitRunInfo describes one split run
type SplitRunInfo struct {
	RunID          string     `json:"run_id"`             // run id
	DatasetID      string     `json:"dataset_id"`         // source dataset
	Status         string     `json:"status"`             // pending, running, completed or failed
	TestSize       float64    `json:"test_size"`          // requested claim share
	KeepRatio      bool       `json:"keep_ratio"`         // ratio top-up requested
	Seed           int64      `json:"seed"`               // shuffle seed
	TrainDocs      int        `json:"train_docs"`         // documents routed to train
	TestDocs       int        `json:"test_docs"`          // documents routed to test
	TrainClaims    int        `json:"train_claims"`       // claims in train
	TestClaims     int        `json:"test_claims"`        // claims in test
	TrainNonClaims int        `json:"train_non_claims"`   // non-claims in train
	TestNonClaims  int        `json:"test_non_claims"`    // non-claims in test
	Artifacts      []string   `json:"artifacts"`          // downloadable output names
	TaskID         string     `json:"task_id,omitempty"`  // queue task for async runs
	Error          string     `json:"error,omitempty"`    // failure reason
	CreatedAt      time.Time  `json:"created_at"`         // creation time
	CompletedAt    *time.Time `json:"completed_at,omitempty"` // completion time
}

// NewSplitRunInfo converts a run record into its API shape
func NewSplitRunInfo(run *models.SplitRun) SplitRunInfo {
	info := SplitRunInfo{
		RunID:          run.ID,
		DatasetID:      run.DatasetID,
		Status:         string(run.Status),
		TestSize:       run.TestSize,
		KeepRatio:      run.KeepRatio,
		Seed:           run.Seed,
		TrainDocs:      run.TrainDocs,
		TestDocs:       run.TestDocs,
		TrainClaims:    run.TrainClaims,
		TestClaims:     run.TestClaims,
		TrainNonClaims: run.TrainNonClaims,
		TestNonClaims:  run.TestNonClaims,
		TaskID:         run.TaskID,
		Error:          run.Error,
		CreatedAt:      run.CreatedAt,
		CompletedAt:    run.CompletedAt,
		Artifacts:      []string{},
	}

	if len(run.OutputFiles) > 0 {
		var outputs map[string]string
		if err := json.Unmarshal(run.OutputFiles, &outputs); err == nil {
			for name := range outputs {
				info.Artifacts = append(info.Artifacts, name)
			}
			sort.Strings(info.Artifacts)
		}
	}

	return info
}

// SplitListResponse is a paged run listing
type SplitListResponse struct {
	Total    int64          `json:"total"`     // total records
	Page     int            `json:"page"`      // current page
	PageSize int            `json:"page_size"` // page size
	Runs     []SplitRunInfo `json:"runs"`      // records of this page
}

// SplitReportResponse carries the rendered operator summary
type SplitReportResponse struct {
	RunID  string `json:"run_id"` // run id
	Report string `json:"report"` // plain-text summary
}

// TaskInfoResponse describes a queued task
type TaskInfoResponse struct {
	TaskID    string      `json:"task_id"`          // task id
	Type      string      `json:"type"`             // task type
	Status    string      `json:"status"`           // queue status
	DatasetID string      `json:"dataset_id"`       // related dataset
	Progress  float64     `json:"progress"`         // coarse progress
	Result    interface{} `json:"result,omitempty"` // task result when completed
	Error     string      `json:"error,omitempty"`  // failure reason
}
