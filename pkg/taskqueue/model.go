package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType identifies the kind of background job
type TaskType string

const (
	// TaskDatasetSplit runs the stratified train/test partitioner
	TaskDatasetSplit TaskType = "dataset_split"
	// TaskCasConvert converts a directory of CAS exports into a dataset
	TaskCasConvert TaskType = "cas_convert"
)

// TaskStatus is the lifecycle state of a queued task
type TaskStatus string

const (
	// StatusPending waiting for a worker
	StatusPending TaskStatus = "pending"
	// StatusProcessing picked up by a worker
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted finished successfully
	StatusCompleted TaskStatus = "completed"
	// StatusFailed finished with an error
	StatusFailed TaskStatus = "failed"
)

// Task is the queued job record
type Task struct {
	ID          string          `json:"id"`           // task identifier
	Type        TaskType        `json:"type"`         // task type
	DatasetID   string          `json:"dataset_id"`   // related dataset ID
	Status      TaskStatus      `json:"status"`       // lifecycle state
	Payload     json.RawMessage `json:"payload"`      // type-specific payload
	Result      json.RawMessage `json:"result"`       // type-specific result
	Error       string          `json:"error"`        // error message on failure
	CreatedAt   time.Time       `json:"created_at"`   // creation time
	UpdatedAt   time.Time       `json:"updated_at"`   // last update time
	StartedAt   *time.Time      `json:"started_at"`   // processing start time
	CompletedAt *time.Time      `json:"completed_at"` // completion time
	Attempts    int             `json:"attempts"`     // attempts so far
	MaxRetries  int             `json:"max_retries"`  // retry limit
}

// DatasetSplitPayload is the dataset_split task payload
type DatasetSplitPayload struct {
	RunID     string  `json:"run_id"`     // split run record to execute
	DatasetID string  `json:"dataset_id"` // dataset to partition
	TestSize  float64 `json:"test_size"`  // target share of claims in test
	KeepRatio bool    `json:"keep_ratio"` // preserve the non-claim:claim ratio
	Seed      int64   `json:"seed"`       // shuffle seed
}

// DatasetSplitResult is the dataset_split task result
type DatasetSplitResult struct {
	RunID       string `json:"run_id"`       // executed split run
	TrainDocs   int    `json:"train_docs"`   // documents in train
	TestDocs    int    `json:"test_docs"`    // documents in test
	TrainClaims int    `json:"train_claims"` // claims in train
	TestClaims  int    `json:"test_claims"`  // claims in test
	Error       string `json:"error"`        // error message, if any
}

// CasConvertPayload is the cas_convert task payload
type CasConvertPayload struct {
	SourceDir  string `json:"source_dir"`  // directory of CAS JSON exports
	OutputPath string `json:"output_path"` // dataset file to write
}

// CasConvertResult is the cas_convert task result
type CasConvertResult struct {
	DocumentCount int    `json:"document_count"` // converted documents
	OutputPath    string `json:"output_path"`    // written dataset file
	Error         string `json:"error"`          // error message, if any
}
