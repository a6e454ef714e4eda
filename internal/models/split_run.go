package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatasetStatus is the lifecycle state of an uploaded dataset file.
type DatasetStatus string

const (
	// DatasetStatusUploaded dataset stored, counts not yet computed
	DatasetStatusUploaded DatasetStatus = "uploaded"
	// DatasetStatusReady dataset parsed and summarized
	DatasetStatusReady DatasetStatus = "ready"
	// DatasetStatusInvalid dataset failed parsing or validation
	DatasetStatusInvalid DatasetStatus = "invalid"
)

// SplitStatus is the lifecycle state of a split run.
type SplitStatus string

const (
	// SplitStatusPending run created, waiting for execution
	SplitStatusPending SplitStatus = "pending"
	// SplitStatusRunning run is executing
	SplitStatusRunning SplitStatus = "running"
	// SplitStatusCompleted run finished and artifacts were written
	SplitStatusCompleted SplitStatus = "completed"
	// SplitStatusFailed run aborted with an error
	SplitStatusFailed SplitStatus = "failed"
)

// DatasetFile is the metadata record of an uploaded dataset.
type DatasetFile struct {
	ID            string         `gorm:"primaryKey"`         // dataset ID, primary key
	FileName      string         `gorm:"not null"`           // original file name
	FilePath      string         `gorm:"not null"`           // storage path
	FileSize      int64          `gorm:"not null"`           // size in bytes
	Status        DatasetStatus  `gorm:"not null;index"`     // lifecycle state
	DocumentCount int            `gorm:"not null;default:0"` // number of documents
	ClaimCount    int            `gorm:"not null;default:0"` // total claim items
	NonClaimCount int            `gorm:"not null;default:0"` // total non-claim items
	Error         string         `gorm:"type:text"`          // validation error, if any
	Metadata      datatypes.JSON `gorm:"type:json"`          // extra metadata
	UploadedAt    time.Time      `gorm:"not null;index"`     // upload time
	UpdatedAt     time.Time      `gorm:"not null"`           // last update time
}

// BeforeCreate sets timestamps before the record is inserted.
func (f *DatasetFile) BeforeCreate(tx *gorm.DB) (err error) {
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now()
	}
	f.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate refreshes the update timestamp.
func (f *DatasetFile) BeforeUpdate(tx *gorm.DB) (err error) {
	f.UpdatedAt = time.Now()
	return nil
}

// TableName pins the table name.
func (DatasetFile) TableName() string {
	return "dataset_files"
}

// SplitRun records one execution of the stratified partitioner: its
// parameters, the resulting assignment and the achieved counts.
type SplitRun struct {
	ID             string         `gorm:"primaryKey"`         // run ID, primary key
	DatasetID      string         `gorm:"not null;index"`     // source dataset
	Status         SplitStatus    `gorm:"not null;index"`     // lifecycle state
	TestSize       float64        `gorm:"not null"`           // target share of claims in test
	KeepRatio      bool           `gorm:"not null"`           // preserve the non-claim:claim ratio
	Seed           int64          `gorm:"not null"`           // shuffle seed
	TrainDocs      int            `gorm:"not null;default:0"` // documents in train
	TestDocs       int            `gorm:"not null;default:0"` // documents in test
	TrainClaims    int            `gorm:"not null;default:0"` // claims in train
	TestClaims     int            `gorm:"not null;default:0"` // claims in test
	TrainNonClaims int            `gorm:"not null;default:0"` // non-claims in train
	TestNonClaims  int            `gorm:"not null;default:0"` // non-claims in test
	TrainIDs       datatypes.JSON `gorm:"type:json"`          // train document ids, corpus order
	TestIDs        datatypes.JSON `gorm:"type:json"`          // test document ids, corpus order
	OutputFiles    datatypes.JSON `gorm:"type:json"`          // artifact name -> storage file id
	Error          string         `gorm:"type:text"`          // failure reason, if any
	TaskID         string         `gorm:"size:50;index"`      // queue task ID for async runs
	CreatedAt      time.Time      `gorm:"not null;index"`     // creation time
	UpdatedAt      time.Time      `gorm:"not null"`           // last update time
	CompletedAt    *time.Time     `gorm:"index"`              // completion time
}

// BeforeCreate sets timestamps before the record is inserted.
func (r *SplitRun) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes the update timestamp.
func (r *SplitRun) BeforeUpdate(tx *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName pins the table name.
func (SplitRun) TableName() string {
	return "split_runs"
}
