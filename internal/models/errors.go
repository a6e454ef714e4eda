package models

import "errors"

var (
	// ErrMissingDocumentID indicates a dataset entry without a document identifier
	ErrMissingDocumentID = errors.New("document has no identifier")

	// ErrDuplicateDocumentID indicates two dataset entries sharing an identifier
	ErrDuplicateDocumentID = errors.New("duplicate document identifier")

	// ErrNoClaims indicates a dataset with zero claim items; a claim-based
	// test split is undefined for such input
	ErrNoClaims = errors.New("dataset contains zero claims")

	// ErrSplitLeakage indicates documents assigned to both splits
	ErrSplitLeakage = errors.New("document leakage: documents assigned to both splits")

	// ErrSplitCoverage indicates an assignment that does not cover every document
	ErrSplitCoverage = errors.New("split assignment does not cover all documents")

	// ErrInvalidTestSize indicates a test size outside the open interval (0, 1)
	ErrInvalidTestSize = errors.New("test size must be in the open interval (0, 1)")

	// ErrDatasetNotFound indicates a missing dataset record
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrSplitRunNotFound indicates a missing split run record
	ErrSplitRunNotFound = errors.New("split run not found")
)
