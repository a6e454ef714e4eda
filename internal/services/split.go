package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/cache"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/dataset"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/repository"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/split"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/storage"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/taskqueue"
)

// report cache entries follow the task record expiry
const reportCacheTTL = 24 * time.Hour

// SplitService coordinates split runs: it loads a dataset, runs the
// stratified partitioner, writes the train/test artifacts and records
// the achieved counts.
type SplitService struct {
	datasets     *DatasetService
	repo         repository.SplitRepository
	storage      storage.Storage
	cache        cache.Cache
	taskQueue    taskqueue.Queue
	asyncEnabled bool
	timeout      time.Duration
	logger       *logrus.Logger
}

// SplitOption configures the split service
type SplitOption func(*SplitService)

// NewSplitService creates a split service
func NewSplitService(datasets *DatasetService, store storage.Storage, opts ...SplitOption) *SplitService {
	srv := &SplitService{
		datasets: datasets,
		storage:  store,
		timeout:  time.Minute * 5,
		logger:   logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) SplitOption {
	return func(s *SplitService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout sets the per-run timeout
func WithTimeout(timeout time.Duration) SplitOption {
	return func(s *SplitService) {
		s.timeout = timeout
	}
}

// WithSplitRepository sets the run repository
func WithSplitRepository(repo repository.SplitRepository) SplitOption {
	return func(s *SplitService) {
		s.repo = repo
	}
}

// WithCache sets the report cache
func WithCache(c cache.Cache) SplitOption {
	return func(s *SplitService) {
		s.cache = c
	}
}

// WithTaskQueue sets the task queue and enables async runs
func WithTaskQueue(queue taskqueue.Queue) SplitOption {
	return func(s *SplitService) {
		s.taskQueue = queue
		s.asyncEnabled = queue != nil
	}
}

// WithAsyncProcessing toggles async runs
func WithAsyncProcessing(enabled bool) SplitOption {
	return func(s *SplitService) {
		s.asyncEnabled = enabled
	}
}

// Init makes sure required dependencies are set
func (s *SplitService) Init() error {
	if s.repo == nil {
		s.repo = repository.NewSplitRepository()
	}
	if s.datasets == nil {
		return fmt.Errorf("split service requires a dataset service")
	}
	return nil
}

// CreateSplit creates a split run for a dataset. With async enabled
// the run is enqueued and returned in pending state; otherwise it is
// executed before returning.
func (s *SplitService) CreateSplit(ctx context.Context, datasetID string, cfg split.Config) (*models.SplitRun, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	if s.asyncEnabled && s.taskQueue != nil {
		return s.CreateSplitAsync(ctx, datasetID, cfg)
	}

	run, err := s.newRun(ctx, datasetID, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.ExecuteSplit(ctx, run.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(run.ID)
}

// CreateSplitAsync enqueues a split run and returns it in pending state
func (s *SplitService) CreateSplitAsync(ctx context.Context, datasetID string, cfg split.Config) (*models.SplitRun, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	if s.taskQueue == nil {
		return nil, fmt.Errorf("async split requires a task queue")
	}

	run, err := s.newRun(ctx, datasetID, cfg)
	if err != nil {
		return nil, err
	}

	payload := taskqueue.DatasetSplitPayload{
		RunID:     run.ID,
		DatasetID: datasetID,
		TestSize:  cfg.TestSize,
		KeepRatio: cfg.KeepRatio,
		Seed:      cfg.Seed,
	}
	taskID, err := s.taskQueue.Enqueue(ctx, taskqueue.TaskDatasetSplit, datasetID, payload)
	if err != nil {
		s.failRun(run.ID, fmt.Sprintf("failed to enqueue split task: %v", err))
		return nil, fmt.Errorf("failed to enqueue split task: %w", err)
	}

	run.TaskID = taskID
	if err := s.repo.Update(run); err != nil {
		s.logger.WithError(err).WithField("run_id", run.ID).Warn("Failed to record task id on split run")
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"dataset_id": datasetID,
		"task_id":    taskID,
	}).Info("Split run enqueued")
	return run, nil
}

// newRun validates the request and records a pending split run
func (s *SplitService) newRun(ctx context.Context, datasetID string, cfg split.Config) (*models.SplitRun, error) {
	file, err := s.datasets.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if file.Status != models.DatasetStatusReady {
		return nil, fmt.Errorf("dataset %s is not ready: status %s", datasetID, file.Status)
	}
	if cfg.TestSize <= 0 || cfg.TestSize >= 1 {
		return nil, fmt.Errorf("%w: got %v", models.ErrInvalidTestSize, cfg.TestSize)
	}

	run := &models.SplitRun{
		ID:        uuid.New().String(),
		DatasetID: datasetID,
		Status:    models.SplitStatusPending,
		TestSize:  cfg.TestSize,
		KeepRatio: cfg.KeepRatio,
		Seed:      cfg.Seed,
	}
	if err := s.repo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to record split run: %w", err)
	}
	return run, nil
}

// ExecuteSplit runs a pending split run to completion
func (s *SplitService) ExecuteSplit(ctx context.Context, runID string) error {
	if err := s.Init(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	run, err := s.repo.GetByID(runID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(runID, models.SplitStatusRunning, ""); err != nil {
		s.logger.WithError(err).WithField("run_id", runID).Warn("Failed to mark split run as running")
	}

	stats, err := s.executeSplit(ctx, run)
	if err != nil {
		s.failRun(runID, err.Error())
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":       runID,
		"dataset_id":   run.DatasetID,
		"train_docs":   stats.TrainDocs,
		"test_docs":    stats.TestDocs,
		"train_claims": stats.TrainClaims,
		"test_claims":  stats.TestClaims,
	}).Info("Split run completed")

	return nil
}

// executeSplit does the actual work: partition, write artifacts and
// persist the achieved counts.
func (s *SplitService) executeSplit(ctx context.Context, run *models.SplitRun) (*split.Stats, error) {
	docs, err := s.datasets.LoadDocuments(ctx, run.DatasetID)
	if err != nil {
		return nil, err
	}

	corpus, err := dataset.Summarize(docs)
	if err != nil {
		return nil, err
	}

	cfg := split.Config{
		TestSize:  run.TestSize,
		KeepRatio: run.KeepRatio,
		Seed:      run.Seed,
	}
	assignment, err := split.NewPartitioner(cfg).Split(corpus)
	if err != nil {
		return nil, err
	}

	stats := split.ComputeStats(corpus, assignment, cfg)
	train, test := assignment.Materialize(docs)

	outputs, err := s.writeArtifacts(run.ID, train, test)
	if err != nil {
		return nil, err
	}

	run.Status = models.SplitStatusCompleted
	run.TrainDocs = stats.TrainDocs
	run.TestDocs = stats.TestDocs
	run.TrainClaims = stats.TrainClaims
	run.TestClaims = stats.TestClaims
	run.TrainNonClaims = stats.TrainNonClaims
	run.TestNonClaims = stats.TestNonClaims
	now := time.Now()
	run.CompletedAt = &now

	if run.TrainIDs, err = json.Marshal(assignment.TrainIDs()); err != nil {
		return nil, fmt.Errorf("failed to serialize train ids: %w", err)
	}
	if run.TestIDs, err = json.Marshal(assignment.TestIDs()); err != nil {
		return nil, fmt.Errorf("failed to serialize test ids: %w", err)
	}
	if run.OutputFiles, err = json.Marshal(outputs); err != nil {
		return nil, fmt.Errorf("failed to serialize output files: %w", err)
	}

	if err := s.repo.Update(run); err != nil {
		return nil, fmt.Errorf("failed to persist split run: %w", err)
	}

	s.cacheReport(run.ID, stats.Report())

	return &stats, nil
}

// writeArtifacts stores the four split outputs and returns a map of
// artifact name to storage file id.
func (s *SplitService) writeArtifacts(runID string, train, test []models.Document) (map[string]string, error) {
	artifacts := []struct {
		name  string
		docs  []models.Document
		jsonl bool
	}{
		{"train.json", train, false},
		{"test.json", test, false},
		{"train.jsonl", train, true},
		{"test.jsonl", test, true},
	}

	outputs := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		var buf bytes.Buffer
		var err error
		if a.jsonl {
			err = dataset.WriteJSONL(&buf, a.docs)
		} else {
			err = dataset.WriteJSON(&buf, a.docs)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s: %w", a.name, err)
		}

		info, err := s.storage.Save(&buf, a.name)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", a.name, err)
		}
		outputs[a.name] = info.ID
	}

	return outputs, nil
}

// GetSplit fetches a split run record
func (s *SplitService) GetSplit(ctx context.Context, runID string) (*models.SplitRun, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s.repo.GetByID(runID)
}

// ListSplits lists the runs of one dataset
func (s *SplitService) ListSplits(ctx context.Context, datasetID string, offset, limit int) ([]*models.SplitRun, int64, error) {
	if err := s.Init(); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByDataset(datasetID, offset, limit)
}

// GetArtifact opens one output file of a completed run
func (s *SplitService) GetArtifact(ctx context.Context, runID, name string) (io.ReadCloser, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	run, err := s.repo.GetByID(runID)
	if err != nil {
		return nil, err
	}
	if run.Status != models.SplitStatusCompleted {
		return nil, fmt.Errorf("split run %s is not completed: status %s", runID, run.Status)
	}

	var outputs map[string]string
	if err := json.Unmarshal(run.OutputFiles, &outputs); err != nil {
		return nil, fmt.Errorf("failed to decode output files: %w", err)
	}

	fileID, ok := outputs[name]
	if !ok {
		return nil, fmt.Errorf("split run %s has no artifact %q", runID, name)
	}
	return s.storage.Get(fileID)
}

// GetReport returns the operator-facing summary of a completed run.
// The report is cached; on a miss it is rebuilt deterministically by
// re-running the partitioner with the recorded parameters.
func (s *SplitService) GetReport(ctx context.Context, runID string) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	key := cache.GenerateCacheKey("split_report", runID)
	if s.cache != nil {
		if report, found, err := s.cache.Get(key); err == nil && found {
			return report, nil
		}
	}

	run, err := s.repo.GetByID(runID)
	if err != nil {
		return "", err
	}
	if run.Status != models.SplitStatusCompleted {
		return "", fmt.Errorf("split run %s is not completed: status %s", runID, run.Status)
	}

	docs, err := s.datasets.LoadDocuments(ctx, run.DatasetID)
	if err != nil {
		return "", err
	}
	corpus, err := dataset.Summarize(docs)
	if err != nil {
		return "", err
	}

	cfg := split.Config{
		TestSize:  run.TestSize,
		KeepRatio: run.KeepRatio,
		Seed:      run.Seed,
	}
	assignment, err := split.NewPartitioner(cfg).Split(corpus)
	if err != nil {
		return "", err
	}

	report := split.ComputeStats(corpus, assignment, cfg).Report()
	s.cacheReport(runID, report)
	return report, nil
}

// cacheReport stores a rendered report, best effort
func (s *SplitService) cacheReport(runID, report string) {
	if s.cache == nil {
		return
	}
	key := cache.GenerateCacheKey("split_report", runID)
	if err := s.cache.Set(key, report, reportCacheTTL); err != nil {
		s.logger.WithError(err).WithField("run_id", runID).Warn("Failed to cache split report")
	}
}

// failRun marks a run as failed, best effort
func (s *SplitService) failRun(runID, errorMsg string) {
	if err := s.repo.UpdateStatus(runID, models.SplitStatusFailed, errorMsg); err != nil {
		s.logger.WithFields(logrus.Fields{
			"run_id": runID,
			"error":  err,
		}).Error("Failed to mark split run as failed")
	}
}

// GetTaskQueue returns the task queue instance
func (s *SplitService) GetTaskQueue() taskqueue.Queue {
	return s.taskQueue
}
