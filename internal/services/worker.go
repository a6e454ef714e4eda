package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/taskqueue"
)

// TaskProcessor executes queued split and conversion jobs. It is
// registered on the worker for both task types.
type TaskProcessor struct {
	splits   *SplitService
	datasets *DatasetService
	logger   *logrus.Logger
}

// NewTaskProcessor creates a task processor
func NewTaskProcessor(splits *SplitService, datasets *DatasetService, logger *logrus.Logger) *TaskProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &TaskProcessor{
		splits:   splits,
		datasets: datasets,
		logger:   logger,
	}
}

// GetTaskTypes returns the task types this processor handles
func (p *TaskProcessor) GetTaskTypes() []taskqueue.TaskType {
	return []taskqueue.TaskType{taskqueue.TaskDatasetSplit, taskqueue.TaskCasConvert}
}

// ProcessTask dispatches a task to the matching service
func (p *TaskProcessor) ProcessTask(ctx context.Context, task *taskqueue.Task) error {
	p.logger.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"task_type":  task.Type,
		"dataset_id": task.DatasetID,
	}).Info("Processing task")

	switch task.Type {
	case taskqueue.TaskDatasetSplit:
		return p.processSplit(ctx, task)
	case taskqueue.TaskCasConvert:
		return p.processCasConvert(ctx, task)
	default:
		return fmt.Errorf("unsupported task type: %s", task.Type)
	}
}

func (p *TaskProcessor) processSplit(ctx context.Context, task *taskqueue.Task) error {
	var payload taskqueue.DatasetSplitPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", taskqueue.ErrInvalidPayload, err)
	}
	if payload.RunID == "" {
		return fmt.Errorf("%w: missing run id", taskqueue.ErrInvalidPayload)
	}

	if err := p.splits.ExecuteSplit(ctx, payload.RunID); err != nil {
		return err
	}

	run, err := p.splits.GetSplit(ctx, payload.RunID)
	if err != nil {
		return err
	}

	result := &taskqueue.DatasetSplitResult{
		RunID:       run.ID,
		TrainDocs:   run.TrainDocs,
		TestDocs:    run.TestDocs,
		TrainClaims: run.TrainClaims,
		TestClaims:  run.TestClaims,
	}
	queue := p.splits.GetTaskQueue()
	if queue != nil {
		if err := queue.UpdateTaskStatus(ctx, task.ID, taskqueue.StatusProcessing, result, ""); err != nil {
			p.logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to attach split result to task")
		}
	}
	return nil
}

func (p *TaskProcessor) processCasConvert(ctx context.Context, task *taskqueue.Task) error {
	var payload taskqueue.CasConvertPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", taskqueue.ErrInvalidPayload, err)
	}
	if payload.SourceDir == "" {
		return fmt.Errorf("%w: missing source directory", taskqueue.ErrInvalidPayload)
	}

	file, count, err := p.datasets.ImportCasDirectory(ctx, payload.SourceDir)
	if err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"dataset_id": file.ID,
		"documents":  count,
	}).Info("CAS conversion completed")

	return nil
}
