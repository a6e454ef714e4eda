package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisTest starts a miniredis instance and returns its address
// with a cleanup function.
func setupRedisTest(t *testing.T) (string, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	return mr.Addr(), func() {
		mr.Close()
	}
}

func testQueueConfig(addr string) *Config {
	return &Config{
		RedisAddr:   addr,
		Concurrency: 2,
		RetryLimit:  2,
		RetryDelay:  time.Second,
	}
}

func splitPayload(runID, datasetID string) *DatasetSplitPayload {
	return &DatasetSplitPayload{
		RunID:     runID,
		DatasetID: datasetID,
		TestSize:  0.2,
		KeepRatio: false,
		Seed:      42,
	}
}

func TestNewRedisQueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	assert.NoError(t, err)
	assert.NotNil(t, queue)

	assert.NoError(t, queue.Close())
}

func TestRedisQueue_Enqueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()

	taskID, err := queue.Enqueue(ctx, TaskDatasetSplit, "ds-123", splitPayload("run-1", "ds-123"))
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, TaskDatasetSplit, task.Type)
	assert.Equal(t, "ds-123", task.DatasetID)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotNil(t, task.Payload)

	var payload DatasetSplitPayload
	require.NoError(t, UnmarshalPayload(task.Payload, &payload))
	assert.Equal(t, "run-1", payload.RunID)
	assert.Equal(t, 0.2, payload.TestSize)
}

func TestRedisQueue_EnqueueAt(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()

	processAt := time.Now().Add(time.Second)
	taskID, err := queue.EnqueueAt(ctx, TaskDatasetSplit, "ds-123", splitPayload("run-1", "ds-123"), processAt)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)
}

func TestRedisQueue_EnqueueIn(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()

	taskID, err := queue.EnqueueIn(ctx, TaskCasConvert, "", &CasConvertPayload{
		SourceDir:  "/data/cas/jsons",
		OutputPath: "/data/claimpt_dataset.json",
	}, time.Second)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, TaskCasConvert, task.Type)
	assert.Equal(t, StatusPending, task.Status)
}

func TestRedisQueue_GetTasksByDataset(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()
	datasetID := "ds-456"

	for i := 0; i < 3; i++ {
		_, err := queue.Enqueue(ctx, TaskDatasetSplit, datasetID, splitPayload("run-x", datasetID))
		require.NoError(t, err)
	}

	tasks, err := queue.GetTasksByDataset(ctx, datasetID)
	assert.NoError(t, err)
	assert.Len(t, tasks, 3)

	for _, task := range tasks {
		assert.Equal(t, datasetID, task.DatasetID)
	}

	emptyTasks, err := queue.GetTasksByDataset(ctx, "non-existent")
	assert.NoError(t, err)
	assert.Empty(t, emptyTasks)
}

func TestRedisQueue_UpdateTaskStatus(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()

	taskID, err := queue.Enqueue(ctx, TaskDatasetSplit, "ds-789", splitPayload("run-1", "ds-789"))
	require.NoError(t, err)

	err = queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, "")
	assert.NoError(t, err)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, StatusProcessing, task.Status)
	assert.NotNil(t, task.StartedAt)

	result := &DatasetSplitResult{
		RunID:       "run-1",
		TrainDocs:   80,
		TestDocs:    20,
		TrainClaims: 160,
		TestClaims:  40,
	}
	err = queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, "")
	assert.NoError(t, err)

	task, err = queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.NotEmpty(t, task.Result)

	failTaskID, err := queue.Enqueue(ctx, TaskDatasetSplit, "ds-789", splitPayload("run-2", "ds-789"))
	require.NoError(t, err)

	errorMsg := "dataset has no claims"
	err = queue.UpdateTaskStatus(ctx, failTaskID, StatusFailed, nil, errorMsg)
	assert.NoError(t, err)

	failTask, err := queue.GetTask(ctx, failTaskID)
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, failTask.Status)
	assert.Equal(t, errorMsg, failTask.Error)
	assert.NotNil(t, failTask.CompletedAt)
}

func TestRedisQueue_DeleteTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()
	datasetID := "ds-delete-test"

	taskID, err := queue.Enqueue(ctx, TaskDatasetSplit, datasetID, splitPayload("run-1", datasetID))
	require.NoError(t, err)

	tasks, err := queue.GetTasksByDataset(ctx, datasetID)
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)

	err = queue.DeleteTask(ctx, taskID)
	assert.NoError(t, err)

	_, err = queue.GetTask(ctx, taskID)
	assert.Equal(t, ErrTaskNotFound, err)

	tasks, err = queue.GetTasksByDataset(ctx, datasetID)
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestRedisQueue_NotifyTaskUpdate(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()

	taskID, err := queue.Enqueue(ctx, TaskDatasetSplit, "ds-notify", splitPayload("run-1", "ds-notify"))
	require.NoError(t, err)

	assert.NoError(t, queue.NotifyTaskUpdate(ctx, taskID))
}

// mockHandler implements Handler for tests
type mockHandler struct {
	processFunc func(context.Context, *Task) error
	taskTypes   []TaskType
}

func (h *mockHandler) ProcessTask(ctx context.Context, task *Task) error {
	if h.processFunc != nil {
		return h.processFunc(ctx, task)
	}
	return nil
}

func (h *mockHandler) GetTaskTypes() []TaskType {
	return h.taskTypes
}

func TestRedisWorker_RegisterHandler(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	redisQueue, err := NewRedisQueue(testQueueConfig(redisAddr))
	require.NoError(t, err)
	defer redisQueue.Close()

	rq, ok := redisQueue.(*RedisQueue)
	require.True(t, ok)

	worker := NewRedisWorker(rq, nil)
	require.NotNil(t, worker)

	worker.RegisterHandler(TaskDatasetSplit, &mockHandler{
		taskTypes: []TaskType{TaskDatasetSplit},
	})
}

func TestTaskInfo(t *testing.T) {
	now := time.Now()
	startedAt := now.Add(-5 * time.Minute)
	completedAt := now.Add(-1 * time.Minute)

	task := &Task{
		ID:          "task-123",
		Type:        TaskDatasetSplit,
		DatasetID:   "ds-123",
		Status:      StatusCompleted,
		CreatedAt:   now.Add(-10 * time.Minute),
		UpdatedAt:   now,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
		Attempts:    1,
		MaxRetries:  3,
	}

	info := NewTaskInfo(task)

	assert.Equal(t, task.ID, info.ID)
	assert.Equal(t, task.Type, info.Type)
	assert.Equal(t, task.DatasetID, info.DatasetID)
	assert.Equal(t, task.Status, info.Status)
	assert.Equal(t, task.CreatedAt, info.CreatedAt)
	assert.Equal(t, task.StartedAt, info.StartedAt)
	assert.Equal(t, task.CompletedAt, info.CompletedAt)
	assert.Equal(t, 100.0, info.Progress)
}

func TestMarshalPayload(t *testing.T) {
	data, err := MarshalPayload(nil)
	assert.NoError(t, err)
	assert.JSONEq(t, "{}", string(data))

	data, err = MarshalPayload(splitPayload("run-1", "ds-1"))
	assert.NoError(t, err)

	var decoded DatasetSplitPayload
	require.NoError(t, UnmarshalPayload(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, int64(42), decoded.Seed)
}
