package taskqueue

import (
	"context"
	"encoding/json"
	"time"
)

// Queue is the task queue interface: enqueue jobs, inspect their
// state and wait for results.
type Queue interface {
	// Enqueue adds a task to the queue
	Enqueue(ctx context.Context, taskType TaskType, datasetID string, payload interface{}) (string, error)

	// EnqueueAt adds a task scheduled for a specific time
	EnqueueAt(ctx context.Context, taskType TaskType, datasetID string, payload interface{}, processAt time.Time) (string, error)

	// EnqueueIn adds a task scheduled after a delay
	EnqueueIn(ctx context.Context, taskType TaskType, datasetID string, payload interface{}, delay time.Duration) (string, error)

	// GetTask fetches a task by id
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// GetTasksByDataset lists every task of one dataset
	GetTasksByDataset(ctx context.Context, datasetID string) ([]*Task, error)

	// WaitForTask blocks until the task reaches a terminal state.
	// A zero timeout waits indefinitely.
	WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error)

	// DeleteTask removes a task
	DeleteTask(ctx context.Context, taskID string) error

	// UpdateTaskStatus updates the status and result of a task
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errorMsg string) error

	// NotifyTaskUpdate publishes a task status change
	NotifyTaskUpdate(ctx context.Context, taskID string) error

	// Close closes the queue connection
	Close() error
}

// Handler executes one kind of task
type Handler interface {
	// ProcessTask runs the task
	ProcessTask(ctx context.Context, task *Task) error

	// GetTaskTypes returns the task types this handler supports
	GetTaskTypes() []TaskType
}

// Worker runs handlers against the queue
type Worker interface {
	// RegisterHandler registers a handler for a task type
	RegisterHandler(taskType TaskType, handler Handler)

	// Start begins processing tasks
	Start() error

	// Stop shuts the worker down
	Stop()
}

// Config holds queue settings
type Config struct {
	RedisAddr     string         // redis address
	RedisPassword string         // redis password
	RedisDB       int            // redis database
	Concurrency   int            // concurrent task workers
	RetryLimit    int            // retry limit per task
	RetryDelay    time.Duration  // delay between retries
	Queues        map[string]int // queue name to priority
}

// DefaultConfig returns the default queue configuration
func DefaultConfig() *Config {
	return &Config{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 10,
		RetryLimit:  3,
		RetryDelay:  time.Minute,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}
}

// TaskInfo is the client-facing view of a task
type TaskInfo struct {
	ID          string     `json:"id"`           // task identifier
	Type        TaskType   `json:"type"`         // task type
	DatasetID   string     `json:"dataset_id"`   // related dataset ID
	Status      TaskStatus `json:"status"`       // lifecycle state
	Error       string     `json:"error"`        // error message
	CreatedAt   time.Time  `json:"created_at"`   // creation time
	StartedAt   *time.Time `json:"started_at"`   // processing start time
	CompletedAt *time.Time `json:"completed_at"` // completion time
	Progress    float64    `json:"progress"`     // progress estimate (0-100)
}

// Factory builds a queue implementation from its configuration
type Factory func(cfg *Config) (Queue, error)

// NewTaskInfo builds a TaskInfo from a Task
func NewTaskInfo(task *Task) *TaskInfo {
	return &TaskInfo{
		ID:          task.ID,
		Type:        task.Type,
		DatasetID:   task.DatasetID,
		Status:      task.Status,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
		Progress:    getTaskProgress(task),
	}
}

// getTaskProgress estimates progress from the task status
func getTaskProgress(task *Task) float64 {
	switch task.Status {
	case StatusPending:
		return 0.0
	case StatusProcessing:
		return 50.0
	case StatusCompleted:
		return 100.0
	case StatusFailed:
		return 50.0
	default:
		return 0.0
	}
}

// ErrTaskNotFound task does not exist
var ErrTaskNotFound = TaskError("task not found")

// ErrTaskTimeout task did not finish in time
var ErrTaskTimeout = TaskError("task timed out")

// ErrInvalidPayload task payload could not be decoded
var ErrInvalidPayload = TaskError("invalid task payload")

// TaskError is a queue-level error string
type TaskError string

// Error implements the error interface
func (e TaskError) Error() string {
	return string(e)
}

// MarshalPayload serializes a task payload to JSON
func MarshalPayload(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(payload)
}

// UnmarshalPayload deserializes a task payload
func UnmarshalPayload(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
