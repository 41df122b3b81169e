package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeImportChannel TaskType = "import_channel"
	TaskTypeSyncCreator   TaskType = "sync_creator"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetChannelName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

type Task struct {
	ID          string
	Type        TaskType
	ChannelName string
	RetryCount  int
	MaxRetries  int
	StartedAt   *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetChannelName() string {
	return t.ChannelName
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, channelName string) Task {
	return Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		ChannelName: channelName,
		MaxRetries:  DefaultMaxRetries,
	}
}

// retryDelay doubles from one second per attempt, capped at 30 seconds.
func retryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		return 0
	}
	if retryCount > 6 {
		return 30 * time.Second
	}
	return min(time.Duration(1<<uint(retryCount-1))*time.Second, 30*time.Second)
}
