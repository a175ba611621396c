package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HMasataka/chatwork-log-exporter/internal/core/services"
)

// TaskStatus is the lifecycle state of an export task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is one asynchronous export run.
type Task struct {
	ID           string
	Status       TaskStatus
	Report       *services.Report
	ErrorMessage string
	CreatedAt    time.Time
	ExpiresAt    time.Time // for automatic cleanup
}

// TaskStore manages storage and retrieval of export tasks.
type TaskStore struct {
	tasks map[string]*Task
	mutex sync.RWMutex
}

// NewTaskStore creates a TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
	}
}

// CreateTask creates a new task in the pending state.
func (ts *TaskStore) CreateTask(taskID string, ttl time.Duration) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := time.Now()
	ts.tasks[taskID] = &Task{
		ID:        taskID,
		Status:    TaskStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// UpdateTaskStatus updates the status of a task.
func (ts *TaskStore) UpdateTaskStatus(taskID string, status TaskStatus) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %s not found", taskID)
	}
	task.Status = status
	return nil
}

// UpdateTaskResult marks the task completed with its report. A run that
// finished with per-room failures still completes; the report carries the
// failure detail.
func (ts *TaskStore) UpdateTaskResult(taskID string, report *services.Report, errorMessage string) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %s not found", taskID)
	}
	task.Status = TaskStatusCompleted
	task.Report = report
	task.ErrorMessage = errorMessage
	return nil
}

// UpdateTaskError marks the task failed.
func (ts *TaskStore) UpdateTaskError(taskID string, errorMessage string) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %s not found", taskID)
	}
	task.Status = TaskStatusFailed
	task.ErrorMessage = errorMessage
	return nil
}

// GetTask retrieves a snapshot of a task by id. A copy is returned so a
// status poll never races with the export goroutine updating the stored
// task.
func (ts *TaskStore) GetTask(taskID string) (*Task, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	snapshot := *task
	return &snapshot, nil
}

// CleanupExpired removes expired task records.
func (ts *TaskStore) CleanupExpired() {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := time.Now()
	for id, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			delete(ts.tasks, id)
		}
	}
}

// StartCleanupTicker periodically removes expired tasks until the context
// is cancelled.
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.CleanupExpired()
			}
		}
	}()
}
