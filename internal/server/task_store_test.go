package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/HMasataka/chatwork-log-exporter/internal/core/services"
)

func TestTaskLifecycle(t *testing.T) {
	store := NewTaskStore()
	store.CreateTask("t1", time.Hour)

	task, err := store.GetTask("t1")
	assert.NoError(t, err)
	assert.Equal(t, TaskStatusPending, task.Status)

	assert.NoError(t, store.UpdateTaskStatus("t1", TaskStatusProcessing))

	report := &services.Report{Rooms: []services.RoomResult{{RoomID: 3}}}
	assert.NoError(t, store.UpdateTaskResult("t1", report, ""))

	task, err = store.GetTask("t1")
	assert.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, report, task.Report)
}

func TestTaskResultWithRoomFailuresStillCompletes(t *testing.T) {
	store := NewTaskStore()
	store.CreateTask("t1", time.Hour)

	report := &services.Report{}
	assert.NoError(t, store.UpdateTaskResult("t1", report, "1 of 2 rooms failed"))

	task, _ := store.GetTask("t1")
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, "1 of 2 rooms failed", task.ErrorMessage)
}

func TestTaskError(t *testing.T) {
	store := NewTaskStore()
	store.CreateTask("t1", time.Hour)

	assert.NoError(t, store.UpdateTaskError("t1", "room discovery failed"))

	task, _ := store.GetTask("t1")
	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.Equal(t, "room discovery failed", task.ErrorMessage)
}

func TestGetTaskReturnsSnapshot(t *testing.T) {
	store := NewTaskStore()
	store.CreateTask("t1", time.Hour)

	before, err := store.GetTask("t1")
	assert.NoError(t, err)
	assert.Equal(t, TaskStatusPending, before.Status)

	// Later updates must not show through an already returned task.
	assert.NoError(t, store.UpdateTaskError("t1", "boom"))
	assert.Equal(t, TaskStatusPending, before.Status)
	assert.Empty(t, before.ErrorMessage)

	after, err := store.GetTask("t1")
	assert.NoError(t, err)
	assert.Equal(t, TaskStatusFailed, after.Status)
}

func TestTaskNotFound(t *testing.T) {
	store := NewTaskStore()

	_, err := store.GetTask("missing")
	assert.Error(t, err)
	assert.Error(t, store.UpdateTaskStatus("missing", TaskStatusProcessing))
	assert.Error(t, store.UpdateTaskResult("missing", nil, ""))
	assert.Error(t, store.UpdateTaskError("missing", "x"))
}

func TestCleanupExpired(t *testing.T) {
	store := NewTaskStore()
	store.CreateTask("old", -time.Minute)
	store.CreateTask("fresh", time.Hour)

	store.CleanupExpired()

	_, err := store.GetTask("old")
	assert.Error(t, err)
	_, err = store.GetTask("fresh")
	assert.NoError(t, err)
}
