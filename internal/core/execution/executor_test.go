package execution

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

func newTestQueue(t *testing.T) *queue.Manager {
	t.Helper()
	q, err := queue.NewQueue(filepath.Join(t.TempDir(), "tasks.db"), "test-session")
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func addApproved(t *testing.T, q *queue.Manager, c *Coordinator, command string) *queue.Task {
	t.Helper()
	task, err := q.AddTask(command, c.Assess(command), string(GateSemi))
	require.NoError(t, err)
	require.NoError(t, q.ApproveTask(task.ID))
	return task
}

func TestTaskExecutor_ExecuteApprovedTask(t *testing.T) {
	requireUnix(t)
	q := newTestQueue(t)
	c := newCoordinator(t, Policy{DangerousCheck: true})

	task := addApproved(t, q, c, "echo hello")

	rep, err := NewTaskExecutor(q, c).ExecuteTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, rep.Succeeded())

	got, err := q.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "hello\n", got.Result.Output)
	assert.Equal(t, 0, got.Result.ExitCode)
}

func TestTaskExecutor_ApprovalConfirmsTheGate(t *testing.T) {
	requireUnix(t)
	q := newTestQueue(t)
	// No prompt available: without the task approval this would be declined.
	c := newCoordinator(t, Policy{DangerousCheck: true})

	task := addApproved(t, q, c, "chmod 777 nothing-here-to-chmod")

	rep, err := NewTaskExecutor(q, c).ExecuteTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.NotErrorIs(t, rep.Err, ErrDeclined)
	require.NotNil(t, rep.Result)
	assert.True(t, rep.Result.Spawned())

	got, _ := q.GetTask(task.ID)
	assert.Equal(t, queue.TaskStatusFailed, got.Status)
	assert.NotEqual(t, 0, got.Result.ExitCode)
}

func TestTaskExecutor_BlockedTaskFails(t *testing.T) {
	q := newTestQueue(t)
	c := newCoordinator(t, Policy{SafeMode: true, DangerousCheck: true})

	task := addApproved(t, q, c, "rm -rf /")

	rep, err := NewTaskExecutor(q, c).ExecuteTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, rep.Err, ErrBlocked)

	got, _ := q.GetTask(task.ID)
	assert.Equal(t, queue.TaskStatusFailed, got.Status)
	assert.Equal(t, -1, got.Result.ExitCode)
	assert.NotEmpty(t, got.Result.Error)
}

func TestTaskExecutor_PendingTaskIsNotRun(t *testing.T) {
	q := newTestQueue(t)
	c := newCoordinator(t, Policy{})

	task, err := q.AddTask("echo hi", security.Assessment{Level: security.LevelSafe}, string(GateSemi))
	require.NoError(t, err)

	_, err = NewTaskExecutor(q, c).ExecuteTask(context.Background(), task.ID)
	assert.Error(t, err)

	got, _ := q.GetTask(task.ID)
	assert.Equal(t, queue.TaskStatusPending, got.Status)
}

func TestTaskExecutor_ExecuteAllApproved(t *testing.T) {
	requireUnix(t)
	q := newTestQueue(t)
	c := newCoordinator(t, Policy{DangerousCheck: true})

	addApproved(t, q, c, "echo one")
	addApproved(t, q, c, "echo two")
	pending, err := q.AddTask("echo three", c.Assess("echo three"), string(GateSemi))
	require.NoError(t, err)

	reports, err := NewTaskExecutor(q, c).ExecuteAllApproved(context.Background())
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	completed, err := q.GetTasksByStatus(queue.TaskStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	got, _ := q.GetTask(pending.ID)
	assert.Equal(t, queue.TaskStatusPending, got.Status)
}
