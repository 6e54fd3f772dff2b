package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // Waiting for a decision
	TaskStatusApproved  TaskStatus = "approved"  // Approved, not yet run
	TaskStatusRejected  TaskStatus = "rejected"  // Rejected by the user
	TaskStatusExecuting TaskStatus = "executing" // Currently running
	TaskStatusCompleted TaskStatus = "completed" // Ran and exited 0
	TaskStatusFailed    TaskStatus = "failed"    // Ran and failed, or could not run
)

// Task is a command whose confirmation was deferred.
type Task struct {
	ID         string              `json:"id"`
	SessionID  string              `json:"session_id"`
	Command    string              `json:"command"`
	Assessment security.Assessment `json:"assessment"`
	// Gate names the confirmation the command was waiting for.
	Gate      string           `json:"gate"`
	Status    TaskStatus       `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Result    *ExecutionResult `json:"result,omitempty"`
}

// ExecutionResult holds the result of running a task. ExitCode is -1 when
// no process was started.
type ExecutionResult struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
	Stderr   string `json:"stderr,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded reports whether the run exited 0 without error.
func (r *ExecutionResult) Succeeded() bool {
	return r.ExitCode == 0 && r.Error == ""
}

// NewTask creates a new task with pending status
func NewTask(sessionID, command string, assessment security.Assessment, gate string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Command:    command,
		Assessment: assessment,
		Gate:       gate,
		Status:     TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:   {TaskStatusApproved, TaskStatusRejected},
	TaskStatusApproved:  {TaskStatusExecuting, TaskStatusRejected},
	TaskStatusExecuting: {TaskStatusCompleted, TaskStatusFailed},
}

// CanTransitionTo checks if a status transition is valid
func (t *Task) CanTransitionTo(newStatus TaskStatus) bool {
	for _, status := range validTransitions[t.Status] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// Terminal reports whether the task can no longer change.
func (t *Task) Terminal() bool {
	return len(validTransitions[t.Status]) == 0
}

// TransitionStatus updates the task status if the transition is valid
func (t *Task) TransitionStatus(newStatus TaskStatus) bool {
	if !t.CanTransitionTo(newStatus) {
		return false
	}
	t.Status = newStatus
	t.UpdatedAt = time.Now().UTC()
	return true
}

// SetResult records the execution result
func (t *Task) SetResult(result *ExecutionResult) {
	t.Result = result
	t.UpdatedAt = time.Now().UTC()
}
