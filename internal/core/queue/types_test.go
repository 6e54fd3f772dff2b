package queue

import (
	"testing"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

func dangerousAssessment() security.Assessment {
	return security.Assessment{
		Level:         security.LevelPotentiallyDangerous,
		Risk:          security.RiskHigh,
		RequiresAdmin: true,
		Reason:        "recursive delete",
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask("session-123", "rm -rf build", dangerousAssessment(), "admin")

	if task.SessionID != "session-123" {
		t.Error("Expected SessionID to be session-123")
	}
	if task.Status != TaskStatusPending {
		t.Error("Expected initial status to be pending")
	}
	if task.ID == "" {
		t.Error("Expected ID to be generated")
	}
	if task.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
	if task.Assessment.Level != security.LevelPotentiallyDangerous {
		t.Errorf("Expected assessment to be kept, got %s", task.Assessment.Level)
	}
}

func TestTask_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     TaskStatus
		to       TaskStatus
		expected bool
	}{
		{TaskStatusPending, TaskStatusApproved, true},
		{TaskStatusPending, TaskStatusRejected, true},
		{TaskStatusApproved, TaskStatusExecuting, true},
		{TaskStatusApproved, TaskStatusRejected, true},
		{TaskStatusExecuting, TaskStatusCompleted, true},
		{TaskStatusExecuting, TaskStatusFailed, true},
		{TaskStatusPending, TaskStatusExecuting, false},
		{TaskStatusPending, TaskStatusCompleted, false},
		{TaskStatusRejected, TaskStatusApproved, false},
		{TaskStatusCompleted, TaskStatusPending, false},
	}

	for _, tt := range tests {
		task := &Task{Status: tt.from}
		result := task.CanTransitionTo(tt.to)
		if result != tt.expected {
			t.Errorf("Transition %s -> %s: expected %v, got %v",
				tt.from, tt.to, tt.expected, result)
		}
	}
}

func TestTask_Terminal(t *testing.T) {
	for status, want := range map[TaskStatus]bool{
		TaskStatusPending:   false,
		TaskStatusApproved:  false,
		TaskStatusExecuting: false,
		TaskStatusRejected:  true,
		TaskStatusCompleted: true,
		TaskStatusFailed:    true,
	} {
		if got := (&Task{Status: status}).Terminal(); got != want {
			t.Errorf("Terminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestExecutionResult_Succeeded(t *testing.T) {
	if !(&ExecutionResult{ExitCode: 0, Output: "ok"}).Succeeded() {
		t.Error("exit 0 without error should succeed")
	}
	if (&ExecutionResult{ExitCode: 2}).Succeeded() {
		t.Error("non-zero exit should fail")
	}
	if (&ExecutionResult{ExitCode: 0, Error: "timed out"}).Succeeded() {
		t.Error("an error should fail even with exit 0")
	}
}
