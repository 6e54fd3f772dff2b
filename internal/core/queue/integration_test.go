package queue

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func TestIntegration_FullQueueWorkflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")

	q, err := NewQueue(path, "test-session-123")
	if err != nil {
		t.Fatal(err)
	}

	// Step 1: Add a task
	task1, err := q.AddTask("rm -rf build", dangerousAssessment(), "admin")
	if err != nil {
		t.Fatalf("Failed to add task: %v", err)
	}
	q.Close()

	// Step 2: Verify persistence by reopening
	q2, err := NewQueue(path, "test-session-123")
	if err != nil {
		t.Fatal(err)
	}
	defer q2.Close()

	tasks, _ := q2.GetAllTasks()
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}

	// Step 3: Approve
	if err := q2.ApproveTask(task1.ID); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}

	// Step 4: Mark as executing
	if err := q2.MarkExecuting(task1.ID); err != nil {
		t.Fatalf("Failed to mark executing: %v", err)
	}

	// Step 5: Set result
	result := &ExecutionResult{ExitCode: 0, Output: "success"}
	if err := q2.SetTaskResult(task1.ID, result); err != nil {
		t.Fatalf("Failed to set result: %v", err)
	}

	// Step 6: Verify final state
	got, _ := q2.GetTask(task1.ID)
	if got.Status != TaskStatusCompleted {
		t.Errorf("Expected completed status, got %s", got.Status)
	}
	if got.Result.Output != "success" {
		t.Errorf("Expected output success, got %q", got.Result.Output)
	}
}

func TestIntegration_MultipleSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")

	q1, err := NewQueue(path, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	q1.AddTask("rm -rf /tmp/test1", dangerousAssessment(), "admin")
	q1.Close()

	// Same file, different session
	q2, err := NewQueue(path, "session-2")
	if err != nil {
		t.Fatal(err)
	}
	defer q2.Close()
	q2.AddTask("dd if=/dev/zero of=file", dangerousAssessment(), "admin")

	session1Tasks, _ := q2.GetTasksBySession("session-1")
	session2Tasks, _ := q2.GetTasksBySession("session-2")

	if len(session1Tasks) != 1 {
		t.Errorf("Expected 1 task for session-1, got %d", len(session1Tasks))
	}
	if len(session2Tasks) != 1 {
		t.Errorf("Expected 1 task for session-2, got %d", len(session2Tasks))
	}

	allTasks, _ := q2.GetAllTasks()
	if len(allTasks) != 2 {
		t.Errorf("Expected 2 total tasks, got %d", len(allTasks))
	}
}

func TestIntegration_StatusTransitionValidation(t *testing.T) {
	q := newTestQueue(t, "test-session")

	task, _ := q.AddTask("rm -rf build", dangerousAssessment(), "admin")

	// Invalid transition: pending -> completed
	if err := q.SetTaskResult(task.ID, &ExecutionResult{ExitCode: 0}); err == nil {
		t.Error("Expected error for invalid status transition")
	}
	got, _ := q.GetTask(task.ID)
	if got.Result != nil {
		t.Error("A rejected transition must not record a result")
	}

	// Valid: pending -> approved
	if err := q.ApproveTask(task.ID); err != nil {
		t.Errorf("Expected approve to succeed: %v", err)
	}

	// Invalid: approved -> approved
	if err := q.ApproveTask(task.ID); err == nil {
		t.Error("Expected error for duplicate approval")
	}
}

func TestIntegration_ConcurrentAccess(t *testing.T) {
	q := newTestQueue(t, "test-session")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.AddTask(fmt.Sprintf("echo test %d", n), dangerousAssessment(), "semi")
		}(i)
	}
	wg.Wait()

	tasks, _ := q.GetAllTasks()
	if len(tasks) != 10 {
		t.Errorf("Expected 10 tasks, got %d", len(tasks))
	}
}
