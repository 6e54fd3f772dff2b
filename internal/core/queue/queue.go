package queue

import (
	"fmt"
	"sync"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

// Manager manages the task queue of one session on top of a Store.
type Manager struct {
	sessionID string
	store     *Store
	mu        sync.Mutex
}

// NewQueue opens the queue database at path for a session.
func NewQueue(path string, sessionID string) (*Manager, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	return &Manager{sessionID: sessionID, store: store}, nil
}

// SessionID returns the session new tasks are filed under.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// AddTask adds a new pending task to the queue
func (m *Manager) AddTask(command string, assessment security.Assessment, gate string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := NewTask(m.sessionID, command, assessment, gate)
	if err := m.store.Put(task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask returns one task by ID.
func (m *Manager) GetTask(taskID string) (*Task, error) {
	return m.store.Get(taskID)
}

// GetAllTasks returns all tasks, oldest first
func (m *Manager) GetAllTasks() ([]*Task, error) {
	return m.store.List()
}

// GetTasksByStatus returns the tasks in one status
func (m *Manager) GetTasksByStatus(status TaskStatus) ([]*Task, error) {
	return m.filter(func(t *Task) bool { return t.Status == status })
}

// GetPendingTasks returns all pending tasks
func (m *Manager) GetPendingTasks() ([]*Task, error) {
	return m.GetTasksByStatus(TaskStatusPending)
}

// GetTasksBySession returns tasks for a specific session
func (m *Manager) GetTasksBySession(sessionID string) ([]*Task, error) {
	return m.filter(func(t *Task) bool { return t.SessionID == sessionID })
}

func (m *Manager) filter(keep func(*Task) bool) ([]*Task, error) {
	tasks, err := m.store.List()
	if err != nil {
		return nil, err
	}
	var result []*Task
	for _, task := range tasks {
		if keep(task) {
			result = append(result, task)
		}
	}
	return result, nil
}

// ApproveTask approves a task for execution
func (m *Manager) ApproveTask(taskID string) error {
	return m.transition(taskID, TaskStatusApproved)
}

// RejectTask rejects a task
func (m *Manager) RejectTask(taskID string) error {
	return m.transition(taskID, TaskStatusRejected)
}

// MarkExecuting marks an approved task as executing
func (m *Manager) MarkExecuting(taskID string) error {
	return m.transition(taskID, TaskStatusExecuting)
}

func (m *Manager) transition(taskID string, to TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.store.Update(taskID, func(task *Task) error {
		if !task.TransitionStatus(to) {
			return fmt.Errorf("cannot transition task %s from %s to %s", taskID, task.Status, to)
		}
		return nil
	})
	return err
}

// SetTaskResult records the execution result and moves the task to
// completed or failed.
func (m *Manager) SetTaskResult(taskID string, result *ExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.store.Update(taskID, func(task *Task) error {
		target := TaskStatusFailed
		if result.Succeeded() {
			target = TaskStatusCompleted
		}
		if !task.CanTransitionTo(target) {
			return fmt.Errorf("cannot transition task %s from %s to %s", taskID, task.Status, target)
		}
		task.SetResult(result)
		task.TransitionStatus(target)
		return nil
	})
	return err
}

// Purge deletes every task that can no longer change and returns how many
// were removed.
func (m *Manager) Purge() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.store.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, task := range tasks {
		if !task.Terminal() {
			continue
		}
		if err := m.store.Delete(task.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
