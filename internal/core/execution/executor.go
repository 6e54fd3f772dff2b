package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
)

// TaskExecutor runs deferred tasks once the user has approved them.
type TaskExecutor struct {
	queue       *queue.Manager
	coordinator *Coordinator
}

// NewTaskExecutor creates a new task executor
func NewTaskExecutor(q *queue.Manager, coordinator *Coordinator) *TaskExecutor {
	return &TaskExecutor{
		queue:       q,
		coordinator: coordinator,
	}
}

// ExecuteTask runs a single approved task by ID. Approving the task counts
// as the confirmation for exactly its command; the classifier still runs and
// blocked commands stay blocked.
func (e *TaskExecutor) ExecuteTask(ctx context.Context, taskID string) (*Report, error) {
	target, err := e.queue.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	if !target.CanTransitionTo(queue.TaskStatusExecuting) {
		return nil, fmt.Errorf("task %s cannot be executed (current status: %s)",
			taskID, target.Status)
	}

	if err := e.queue.MarkExecuting(taskID); err != nil {
		return nil, fmt.Errorf("failed to mark executing: %w", err)
	}

	approved := func(_ context.Context, req Request) (bool, error) {
		return req.Command == target.Command, nil
	}
	rep := e.coordinator.WithConfirm(approved).RunCommand(ctx, target.Command)

	if err := e.queue.SetTaskResult(taskID, toQueueResult(rep)); err != nil {
		return rep, fmt.Errorf("failed to set result: %w", err)
	}
	return rep, nil
}

// ExecuteAllApproved runs every approved task in creation order. A task that
// fails does not stop the others; the joined errors are returned.
func (e *TaskExecutor) ExecuteAllApproved(ctx context.Context) ([]*Report, error) {
	tasks, err := e.queue.GetTasksByStatus(queue.TaskStatusApproved)
	if err != nil {
		return nil, err
	}

	var reports []*Report
	var errs []error
	for _, task := range tasks {
		rep, err := e.ExecuteTask(ctx, task.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

func toQueueResult(rep *Report) *queue.ExecutionResult {
	out := &queue.ExecutionResult{ExitCode: -1}
	if rep.Plan != nil {
		out.ExitCode = 0
		for _, step := range rep.Plan.Steps {
			if step.Report.Result != nil {
				out.Output += step.Report.Result.Stdout
			}
		}
	}
	if r := rep.Result; r != nil {
		out.Output = r.Stdout
		out.Stderr = r.Stderr
		if r.ReturnCode != nil {
			out.ExitCode = *r.ReturnCode
		}
	}
	if !rep.Succeeded() {
		out.Error = rep.failure().Error()
		if out.ExitCode == 0 {
			out.ExitCode = 1
		}
	}
	return out
}
