package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
)

// getRunCommand returns the run command
func getRunCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [id...]",
		Short: "Run approved tasks",
		Long: `Run approved tasks from the queue, or only the ones named.

Each command is classified again before it runs; approval stands in for its
confirmation, but commands the safety policy blocks stay blocked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprovedTasks(cmd, root, args)
		},
	}
}

func runApprovedTasks(cmd *cobra.Command, root *rootOptions, ids []string) error {
	a, err := newApp(root, appNeeds{queue: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	executor := execution.NewTaskExecutor(a.queue, a.coordinator)

	if len(ids) == 0 {
		reports, err := executor.ExecuteAllApproved(ctx)
		if len(reports) == 0 && err == nil {
			fmt.Fprintln(out, "no approved tasks to run")
			fmt.Fprintln(out, "hint: review the queue with 'nlsh tasks'")
			return nil
		}
		return summarize(out, a.queue, err)
	}

	var failed error
	for _, id := range ids {
		full, err := resolveTaskID(a.queue, id)
		if err != nil {
			return err
		}
		if _, err := executor.ExecuteTask(ctx, full); err != nil {
			failed = err
			fmt.Fprintf(out, "  ✗ [%s] %v\n", shortTaskID(full), err)
		}
	}
	return summarize(out, a.queue, failed)
}

// summarize prints the tasks that finished and returns a non-zero exit when
// any of them failed.
func summarize(out io.Writer, q *queue.Manager, runErr error) error {
	tasks, err := q.GetAllTasks()
	if err != nil {
		return err
	}

	executed, failed := 0, 0
	for _, task := range tasks {
		switch task.Status {
		case queue.TaskStatusCompleted:
			executed++
			fmt.Fprintf(out, "  ✓ [%s] %s\n", shortTaskID(task.ID), task.Command)
			if task.Result != nil && task.Result.Output != "" {
				fmt.Fprint(out, indent(task.Result.Output))
			}
		case queue.TaskStatusFailed:
			executed++
			failed++
			fmt.Fprintf(out, "  ✗ [%s] %s\n", shortTaskID(task.ID), task.Command)
			if task.Result != nil && task.Result.Error != "" {
				fmt.Fprintf(out, "    error: %s\n", task.Result.Error)
			}
		}
	}

	fmt.Fprintf(out, "\n%d tasks finished", executed)
	if failed > 0 {
		fmt.Fprintf(out, " (%d failed)", failed)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "hint: clear finished tasks with 'nlsh tasks purge'")

	if failed > 0 || runErr != nil {
		return &exitError{code: 1}
	}
	return nil
}

func indent(s string) string {
	s = strings.TrimRight(s, "\n")
	return "    " + strings.ReplaceAll(s, "\n", "\n    ") + "\n"
}
