package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/tui"
	"github.com/Lin-Jiong-HDU/nlsh/internal/terminal"
)

// getTasksCommand returns the tasks command
func getTasksCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Review commands waiting for approval",
		Long: `Open the task queue to approve or reject deferred commands.

Approved tasks run with 'nlsh run'. Without a terminal the queue is listed
instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, root)
		},
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List queued tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(root, func(q *queue.Manager) error {
				return listTasks(cmd.OutOrStdout(), q, all)
			})
		},
	}
	list.Flags().BoolVarP(&all, "all", "a", false, "include finished tasks")

	approve := &cobra.Command{
		Use:   "approve <id>...",
		Short: "Approve tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(root, func(q *queue.Manager) error {
				return eachTask(cmd.OutOrStdout(), q, args, "approved", q.ApproveTask)
			})
		},
	}

	reject := &cobra.Command{
		Use:   "reject <id>...",
		Short: "Reject tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(root, func(q *queue.Manager) error {
				return eachTask(cmd.OutOrStdout(), q, args, "rejected", q.RejectTask)
			})
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete finished and rejected tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(root, func(q *queue.Manager) error {
				n, err := q.Purge()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d tasks\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(list, approve, reject, purge)
	return cmd
}

func runTasks(cmd *cobra.Command, root *rootOptions) error {
	return withQueue(root, func(q *queue.Manager) error {
		if !terminal.IsInteractive(os.Stdin, os.Stdout) {
			return listTasks(cmd.OutOrStdout(), q, false)
		}

		tasks, err := q.GetAllTasks()
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}

		onAuthorize, onReject, reload := tui.QueueHandlers(q)
		model := tui.NewModelWithOptions(tasks, onAuthorize, onReject, reload)

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	})
}

// withQueue opens the task queue for the duration of fn.
func withQueue(root *rootOptions, fn func(q *queue.Manager) error) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	q, err := queue.NewQueue(cfg.QueuePath(), "")
	if err != nil {
		return err
	}
	defer q.Close()
	return fn(q)
}

func listTasks(w io.Writer, q *queue.Manager, all bool) error {
	tasks, err := q.GetAllTasks()
	if err != nil {
		return err
	}

	now := time.Now()
	shown := 0
	for _, task := range tasks {
		if !all && task.Terminal() {
			continue
		}
		shown++
		fmt.Fprintf(w, "%s  %-9s  %-22s  %4s  %s\n",
			shortTaskID(task.ID), task.Status, task.Assessment.Level, taskAge(task.CreatedAt, now), task.Command)
		if all && task.Result != nil && task.Result.Error != "" {
			fmt.Fprintf(w, "          error: %s\n", task.Result.Error)
		}
	}
	if shown == 0 {
		fmt.Fprintln(w, "no tasks")
	}
	return nil
}

// eachTask applies action to every task named by a full ID or a unique
// prefix.
func eachTask(w io.Writer, q *queue.Manager, ids []string, verb string, action func(string) error) error {
	for _, id := range ids {
		full, err := resolveTaskID(q, id)
		if err != nil {
			return err
		}
		if err := action(full); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", verb, shortTaskID(full))
	}
	return nil
}

func resolveTaskID(q *queue.Manager, prefix string) (string, error) {
	tasks, err := q.GetAllTasks()
	if err != nil {
		return "", err
	}
	var match string
	for _, task := range tasks {
		if task.ID == prefix {
			return task.ID, nil
		}
		if len(prefix) >= 4 && len(task.ID) > len(prefix) && task.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("task ID %q is ambiguous", prefix)
			}
			match = task.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", queue.ErrTaskNotFound, prefix)
	}
	return match, nil
}

func shortTaskID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// taskAge renders how long ago a task was queued.
func taskAge(t time.Time, now time.Time) string {
	d := now.Sub(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
