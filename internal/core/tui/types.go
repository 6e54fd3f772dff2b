package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
)

// AuthorizeResultMsg is sent when an approval has been recorded
type AuthorizeResultMsg struct {
	TaskID  string
	Success bool
	Err     error
}

// RejectResultMsg is sent when a rejection has been recorded
type RejectResultMsg struct {
	TaskID  string
	Success bool
	Err     error
}

// TasksLoadedMsg replaces the task list
type TasksLoadedMsg struct {
	Tasks []*queue.Task
}

// Model is the interface for the TUI model
type Model interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}
