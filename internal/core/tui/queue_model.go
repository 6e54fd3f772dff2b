package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
)

// TaskReloadFunc reloads a task from the queue
type TaskReloadFunc func(taskID string) *queue.Task

// model is the Bubble Tea model for the task queue
type model struct {
	tasks          []*queue.Task
	cursor         int
	keys           queueKeys
	showingDetail  bool
	onAuthorize    func(string) tea.Cmd
	onReject       func(string) tea.Cmd
	taskReloadFunc TaskReloadFunc
	pendingG       bool // 'g' pressed once, waiting for 'gg'
	status         string
	width          int
	height         int
}

// NewModel creates a queue model whose actions only update the view
func NewModel(tasks []*queue.Task) Model {
	return NewModelWithOptions(tasks, nil, nil, nil)
}

// NewModelWithOptions creates a queue model with approve/reject handlers
func NewModelWithOptions(tasks []*queue.Task, onAuthorize, onReject func(string) tea.Cmd, taskReloadFunc TaskReloadFunc) Model {
	if onAuthorize == nil {
		onAuthorize = defaultAuthorizeHandler
	}
	if onReject == nil {
		onReject = defaultRejectHandler
	}

	return model{
		tasks:          visible(tasks),
		keys:           newQueueKeys(),
		onAuthorize:    onAuthorize,
		onReject:       onReject,
		taskReloadFunc: taskReloadFunc,
	}
}

// QueueHandlers returns approve/reject handlers and a reload function that
// act on q.
func QueueHandlers(q *queue.Manager) (onAuthorize, onReject func(string) tea.Cmd, reload TaskReloadFunc) {
	onAuthorize = func(id string) tea.Cmd {
		return func() tea.Msg {
			err := q.ApproveTask(id)
			return AuthorizeResultMsg{TaskID: id, Success: err == nil, Err: err}
		}
	}
	onReject = func(id string) tea.Cmd {
		return func() tea.Msg {
			err := q.RejectTask(id)
			return RejectResultMsg{TaskID: id, Success: err == nil, Err: err}
		}
	}
	reload = func(id string) *queue.Task {
		task, err := q.GetTask(id)
		if err != nil {
			return nil
		}
		return task
	}
	return onAuthorize, onReject, reload
}

func defaultAuthorizeHandler(taskID string) tea.Cmd {
	return func() tea.Msg {
		return AuthorizeResultMsg{TaskID: taskID, Success: true}
	}
}

func defaultRejectHandler(taskID string) tea.Cmd {
	return func() tea.Msg {
		return RejectResultMsg{TaskID: taskID, Success: true}
	}
}

// visible keeps the tasks that still need attention.
func visible(tasks []*queue.Task) []*queue.Task {
	var out []*queue.Task
	for _, task := range tasks {
		if task.Status == queue.TaskStatusPending || task.Status == queue.TaskStatusApproved {
			out = append(out, task)
		}
	}
	return out
}

// Init requests the window size
func (m model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TasksLoadedMsg:
		m.tasks = visible(msg.Tasks)
		if m.cursor >= len(m.tasks) {
			m.cursor = max(len(m.tasks)-1, 0)
		}
		return m, nil

	case AuthorizeResultMsg:
		if !msg.Success {
			m.status = "approve failed: " + errString(msg.Err)
			return m, nil
		}
		m.updateTask(msg.TaskID, queue.TaskStatusApproved)
		m.status = "approved " + shortID(msg.TaskID) + "; run `nlsh run` to execute"
		return m, nil

	case RejectResultMsg:
		if !msg.Success {
			m.status = "reject failed: " + errString(msg.Err)
			return m, nil
		}
		m.updateTask(msg.TaskID, queue.TaskStatusRejected)
		m.status = "rejected " + shortID(msg.TaskID)
		return m, nil
	}

	return m, nil
}

// updateTask refreshes a task from the queue, or sets its status locally.
func (m *model) updateTask(taskID string, status queue.TaskStatus) {
	for i, task := range m.tasks {
		if task.ID != taskID {
			continue
		}
		if m.taskReloadFunc != nil {
			if fresh := m.taskReloadFunc(taskID); fresh != nil {
				m.tasks[i] = fresh
				return
			}
		}
		updated := *task
		updated.Status = status
		m.tasks[i] = &updated
		return
	}
}

func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	top := m.pendingG
	m.pendingG = false

	switch {
	case k.Quit.Matches(msg):
		return m, tea.Quit
	case k.Detail.Matches(msg):
		m.showingDetail = !m.showingDetail
	case k.Up.Matches(msg):
		if m.cursor > 0 {
			m.cursor--
		}
	case k.Down.Matches(msg):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case k.Top.Matches(msg):
		if top {
			m.cursor = 0
		} else {
			m.pendingG = true
		}
	case k.Bottom.Matches(msg):
		if len(m.tasks) > 0 {
			m.cursor = len(m.tasks) - 1
		}
	case k.Approve.Matches(msg):
		if task := m.current(); task != nil && task.Status == queue.TaskStatusPending {
			return m, m.onAuthorize(task.ID)
		}
	case k.Reject.Matches(msg):
		if task := m.current(); task != nil && !task.Terminal() {
			return m, m.onReject(task.ID)
		}
	case k.ApproveAll.Matches(msg):
		return m, m.forPending(m.onAuthorize)
	case k.RejectAll.Matches(msg):
		return m, m.forPending(m.onReject)
	}
	return m, nil
}

func (m model) current() *queue.Task {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return nil
	}
	return m.tasks[m.cursor]
}

func (m model) forPending(action func(string) tea.Cmd) tea.Cmd {
	var cmds []tea.Cmd
	for _, task := range m.tasks {
		if task.Status == queue.TaskStatusPending {
			cmds = append(cmds, action(task.ID))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// View renders the UI
func (m model) View() string {
	r := NewRenderer(m.width, m.height)
	if m.showingDetail {
		return r.RenderDetail(m.current())
	}
	return r.Render(&m)
}

// groupTasksBySession groups tasks in order of first appearance.
func (m model) groupTasksBySession() ([]string, map[string][]*queue.Task) {
	var order []string
	grouped := make(map[string][]*queue.Task)
	for _, task := range m.tasks {
		if _, seen := grouped[task.SessionID]; !seen {
			order = append(order, task.SessionID)
		}
		grouped[task.SessionID] = append(grouped[task.SessionID], task)
	}
	return order, grouped
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
