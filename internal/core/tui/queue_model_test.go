package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

func pendingTasks(ids ...string) []*queue.Task {
	var tasks []*queue.Task
	for _, id := range ids {
		tasks = append(tasks, &queue.Task{ID: id, SessionID: "s1", Command: "rm -rf " + id, Status: queue.TaskStatusPending})
	}
	return tasks
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	tasks := pendingTasks("1")
	tasks = append(tasks, &queue.Task{ID: "done", Status: queue.TaskStatusCompleted})

	m, ok := NewModel(tasks).(model)
	if !ok {
		t.Fatal("Expected model type")
	}
	if len(m.tasks) != 1 {
		t.Errorf("Expected finished tasks to be hidden, got %d tasks", len(m.tasks))
	}
	if m.cursor != 0 {
		t.Errorf("Expected cursor at 0, got %d", m.cursor)
	}
}

func TestModel_Init(t *testing.T) {
	m := NewModel(nil).(model)
	if m.Init() == nil {
		t.Error("Expected command from Init to get window size")
	}
}

func TestModel_Update_Navigation(t *testing.T) {
	m := NewModel(pendingTasks("1", "2", "3")).(model)

	next, _ := m.Update(runes("j"))
	m = next.(model)
	if m.cursor != 1 {
		t.Errorf("Expected cursor at 1, got %d", m.cursor)
	}

	next, _ = m.Update(runes("G"))
	m = next.(model)
	if m.cursor != 2 {
		t.Errorf("Expected cursor at 2, got %d", m.cursor)
	}

	next, _ = m.Update(runes("j"))
	m = next.(model)
	if m.cursor != 2 {
		t.Errorf("Expected cursor to stay at the bottom, got %d", m.cursor)
	}

	next, _ = m.Update(runes("g"))
	next, _ = next.(model).Update(runes("g"))
	m = next.(model)
	if m.cursor != 0 {
		t.Errorf("Expected cursor at 0 after gg, got %d", m.cursor)
	}

	next, _ = m.Update(runes("k"))
	if next.(model).cursor != 0 {
		t.Error("Expected cursor to stay at the top")
	}
}

func TestModel_Update_AuthorizeKey(t *testing.T) {
	m := NewModel(pendingTasks("1")).(model)

	next, cmd := m.Update(runes("a"))
	if cmd == nil {
		t.Fatal("Expected command from authorize")
	}
	msg := cmd()
	if _, ok := msg.(AuthorizeResultMsg); !ok {
		t.Fatalf("Expected AuthorizeResultMsg, got %T", msg)
	}

	next, _ = next.(model).Update(msg)
	m2 := next.(model)
	if m2.tasks[0].Status != queue.TaskStatusApproved {
		t.Errorf("Expected status approved, got %s", m2.tasks[0].Status)
	}
	if !strings.Contains(m2.status, "nlsh run") {
		t.Errorf("Expected a hint to run approved tasks, got %q", m2.status)
	}

	// Approving an approved task does nothing.
	if _, cmd := m2.Update(runes("a")); cmd != nil {
		t.Error("Expected no command for an approved task")
	}
}

func TestModel_Update_RejectFailure(t *testing.T) {
	failing := func(id string) tea.Cmd {
		return func() tea.Msg { return RejectResultMsg{TaskID: id, Err: errors.New("locked")} }
	}
	m := NewModelWithOptions(pendingTasks("1"), nil, failing, nil).(model)

	_, cmd := m.Update(runes("r"))
	next, _ := m.Update(cmd())
	m2 := next.(model)
	if m2.tasks[0].Status != queue.TaskStatusPending {
		t.Errorf("Expected status unchanged, got %s", m2.tasks[0].Status)
	}
	if !strings.Contains(m2.status, "locked") {
		t.Errorf("Expected the error in the status line, got %q", m2.status)
	}
}

func TestModel_Update_AuthorizeAll(t *testing.T) {
	m := NewModel(pendingTasks("1", "2")).(model)

	if _, cmd := m.Update(runes("A")); cmd == nil {
		t.Error("Expected a batch command")
	}
	if _, cmd := NewModel(nil).Update(runes("A")); cmd != nil {
		t.Error("Expected no command without pending tasks")
	}
}

func TestModel_Update_ReloadsFromQueue(t *testing.T) {
	reload := func(id string) *queue.Task {
		return &queue.Task{ID: id, Command: "reloaded", Status: queue.TaskStatusApproved}
	}
	m := NewModelWithOptions(pendingTasks("1"), nil, nil, reload).(model)

	next, _ := m.Update(AuthorizeResultMsg{TaskID: "1", Success: true})
	if got := next.(model).tasks[0].Command; got != "reloaded" {
		t.Errorf("Expected the reloaded task, got %q", got)
	}
}

func TestModel_Update_QuitKey(t *testing.T) {
	m := NewModel(nil).(model)

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected QuitMsg")
	}
}

func TestModel_View(t *testing.T) {
	tasks := pendingTasks("1")
	tasks[0].Assessment = security.Assessment{Level: security.LevelPotentiallyDangerous, Reason: "recursive delete"}
	m := NewModel(tasks).(model)

	view := m.View()
	for _, want := range []string{"nlsh task queue", "session: s1", "rm -rf 1", "recursive delete"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	detail := next.(model).View()
	if !strings.Contains(detail, "POTENTIALLY_DANGEROUS") {
		t.Error("Expected the detail view to show the level")
	}

	if !strings.Contains(NewModel(nil).View(), "no tasks") {
		t.Error("Expected the empty state")
	}
}

func TestModel_Update_TasksLoaded(t *testing.T) {
	m := NewModel(pendingTasks("1", "2", "3")).(model)
	m.cursor = 2

	next, _ := m.Update(TasksLoadedMsg{Tasks: pendingTasks("1")})
	m2 := next.(model)
	if len(m2.tasks) != 1 || m2.cursor != 0 {
		t.Errorf("Expected one task with the cursor clamped, got %d tasks, cursor %d", len(m2.tasks), m2.cursor)
	}
}
