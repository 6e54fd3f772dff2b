package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// binding ties an action to the keys that trigger it. Keys are spelled the
// way tea.KeyMsg.String reports them.
type binding struct {
	keys  []string
	shown string
	label string
}

func newBinding(shown, label string, keys ...string) binding {
	return binding{keys: keys, shown: shown, label: label}
}

// Matches reports whether msg is one of the binding's keys.
func (b binding) Matches(msg tea.KeyMsg) bool {
	s := msg.String()
	for _, k := range b.keys {
		if k == s {
			return true
		}
	}
	return false
}

func (b binding) hint() string {
	return b.shown + " " + b.label
}

// queueKeys are the bindings of the task queue browser.
type queueKeys struct {
	Up, Down, Top, Bottom binding
	Approve, Reject       binding
	ApproveAll, RejectAll binding
	Detail, Quit          binding
}

func newQueueKeys() queueKeys {
	return queueKeys{
		Up:         newBinding("↑/k", "up", "k", "up"),
		Down:       newBinding("↓/j", "down", "j", "down"),
		Top:        newBinding("gg", "first task", "g"),
		Bottom:     newBinding("G", "last task", "G"),
		Approve:    newBinding("a", "approve", "a"),
		Reject:     newBinding("r", "reject", "r"),
		ApproveAll: newBinding("A", "approve all pending", "A"),
		RejectAll:  newBinding("R", "reject all pending", "R"),
		Detail:     newBinding("enter", "toggle detail", "enter"),
		Quit:       newBinding("q", "quit", "q", "esc", "ctrl+c"),
	}
}

// footer is the one-line reminder under the task list.
func (k queueKeys) footer() string {
	parts := make([]string, 0, 5)
	for _, b := range []binding{k.Approve, k.Reject, k.ApproveAll, k.Detail, k.Quit} {
		parts = append(parts, "["+b.hint()+"]")
	}
	return strings.Join(parts, " ")
}

// help lists every binding.
func (k queueKeys) help() string {
	all := []binding{k.Up, k.Down, k.Top, k.Bottom, k.Approve, k.Reject, k.ApproveAll, k.RejectAll, k.Detail, k.Quit}
	parts := make([]string, 0, len(all))
	for _, b := range all {
		parts = append(parts, b.hint())
	}
	return strings.Join(parts, "  ")
}

// confirmKeys are the single-key answers of a confirmation prompt. The admin
// gate ignores them and waits for a typed word.
type confirmKeys struct {
	Run, Skip, Defer, Cancel binding
}

func newConfirmKeys() confirmKeys {
	return confirmKeys{
		Run:    newBinding("y", "run it", "y", "Y"),
		Skip:   newBinding("n", "skip", "n", "N", "enter"),
		Defer:  newBinding("d", "queue for later", "d", "D"),
		Cancel: newBinding("esc", "skip", "esc", "ctrl+c"),
	}
}

// prompt renders the answers on offer.
func (k confirmKeys) prompt(canDefer bool) string {
	hints := []string{k.Run.hint(), k.Skip.hint() + " (default)"}
	if canDefer {
		hints = append(hints, k.Defer.hint())
	}
	return strings.Join(hints, ", ")
}
