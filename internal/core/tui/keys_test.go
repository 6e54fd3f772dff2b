package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestBinding_Matches(t *testing.T) {
	keys := newQueueKeys()

	tests := []struct {
		name string
		b    binding
		msg  tea.KeyMsg
		want bool
	}{
		{"k moves up", keys.Up, runes("k"), true},
		{"arrow moves up", keys.Up, tea.KeyMsg{Type: tea.KeyUp}, true},
		{"j is not up", keys.Up, runes("j"), false},
		{"esc quits", keys.Quit, tea.KeyMsg{Type: tea.KeyEsc}, true},
		{"ctrl+c quits", keys.Quit, tea.KeyMsg{Type: tea.KeyCtrlC}, true},
		{"enter toggles detail", keys.Detail, tea.KeyMsg{Type: tea.KeyEnter}, true},
		{"approve all is upper case", keys.ApproveAll, runes("a"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Matches(tt.msg); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.msg.String(), got, tt.want)
			}
		})
	}
}

func TestQueueKeys_Footer(t *testing.T) {
	footer := newQueueKeys().footer()
	for _, want := range []string{"[a approve]", "[r reject]", "[enter toggle detail]", "[q quit]"} {
		if !strings.Contains(footer, want) {
			t.Errorf("Expected footer to contain %q, got %q", want, footer)
		}
	}

	help := newQueueKeys().help()
	if !strings.Contains(help, "gg first task") || !strings.Contains(help, "R reject all pending") {
		t.Errorf("Expected every binding in help, got %q", help)
	}
}

func TestConfirmKeys_Prompt(t *testing.T) {
	keys := newConfirmKeys()

	if p := keys.prompt(true); !strings.Contains(p, "d queue for later") {
		t.Errorf("Expected the defer key when deferring is possible, got %q", p)
	}
	if p := keys.prompt(false); strings.Contains(p, "queue for later") {
		t.Errorf("Expected no defer key, got %q", p)
	}
	if !keys.Skip.Matches(tea.KeyMsg{Type: tea.KeyEnter}) {
		t.Error("Expected enter to skip")
	}
}
