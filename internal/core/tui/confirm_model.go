package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
)

// Choice is the answer given in a confirmation prompt.
type Choice int

const (
	ChoiceNone Choice = iota
	ChoiceApprove
	ChoiceDecline
	ChoiceDefer
)

// AdminWord must be typed to pass the admin gate.
const AdminWord = "yes"

// ConfirmModel asks whether one command may run. The admin gate needs the
// full word typed; the other gates take a single key.
type ConfirmModel struct {
	keys     confirmKeys
	req      execution.Request
	canDefer bool
	typed    string
	choice   Choice
}

// NewConfirmModel creates a prompt for req.
func NewConfirmModel(req execution.Request, canDefer bool) ConfirmModel {
	return ConfirmModel{keys: newConfirmKeys(), req: req, canDefer: canDefer}
}

// Choice returns the answer, or ChoiceNone if the prompt was abandoned.
func (m ConfirmModel) Choice() Choice {
	return m.choice
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.keys.Cancel.Matches(k) {
		m.choice = ChoiceDecline
		return m, tea.Quit
	}

	if m.req.Gate == execution.GateAdmin {
		return m.updateAdmin(k)
	}

	switch {
	case m.keys.Run.Matches(k):
		m.choice = ChoiceApprove
		return m, tea.Quit
	case m.keys.Skip.Matches(k):
		m.choice = ChoiceDecline
		return m, tea.Quit
	case m.keys.Defer.Matches(k) && m.canDefer:
		m.choice = ChoiceDefer
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) updateAdmin(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		switch strings.ToLower(strings.TrimSpace(m.typed)) {
		case AdminWord:
			m.choice = ChoiceApprove
		case "d", "defer":
			if !m.canDefer {
				m.choice = ChoiceDecline
				break
			}
			m.choice = ChoiceDefer
		default:
			m.choice = ChoiceDecline
		}
		return m, tea.Quit
	case tea.KeyBackspace:
		if r := []rune(m.typed); len(r) > 0 {
			m.typed = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.typed += string(k.Runes)
	}
	return m, nil
}

var (
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	cmdStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.choice != ChoiceNone {
		return ""
	}
	a := m.req.Assessment

	var b strings.Builder
	title := warnStyle.Render(fmt.Sprintf("%s confirmation", m.req.Gate))
	if m.req.Gate == execution.GateAdmin || m.req.Gate == execution.GateDangerous {
		title = dangerStyle.Render(fmt.Sprintf("%s confirmation", m.req.Gate))
	}
	b.WriteString(title + "\n\n")
	b.WriteString("  " + cmdStyle.Render(m.req.Command) + "\n\n")
	fmt.Fprintf(&b, "  level: %s, risk: %s\n", a.Level, a.Risk)
	for _, impact := range a.PotentialImpact {
		b.WriteString("  - " + impact + "\n")
	}
	if a.Recommendation != "" {
		b.WriteString("  " + a.Recommendation + "\n")
	}
	b.WriteString("\n")

	if m.req.Gate == execution.GateAdmin {
		deferHint := ""
		if m.canDefer {
			deferHint = ", or \"defer\" to " + m.keys.Defer.label
		}
		b.WriteString(hintStyle.Render(fmt.Sprintf("Type %q and press enter to run%s: ", AdminWord, deferHint)))
		b.WriteString(m.typed)
	} else {
		b.WriteString(hintStyle.Render("Run it? " + m.keys.prompt(m.canDefer) + " "))
	}
	return b.String()
}
