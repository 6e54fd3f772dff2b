package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
)

// Renderer handles TUI rendering
type Renderer struct {
	width  int
	height int
	style  *StyleConfig
}

// StyleConfig defines visual styles
type StyleConfig struct {
	TitleColor    lipgloss.Color
	SubtleColor   lipgloss.Color
	ErrorColor    lipgloss.Color
	SuccessColor  lipgloss.Color
	WarningColor  lipgloss.Color
	SelectedColor lipgloss.Color
	BorderColor   lipgloss.Color
}

// DefaultStyleConfig returns the default style configuration
func DefaultStyleConfig() *StyleConfig {
	return &StyleConfig{
		TitleColor:    lipgloss.Color("10"),  // Green
		SubtleColor:   lipgloss.Color("241"), // Grey
		ErrorColor:    lipgloss.Color("9"),   // Red
		SuccessColor:  lipgloss.Color("10"),  // Green
		WarningColor:  lipgloss.Color("11"),  // Yellow
		SelectedColor: lipgloss.Color("12"),  // Blue
		BorderColor:   lipgloss.Color("8"),   // Dark grey
	}
}

// NewRenderer creates a new TUI renderer
func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		width:  width,
		height: height,
		style:  DefaultStyleConfig(),
	}
}

// Render renders the full queue view. The footer is pushed to the bottom of
// the window when its height is known.
func (r *Renderer) Render(mdl *model) string {
	header := r.renderHeader()
	content := r.renderTasks(mdl)
	footer := r.renderFooter(mdl)

	if r.height > 0 {
		used := countLines(header) + countLines(content) + countLines(footer)
		if pad := r.height - used; pad > 0 {
			content += strings.Repeat("\n", pad)
		}
	}
	return header + "\n" + content + footer
}

// RenderDetail shows everything recorded about one task.
func (r *Renderer) RenderDetail(task *queue.Task) string {
	if task == nil {
		return r.renderEmptyState()
	}
	label := lipgloss.NewStyle().Foreground(r.style.SubtleColor)
	a := task.Assessment

	var b strings.Builder
	b.WriteString(r.renderHeader() + "\n\n")
	fmt.Fprintf(&b, "  %s %s\n", label.Render("id:        "), task.ID)
	fmt.Fprintf(&b, "  %s %s\n", label.Render("command:   "), task.Command)
	fmt.Fprintf(&b, "  %s %s (%s risk)\n", label.Render("level:     "), a.Level, a.Risk)
	fmt.Fprintf(&b, "  %s %s\n", label.Render("gate:      "), task.Gate)
	if a.Reason != "" {
		fmt.Fprintf(&b, "  %s %s\n", label.Render("reason:    "), a.Reason)
	}
	if len(a.PotentialImpact) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", label.Render("impact:    "), strings.Join(a.PotentialImpact, "; "))
	}
	fmt.Fprintf(&b, "  %s %s\n", label.Render("created:   "), task.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	b.WriteString("\n" + label.Render("  enter to go back") + "\n")
	return b.String()
}

func (r *Renderer) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(r.style.TitleColor).
		Bold(true).
		Render("nlsh task queue")

	width := r.width
	if width <= 0 || width > 62 {
		width = 62
	}
	border := lipgloss.NewStyle().
		Foreground(r.style.BorderColor).
		Render(strings.Repeat("─", width))

	return title + "\n" + border
}

func (r *Renderer) renderTasks(mdl *model) string {
	order, grouped := mdl.groupTasksBySession()
	if len(order) == 0 {
		return r.renderEmptyState()
	}

	var result string
	for _, sessionID := range order {
		result += r.renderSessionHeader(sessionID)
		for _, task := range grouped[sessionID] {
			result += r.renderTask(mdl, task)
		}
	}
	return result + "\n"
}

func (r *Renderer) renderEmptyState() string {
	return lipgloss.NewStyle().
		Foreground(r.style.SubtleColor).
		Render("\n  no tasks waiting for a decision\n")
}

func (r *Renderer) renderSessionHeader(sessionID string) string {
	if sessionID == "" {
		sessionID = "(none)"
	}
	style := lipgloss.NewStyle().
		Foreground(r.style.SelectedColor).
		Bold(true)

	return fmt.Sprintf("\n  %s\n", style.Render("session: "+sessionID))
}

func (r *Renderer) renderTask(mdl *model, task *queue.Task) string {
	cursor := " "
	if mdl.cursor == r.getTaskIndex(mdl, task.ID) {
		cursor = ">"
	}

	line := fmt.Sprintf("  %s [%s] %s  %s\n", cursor, r.renderStatus(task.Status), r.renderCommand(task),
		lipgloss.NewStyle().Foreground(r.style.SubtleColor).Render(string(task.Assessment.Level)))

	if reason := task.Assessment.Reason; reason != "" {
		line += lipgloss.NewStyle().
			Foreground(r.style.WarningColor).
			Render("       "+reason) + "\n"
	}
	return line
}

func (r *Renderer) renderStatus(status queue.TaskStatus) string {
	var symbol string
	var color lipgloss.Color

	switch status {
	case queue.TaskStatusPending:
		symbol = " "
		color = r.style.SubtleColor
	case queue.TaskStatusApproved:
		symbol = "✓"
		color = r.style.SuccessColor
	case queue.TaskStatusRejected:
		symbol = "✗"
		color = r.style.ErrorColor
	case queue.TaskStatusExecuting:
		symbol = "⋯"
		color = r.style.WarningColor
	case queue.TaskStatusCompleted:
		symbol = "✓"
		color = r.style.SuccessColor
	case queue.TaskStatusFailed:
		symbol = "!"
		color = r.style.ErrorColor
	default:
		symbol = "?"
		color = r.style.SubtleColor
	}

	return lipgloss.NewStyle().Foreground(color).Render(symbol)
}

func (r *Renderer) renderCommand(task *queue.Task) string {
	cmdStr := task.Command

	maxLen := 60
	if r.width > 0 && r.width-20 < maxLen {
		maxLen = max(r.width-20, 20)
	}
	if runes := []rune(cmdStr); len(runes) > maxLen {
		cmdStr = string(runes[:maxLen-3]) + "..."
	}

	return lipgloss.NewStyle().
		Foreground(r.style.TitleColor).
		Render(cmdStr)
}

func (r *Renderer) renderFooter(mdl *model) string {
	style := lipgloss.NewStyle().Foreground(r.style.SubtleColor)

	footer := ""
	if mdl.status != "" {
		footer += "\n  " + mdl.status + "\n"
	}
	return footer + "\n" + style.Render(mdl.keys.footer()) + "\n"
}

func (r *Renderer) getTaskIndex(mdl *model, taskID string) int {
	for i, task := range mdl.tasks {
		if task.ID == taskID {
			return i
		}
	}
	return -1
}

// countLines counts the lines in s, including an unterminated last line
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
