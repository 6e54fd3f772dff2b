package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

var (
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headingStyle = lipgloss.NewStyle().Bold(true)

	badgeBase   = lipgloss.NewStyle().Padding(0, 1).Bold(true)
	levelColors = map[security.SafetyLevel]lipgloss.Color{
		security.LevelSafe:                 "10",
		security.LevelRequiresShellEscape:  "12",
		security.LevelJSONPlan:             "12",
		security.LevelNotInWhitelist:       "11",
		security.LevelSemiDangerous:        "11",
		security.LevelPotentiallyDangerous: "9",
	}
)

// Renderer prints responses for people. Plain output carries no colors and
// no markdown rendering.
type Renderer struct {
	out      io.Writer
	plain    bool
	markdown *glamour.TermRenderer
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, width int, plain bool) *Renderer {
	r := &Renderer{out: out, plain: plain}
	if plain {
		return r
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.markdown = md
	}
	return r
}

// Markdown renders markdown, or returns it unchanged when rendering is off
// or fails.
func (r *Renderer) Markdown(md string) string {
	if r.markdown == nil {
		return md
	}
	out, err := r.markdown.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// Badge renders a safety level.
func (r *Renderer) Badge(level security.SafetyLevel) string {
	if level == "" {
		return ""
	}
	if r.plain {
		return "[" + string(level) + "]"
	}
	color, ok := levelColors[level]
	if !ok {
		color = "241"
	}
	return badgeBase.Foreground(color).Render(string(level))
}

// Response prints the outcome of a processed request.
func (r *Renderer) Response(resp *core.Response) {
	switch resp.Kind {
	case directive.KindInfo:
		r.info(resp.Info())
		return
	case directive.KindError, directive.KindUnparseable:
		r.extractionError(resp)
		return
	}

	if resp.Report != nil && resp.Report.Plan != nil {
		r.plan(resp.Report.Plan)
		return
	}

	fmt.Fprintf(r.out, "%s %s\n", r.style(commandStyle, "$ "+resp.Command), r.Badge(resp.Level()))
	if resp.FromCache {
		fmt.Fprintln(r.out, r.style(mutedStyle, "(cached)"))
	}
	r.result(resp.Result(), resp.Err)
}

// Explanation prints a classified but unexecuted request.
func (r *Renderer) Explanation(resp *core.Response) {
	switch resp.Kind {
	case directive.KindInfo:
		r.info(resp.Info())
		return
	case directive.KindError, directive.KindUnparseable:
		r.extractionError(resp)
		return
	}

	if resp.Command != "" {
		fmt.Fprintf(r.out, "%s %s\n", r.style(commandStyle, "$ "+resp.Command), r.Badge(resp.Level()))
	} else {
		fmt.Fprintf(r.out, "%s %s\n", r.style(headingStyle, "plan"), r.Badge(resp.Level()))
	}
	r.assessment(resp.Assessment)
	if d := resp.Directive; d.Shell != nil && d.Shell.Explanation != "" {
		fmt.Fprintf(r.out, "  %s\n", d.Shell.Explanation)
	}
	for _, step := range resp.Steps {
		if step.Error != "" {
			fmt.Fprintf(r.out, "  %d. %s: %s\n", step.Index+1, step.Description, r.style(failStyle, step.Error))
			continue
		}
		fmt.Fprintf(r.out, "  %d. %s %s\n", step.Index+1, r.style(commandStyle, step.Command), r.Badge(step.Assessment.Level))
	}
	if resp.Err != nil {
		fmt.Fprintln(r.out, r.style(failStyle, "✗ "+resp.Err.Error()))
	}
}

func (r *Renderer) assessment(a security.Assessment) {
	fmt.Fprintf(r.out, "  risk: %s, confidence: %.2f\n", a.Risk, a.Confidence)
	if len(a.PotentialImpact) > 0 {
		fmt.Fprintf(r.out, "  impact: %s\n", strings.Join(a.PotentialImpact, ", "))
	}
	if a.Recommendation != "" {
		fmt.Fprintf(r.out, "  %s\n", a.Recommendation)
	}
}

func (r *Renderer) info(info *directive.InfoResponse) {
	if info == nil {
		return
	}
	if info.Topic != "" {
		fmt.Fprintln(r.out, r.style(headingStyle, info.Topic))
	}
	fmt.Fprint(r.out, ensureNewline(r.Markdown(info.Body)))
	if info.RelatedCommand != "" {
		fmt.Fprintf(r.out, "related: %s\n", r.style(commandStyle, info.RelatedCommand))
	}
}

func (r *Renderer) extractionError(resp *core.Response) {
	msg := "nothing executable was found"
	suggested := ""
	if e := resp.Directive.Error; e != nil {
		msg, suggested = e.Message, e.SuggestedApproach
	} else if u := resp.Directive.Unparseable; u != nil {
		msg = u.Reason
	}
	fmt.Fprintln(r.out, r.style(failStyle, "✗ "+msg))
	if suggested != "" {
		fmt.Fprintln(r.out, r.style(mutedStyle, "  try: "+suggested))
	}
}

func (r *Renderer) plan(p *execution.PlanResult) {
	for _, step := range p.Steps {
		rep := step.Report
		label := step.Description
		if label == "" {
			label = rep.Command
		}
		fmt.Fprintf(r.out, "%s %s %s\n",
			r.style(headingStyle, fmt.Sprintf("[%d]", step.Index+1)), label, r.Badge(rep.Assessment.Level))
		if rep.Command != "" && rep.Command != label {
			fmt.Fprintln(r.out, "    "+r.style(commandStyle, "$ "+rep.Command))
		}
		r.result(rep.Result, rep.Err)
	}
	if p.Err != nil {
		fmt.Fprintln(r.out, r.style(failStyle, "✗ plan stopped: "+p.Err.Error()))
	} else {
		fmt.Fprintln(r.out, r.style(okStyle, fmt.Sprintf("✓ plan finished, %d steps", len(p.Steps))))
	}
}

func (r *Renderer) result(res *execution.Result, err error) {
	if res == nil {
		if err != nil {
			fmt.Fprintln(r.out, r.style(failStyle, "✗ "+err.Error()))
		}
		return
	}

	if res.Stdout != "" {
		fmt.Fprint(r.out, ensureNewline(res.Stdout))
	}
	for _, note := range res.Notes {
		fmt.Fprintln(r.out, r.style(mutedStyle, "note: "+note))
	}

	switch {
	case !res.Spawned():
		msg := string(res.Outcome)
		if err != nil {
			msg = err.Error()
		}
		fmt.Fprintln(r.out, r.style(failStyle, "✗ "+msg))
	case res.Succeeded:
		if res.Stderr != "" {
			fmt.Fprint(r.out, r.style(mutedStyle, ensureNewline(res.Stderr)))
		}
	default:
		if res.Stderr != "" {
			fmt.Fprint(r.out, ensureNewline(res.Stderr))
		}
		msg := fmt.Sprintf("exit status %d", *res.ReturnCode)
		if err != nil {
			msg = err.Error()
		}
		fmt.Fprintln(r.out, r.style(failStyle, "✗ "+msg))
	}
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
