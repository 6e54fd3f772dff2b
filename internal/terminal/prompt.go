package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/tui"
)

// ErrNoTerminal is returned when a confirmation is needed but there is no
// one to ask.
var ErrNoTerminal = errors.New("confirmation needs an interactive terminal")

// Mode selects how confirmations are asked.
type Mode int

const (
	// ModeNone never asks; requests are deferred or declined.
	ModeNone Mode = iota
	// ModeLine asks with plain line prompts.
	ModeLine
	// ModeTUI asks with a bubbletea prompt.
	ModeTUI
)

// Prompter answers confirmation requests for the coordinator.
type Prompter struct {
	Mode Mode
	In   io.Reader
	Out  io.Writer
	// Queue, when set, lets requests be deferred as pending tasks.
	Queue *queue.Manager
	// AssumeYes approves every gate except the admin gate.
	AssumeYes bool

	lines *bufio.Reader
}

// Lines returns the buffered reader line prompts read from, so that other
// line readers on the same input can share it.
func (p *Prompter) Lines() *bufio.Reader {
	if p.lines == nil {
		in := p.In
		if in == nil {
			in = os.Stdin
		}
		p.lines = lineReader(in)
	}
	return p.lines
}

// NewPrompter picks ModeTUI when stdin and stdout are terminals and ModeNone
// otherwise. plain downgrades ModeTUI to ModeLine.
func NewPrompter(in *os.File, out *os.File, plain bool) *Prompter {
	p := &Prompter{Mode: ModeNone, In: in, Out: out}
	if IsInteractive(in, out) {
		p.Mode = ModeTUI
		if plain {
			p.Mode = ModeLine
		}
	}
	return p
}

// IsInteractive reports whether both files are terminals.
func IsInteractive(in, out *os.File) bool {
	return in != nil && out != nil &&
		term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd()))
}

// Confirm implements execution.ConfirmFunc.
func (p *Prompter) Confirm(ctx context.Context, req execution.Request) (bool, error) {
	if p.AssumeYes && req.Gate != execution.GateAdmin {
		return true, nil
	}

	var (
		choice tui.Choice
		err    error
	)
	switch p.Mode {
	case ModeTUI:
		choice, err = p.askTUI(ctx, req)
	case ModeLine:
		choice, err = ConfirmWithIO(req, p.Queue != nil, p.Lines(), p.Out)
	default:
		if p.Queue == nil {
			return false, ErrNoTerminal
		}
		choice = tui.ChoiceDefer
	}
	if err != nil {
		return false, err
	}

	switch choice {
	case tui.ChoiceApprove:
		return true, nil
	case tui.ChoiceDefer:
		return false, p.deferRequest(req)
	default:
		return false, nil
	}
}

func (p *Prompter) deferRequest(req execution.Request) error {
	if p.Queue == nil {
		return ErrNoTerminal
	}
	task, err := p.Queue.AddTask(req.Command, req.Assessment, string(req.Gate))
	if err != nil {
		return fmt.Errorf("failed to queue task: %w", err)
	}
	return fmt.Errorf("%w: queued as task %s, approve it with 'nlsh tasks'", execution.ErrDeferred, task.ID)
}

func (p *Prompter) askTUI(ctx context.Context, req execution.Request) (tui.Choice, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	// Only a file keeps raw terminal input.
	if f, ok := p.In.(*os.File); ok {
		opts = append(opts, tea.WithInput(f))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}

	final, err := tea.NewProgram(tui.NewConfirmModel(req, p.Queue != nil), opts...).Run()
	if err != nil {
		return tui.ChoiceNone, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	m, ok := final.(tui.ConfirmModel)
	if !ok {
		return tui.ChoiceNone, nil
	}
	return m.Choice(), nil
}

// ConfirmWithIO asks on plain lines. The admin gate needs the word "yes";
// other gates take y or n. End of input declines.
func ConfirmWithIO(req execution.Request, canDefer bool, input io.Reader, output io.Writer) (tui.Choice, error) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}
	reader := lineReader(input)

	a := req.Assessment
	fmt.Fprintf(output, "\n⚠️  %s confirmation required\n\n", req.Gate)
	fmt.Fprintf(output, "Command: %s\n", req.Command)
	fmt.Fprintf(output, "Level:   %s (risk %s)\n", a.Level, a.Risk)
	if len(a.PotentialImpact) > 0 {
		fmt.Fprintf(output, "Impact:  %s\n", strings.Join(a.PotentialImpact, ", "))
	}
	if a.Recommendation != "" {
		fmt.Fprintf(output, "Note:    %s\n", a.Recommendation)
	}

	deferHint := ""
	if canDefer {
		deferHint = "  [d] queue for later"
	}
	if req.Gate == execution.GateAdmin {
		fmt.Fprintf(output, "\nType %q to run%s\n> ", tui.AdminWord, deferHint)
	} else {
		fmt.Fprintf(output, "\n[y] run  [n] skip%s\n> ", deferHint)
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(output)
				return tui.ChoiceDecline, nil
			}
			return tui.ChoiceNone, err
		}
		choice := strings.ToLower(strings.TrimSpace(line))

		if canDefer && (choice == "d" || choice == "defer") {
			fmt.Fprintln(output, "⏸  queued")
			return tui.ChoiceDefer, nil
		}

		if req.Gate == execution.GateAdmin {
			if choice == tui.AdminWord {
				fmt.Fprintln(output, "✓ confirmed")
				return tui.ChoiceApprove, nil
			}
			fmt.Fprintln(output, "✗ not confirmed")
			return tui.ChoiceDecline, nil
		}

		switch choice {
		case "y", "yes":
			fmt.Fprintln(output, "✓ confirmed")
			return tui.ChoiceApprove, nil
		case "n", "no", "":
			fmt.Fprintln(output, "⊘ skipped")
			return tui.ChoiceDecline, nil
		default:
			fmt.Fprint(output, "Please answer y or n: ")
		}
	}
}

// lineReader reuses a buffered reader so that prompts and the REPL can share
// one input stream without losing buffered lines.
func lineReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}
