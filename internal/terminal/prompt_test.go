package terminal

import (
	"bufio"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/tui"
)

func dangerousRequest(gate execution.Gate) execution.Request {
	return execution.Request{
		Command: "rm -rf build",
		Assessment: security.Assessment{
			Level:           security.LevelPotentiallyDangerous,
			Risk:            security.RiskHigh,
			RequiresAdmin:   gate == execution.GateAdmin,
			PotentialImpact: []string{security.ImpactDataLoss},
			Recommendation:  "Double-check the target.",
		},
		Gate: gate,
	}
}

func TestConfirmWithIO_YesInput(t *testing.T) {
	output := &strings.Builder{}

	choice, err := ConfirmWithIO(dangerousRequest(execution.GateDangerous), false, strings.NewReader("y\n"), output)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if choice != tui.ChoiceApprove {
		t.Errorf("Expected approve, got %v", choice)
	}

	out := output.String()
	for _, want := range []string{"dangerous confirmation required", "rm -rf build", "Data loss", "Double-check the target."} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestConfirmWithIO_NoInput(t *testing.T) {
	choice, err := ConfirmWithIO(dangerousRequest(execution.GateSemi), false, strings.NewReader("n\n"), &strings.Builder{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if choice != tui.ChoiceDecline {
		t.Errorf("Expected decline, got %v", choice)
	}
}

func TestConfirmWithIO_InvalidThenYes(t *testing.T) {
	output := &strings.Builder{}

	choice, _ := ConfirmWithIO(dangerousRequest(execution.GateSemi), false, strings.NewReader("maybe\ny\n"), output)
	if choice != tui.ChoiceApprove {
		t.Errorf("Expected approve, got %v", choice)
	}
	if !strings.Contains(output.String(), "Please answer y or n") {
		t.Error("Expected a re-prompt for invalid input")
	}
}

func TestConfirmWithIO_AdminGate(t *testing.T) {
	tests := []struct {
		input string
		want  tui.Choice
	}{
		{"yes\n", tui.ChoiceApprove},
		{"YES\n", tui.ChoiceApprove},
		{"y\n", tui.ChoiceDecline},
		{"\n", tui.ChoiceDecline},
	}
	for _, tt := range tests {
		choice, err := ConfirmWithIO(dangerousRequest(execution.GateAdmin), false, strings.NewReader(tt.input), &strings.Builder{})
		if err != nil {
			t.Fatalf("input %q: unexpected error %v", tt.input, err)
		}
		if choice != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, choice, tt.want)
		}
	}
}

func TestConfirmWithIO_EOFDeclines(t *testing.T) {
	choice, err := ConfirmWithIO(dangerousRequest(execution.GateDangerous), false, strings.NewReader(""), &strings.Builder{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if choice != tui.ChoiceDecline {
		t.Errorf("Expected decline, got %v", choice)
	}
}

func TestConfirmWithIO_Defer(t *testing.T) {
	choice, _ := ConfirmWithIO(dangerousRequest(execution.GateDangerous), true, strings.NewReader("d\n"), &strings.Builder{})
	if choice != tui.ChoiceDefer {
		t.Errorf("Expected defer, got %v", choice)
	}

	choice, _ = ConfirmWithIO(dangerousRequest(execution.GateDangerous), false, strings.NewReader("d\n"), &strings.Builder{})
	if choice != tui.ChoiceDecline {
		t.Errorf("Expected decline when deferral is unavailable, got %v", choice)
	}
}

func newTestQueue(t *testing.T) *queue.Manager {
	t.Helper()
	q, err := queue.NewQueue(filepath.Join(t.TempDir(), "tasks.db"), "test-session")
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestPrompter_NoTerminal(t *testing.T) {
	p := &Prompter{Mode: ModeNone}

	ok, err := p.Confirm(context.Background(), dangerousRequest(execution.GateDangerous))
	if ok {
		t.Error("Expected no approval")
	}
	if !errors.Is(err, ErrNoTerminal) {
		t.Errorf("Expected ErrNoTerminal, got %v", err)
	}
}

func TestPrompter_DefersToQueue(t *testing.T) {
	q := newTestQueue(t)
	p := &Prompter{Mode: ModeNone, Queue: q}

	ok, err := p.Confirm(context.Background(), dangerousRequest(execution.GateAdmin))
	if ok {
		t.Error("Expected no approval")
	}
	if !errors.Is(err, execution.ErrDeferred) {
		t.Fatalf("Expected ErrDeferred, got %v", err)
	}

	tasks, _ := q.GetPendingTasks()
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 pending task, got %d", len(tasks))
	}
	if tasks[0].Command != "rm -rf build" || tasks[0].Gate != "admin" {
		t.Errorf("Unexpected task %+v", tasks[0])
	}
	if tasks[0].SessionID != "test-session" {
		t.Errorf("Expected session test-session, got %s", tasks[0].SessionID)
	}
}

func TestPrompter_AssumeYes(t *testing.T) {
	p := &Prompter{Mode: ModeLine, AssumeYes: true, In: strings.NewReader("n\n"), Out: &strings.Builder{}}

	ok, err := p.Confirm(context.Background(), dangerousRequest(execution.GateDangerous))
	if err != nil || !ok {
		t.Errorf("Expected approval without asking, got %v, %v", ok, err)
	}

	// The admin gate is still asked.
	ok, _ = p.Confirm(context.Background(), dangerousRequest(execution.GateAdmin))
	if ok {
		t.Error("Expected the admin gate to be asked and declined")
	}
}

func TestPrompter_LineModeSharesInput(t *testing.T) {
	p := &Prompter{Mode: ModeLine, In: bufio.NewReader(strings.NewReader("y\nn\n")), Out: &strings.Builder{}}

	first, _ := p.Confirm(context.Background(), dangerousRequest(execution.GateSemi))
	second, _ := p.Confirm(context.Background(), dangerousRequest(execution.GateSemi))
	if !first || second {
		t.Errorf("Expected approve then decline, got %v then %v", first, second)
	}
}

func TestPrompter_WithCoordinator(t *testing.T) {
	q := newTestQueue(t)
	p := &Prompter{Mode: ModeNone, Queue: q}
	c := execution.NewCoordinator(nil, execution.Policy{DangerousCheck: true, Confirm: p.Confirm, Dir: t.TempDir()}, nil)

	rep := c.RunCommand(context.Background(), "rm -rf build")

	if rep.Outcome() != execution.OutcomeDeferred {
		t.Errorf("Expected deferred outcome, got %s", rep.Outcome())
	}
	if !errors.Is(rep.Err, execution.ErrDeferred) {
		t.Errorf("Expected ErrDeferred, got %v", rep.Err)
	}
	if tasks, _ := q.GetPendingTasks(); len(tasks) != 1 {
		t.Errorf("Expected the command to be queued, got %d tasks", len(tasks))
	}
}
