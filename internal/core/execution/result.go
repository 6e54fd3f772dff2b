package execution

import (
	"fmt"
	"time"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

// Outcome classifies how a command run ended.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeFailed           Outcome = "failed"
	OutcomeNothingToDo      Outcome = "nothing_to_do"
	OutcomeBlocked          Outcome = "blocked"
	OutcomeDeclined         Outcome = "declined"
	OutcomeDeferred         Outcome = "deferred"
	OutcomeNotFound         Outcome = "not_found"
	OutcomePermissionDenied Outcome = "permission_denied"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeSpawnError       Outcome = "spawn_error"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeNoExecution      Outcome = "no_execution"
)

// Result is the outcome of one command.
//
// Succeeded equals ReturnCode == 0 whenever a process was spawned. When no
// process was spawned ReturnCode is nil, Succeeded is false and Stderr holds
// the reason.
type Result struct {
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	ReturnCode *int          `json:"return_code"`
	Succeeded  bool          `json:"succeeded"`
	Outcome    Outcome       `json:"outcome"`
	Duration   time.Duration `json:"duration"`
	// Direct is set when the command ran without a shell.
	Direct bool     `json:"direct"`
	Notes  []string `json:"notes,omitempty"`
}

// Spawned reports whether a process was started.
func (r *Result) Spawned() bool {
	return r.ReturnCode != nil
}

func notSpawned(outcome Outcome, reason string) *Result {
	return &Result{Stderr: reason, Outcome: outcome}
}

func exitResult(code int, stdout, stderr string) *Result {
	r := &Result{Stdout: stdout, Stderr: stderr, ReturnCode: &code, Succeeded: code == 0}
	if r.Succeeded {
		r.Outcome = OutcomeCompleted
	} else {
		r.Outcome = OutcomeFailed
	}
	return r
}

// Report is what Run returns for one directive.
type Report struct {
	Kind       directive.Kind      `json:"kind"`
	Command    string              `json:"command,omitempty"`
	Assessment security.Assessment `json:"assessment"`
	Result     *Result             `json:"result,omitempty"`
	Plan       *PlanResult         `json:"plan,omitempty"`
	Err        error               `json:"-"`
}

// Succeeded reports whether everything the report covers ran successfully.
// Informational directives succeed without running anything.
func (r *Report) Succeeded() bool {
	switch {
	case r.Err != nil:
		return false
	case r.Plan != nil:
		return r.Plan.Succeeded()
	case r.Result != nil:
		return r.Result.Succeeded
	default:
		return r.Kind == directive.KindInfo
	}
}

// Outcome returns the outcome of the command or of the failed plan step.
func (r *Report) Outcome() Outcome {
	switch {
	case r.Plan != nil:
		if step := r.Plan.Failed(); step != nil {
			return step.Report.Outcome()
		}
		return OutcomeCompleted
	case r.Result != nil:
		return r.Result.Outcome
	default:
		return OutcomeNoExecution
	}
}

// failure describes why the report did not succeed.
func (r *Report) failure() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Plan != nil && r.Plan.Err != nil {
		return r.Plan.Err
	}
	if r.Result != nil && r.Result.ReturnCode != nil && *r.Result.ReturnCode != 0 {
		return fmt.Errorf("exit status %d", *r.Result.ReturnCode)
	}
	if r.Result != nil {
		return fmt.Errorf("%s", r.Result.Outcome)
	}
	return fmt.Errorf("%s did not run", r.Kind)
}

// StepResult is the report of one plan step.
type StepResult struct {
	Index       int     `json:"index"`
	Description string  `json:"description"`
	Report      *Report `json:"report"`
}

// PlanResult aggregates the steps that ran, in declaration order. Steps
// after a failure are absent.
type PlanResult struct {
	ID    string       `json:"id"`
	Steps []StepResult `json:"steps"`
	// FailedStep is the 0-based index of the failed step, or -1.
	FailedStep int   `json:"failed_step"`
	Err        error `json:"-"`
}

// Succeeded reports whether every step ran successfully.
func (p *PlanResult) Succeeded() bool {
	return p.FailedStep < 0 && p.Err == nil
}

// Failed returns the failed step, if any.
func (p *PlanResult) Failed() *StepResult {
	if p.FailedStep < 0 {
		return nil
	}
	for i := range p.Steps {
		if p.Steps[i].Index == p.FailedStep {
			return &p.Steps[i]
		}
	}
	return nil
}
