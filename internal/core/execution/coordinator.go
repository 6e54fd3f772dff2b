package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

// whitelistNote is attached to results that ran through the whitelist gate.
const whitelistNote = "whitelist override confirmed; this does not guarantee the command can be spawned"

// Coordinator gates directives through the classifier and the confirmation
// policy, then runs them.
type Coordinator struct {
	classifier *security.Classifier
	policy     Policy
	log        *logrus.Logger
}

// NewCoordinator creates a coordinator. The classifier's mode flags are
// replaced by the policy's.
func NewCoordinator(classifier *security.Classifier, policy Policy, log *logrus.Logger) *Coordinator {
	policy = policy.Effective()
	if classifier == nil {
		classifier = security.NewClassifier(nil, nil)
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Coordinator{
		classifier: classifier.WithFlags(policy.SafeMode, policy.DangerousCheck),
		policy:     policy,
		log:        log,
	}
}

// Policy returns the effective policy.
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// WithConfirm returns a copy of the coordinator using a different callback.
func (c *Coordinator) WithConfirm(confirm ConfirmFunc) *Coordinator {
	cp := *c
	cp.policy.Confirm = confirm
	return &cp
}

// Assess classifies a command under the coordinator's flags.
func (c *Coordinator) Assess(command string) security.Assessment {
	return c.classifier.Assess(command)
}

// Run executes a directive. Informational directives run nothing; errors and
// unparseable payloads are reported as extraction failures.
func (c *Coordinator) Run(ctx context.Context, d directive.Directive) *Report {
	switch d.Kind() {
	case directive.KindShellCommand:
		return c.RunCommand(ctx, d.Shell.Text)

	case directive.KindFileOperation:
		cmd, ok := d.File.Command()
		if !ok {
			return c.extractionFailure(directive.KindFileOperation,
				fmt.Sprintf("file operation %q is missing required parameters", d.File.Op), "")
		}
		rep := c.RunCommand(ctx, cmd)
		rep.Kind = directive.KindFileOperation
		return rep

	case directive.KindPlan:
		a := c.AssessPlan(d.Plan)
		plan := c.RunPlan(ctx, d.Plan)
		return &Report{
			Kind:       directive.KindPlan,
			Assessment: a,
			Plan:       plan,
			Err:        plan.Err,
		}

	case directive.KindInfo:
		return &Report{Kind: directive.KindInfo}

	case directive.KindUnparseable:
		return c.extractionFailure(directive.KindUnparseable, d.Unparseable.Reason, "")

	default:
		msg, suggested := "no directive", ""
		if d.Error != nil {
			msg, suggested = d.Error.Message, d.Error.SuggestedApproach
		}
		return c.extractionFailure(directive.KindError, msg, suggested)
	}
}

// AssessPlan classifies a plan without running it.
func (c *Coordinator) AssessPlan(plan *directive.Plan) security.Assessment {
	return c.classifier.AssessPlan(plan)
}

// RunCommand classifies a command line and, if the policy allows, runs it.
func (c *Coordinator) RunCommand(ctx context.Context, command string) *Report {
	a := c.classifier.Assess(command)
	rep := &Report{Kind: directive.KindShellCommand, Command: command, Assessment: a}
	entry := c.log.WithFields(logrus.Fields{"command": command, "level": a.Level})

	var notes []string
	switch a.Level {
	case security.LevelEmpty:
		rep.Result = notSpawned(OutcomeNothingToDo, "nothing to do")
		entry.WithField("outcome", OutcomeNothingToDo).Debug("empty command")
		return rep

	case security.LevelJSONPlan:
		return c.runEmbeddedPlan(ctx, rep)

	case security.LevelPotentiallyDangerous:
		if a.Restricted {
			return c.refuse(rep, entry, ErrBlocked, OutcomeBlocked, a.Recommendation)
		}
		if c.policy.SafeMode {
			return c.refuse(rep, entry, ErrBlocked, OutcomeBlocked, "dangerous commands are blocked in safe mode")
		}
		gate := GateDangerous
		if a.RequiresAdmin {
			gate = GateAdmin
		}
		if err := c.confirm(ctx, command, a, gate); err != nil {
			return c.refuseErr(rep, entry, err)
		}

	case security.LevelSemiDangerous:
		if err := c.confirm(ctx, command, a, GateSemi); err != nil {
			return c.refuseErr(rep, entry, err)
		}

	case security.LevelNotInWhitelist:
		if c.policy.SafeMode {
			if err := c.confirm(ctx, command, a, GateWhitelist); err != nil {
				return c.refuseErr(rep, entry, err)
			}
			notes = append(notes, whitelistNote)
		}
	}

	res, err := c.spawn(ctx, command)
	res.Notes = append(notes, res.Notes...)
	rep.Result = res
	rep.Err = err

	entry = entry.WithFields(logrus.Fields{"outcome": res.Outcome, "direct": res.Direct, "duration": res.Duration})
	if err != nil {
		entry.WithError(err).Warn("command did not complete")
	} else {
		entry.Info("command finished")
	}
	return rep
}

func (c *Coordinator) runEmbeddedPlan(ctx context.Context, rep *Report) *Report {
	plan, err := directive.DecodePlan([]byte(strings.TrimSpace(rep.Command)))
	if err != nil {
		return c.extractionFailure(directive.KindPlan, err.Error(), "")
	}
	rep.Kind = directive.KindPlan
	rep.Plan = c.RunPlan(ctx, plan)
	rep.Err = rep.Plan.Err
	return rep
}

// confirm asks the callback. A missing callback counts as a decline.
func (c *Coordinator) confirm(ctx context.Context, command string, a security.Assessment, gate Gate) error {
	if c.policy.Confirm == nil {
		return &PolicyError{Reason: ErrDeclined, Assessment: a, Message: "confirmation required but no prompt is available"}
	}
	ok, err := c.policy.Confirm(ctx, Request{Command: command, Assessment: a, Gate: gate})
	if errors.Is(err, ErrDeferred) {
		return &PolicyError{Reason: ErrDeferred, Assessment: a, Message: err.Error()}
	}
	if err != nil {
		return &PolicyError{Reason: ErrDeclined, Assessment: a, Message: err.Error()}
	}
	if !ok {
		return &PolicyError{Reason: ErrDeclined, Assessment: a, Message: fmt.Sprintf("%s confirmation not given", gate)}
	}
	return nil
}

func (c *Coordinator) refuse(rep *Report, entry *logrus.Entry, reason error, outcome Outcome, msg string) *Report {
	rep.Err = &PolicyError{Reason: reason, Assessment: rep.Assessment, Message: msg}
	rep.Result = notSpawned(outcome, rep.Err.Error())
	entry.WithField("outcome", outcome).Warn("command refused")
	return rep
}

func (c *Coordinator) refuseErr(rep *Report, entry *logrus.Entry, err error) *Report {
	outcome := OutcomeDeclined
	if errors.Is(err, ErrDeferred) {
		outcome = OutcomeDeferred
	}
	rep.Err = err
	rep.Result = notSpawned(outcome, err.Error())
	entry.WithField("outcome", outcome).Info("command not confirmed")
	return rep
}

func (c *Coordinator) extractionFailure(kind directive.Kind, msg, suggested string) *Report {
	err := &ExtractionError{Message: msg, SuggestedApproach: suggested}
	c.log.WithFields(logrus.Fields{"kind": kind, "outcome": OutcomeExtractionFailed}).Debug(msg)
	return &Report{
		Kind:   kind,
		Result: notSpawned(OutcomeExtractionFailed, msg),
		Err:    err,
	}
}
