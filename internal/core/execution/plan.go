package execution

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
)

// MaxPlanDepth limits plans whose steps are themselves plans.
const MaxPlanDepth = 4

type planDepthKey struct{}

func planDepth(ctx context.Context) int {
	d, _ := ctx.Value(planDepthKey{}).(int)
	return d
}

// RunPlan runs the steps in declaration order. Step N+1 starts only after
// step N has finished, and the first failing step halts the plan.
func (c *Coordinator) RunPlan(ctx context.Context, plan *directive.Plan) *PlanResult {
	res := &PlanResult{ID: uuid.NewString(), FailedStep: -1}
	entry := c.log.WithField("plan", res.ID)

	depth := planDepth(ctx)
	if depth >= MaxPlanDepth {
		res.Err = &ExtractionError{Message: fmt.Sprintf("plans nested deeper than %d levels", MaxPlanDepth)}
		return res
	}
	ctx = context.WithValue(ctx, planDepthKey{}, depth+1)

	if plan == nil || len(plan.Steps) == 0 {
		entry.Debug("empty plan")
		return res
	}

	for i, step := range plan.Steps {
		sr := StepResult{Index: i, Description: step.Description}

		cmd, err := step.Command()
		if err != nil {
			sr.Report = c.extractionFailure(directive.KindPlan, err.Error(), "")
		} else {
			sr.Report = c.RunCommand(ctx, cmd)
		}
		res.Steps = append(res.Steps, sr)

		if !sr.Report.Succeeded() {
			res.FailedStep = i
			res.Err = fmt.Errorf("step %d (%s) failed: %w", i+1, stepLabel(step, cmd), sr.Report.failure())
			entry.WithFields(logrus.Fields{"step": i + 1, "outcome": sr.Report.Outcome()}).Warn("plan halted")
			return res
		}
	}
	entry.WithField("steps", len(res.Steps)).Info("plan finished")
	return res
}

func stepLabel(step directive.PlanStep, cmd string) string {
	if step.Description != "" {
		return step.Description
	}
	if cmd != "" {
		return cmd
	}
	return step.Operation
}
