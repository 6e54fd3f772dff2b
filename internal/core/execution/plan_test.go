package execution

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

func TestRunPlan_StopsAtFirstFailure(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	c := newCoordinator(t, Policy{DangerousCheck: true, Dir: dir})

	plan, err := directive.DecodePlan([]byte(`{"plan":[
		{"description":"always fails","parameters":{"command":"false"}},
		{"description":"leave a marker","parameters":{"command":"touch marker"}}
	]}`))
	require.NoError(t, err)

	res := c.RunPlan(context.Background(), plan)

	assert.False(t, res.Succeeded())
	assert.Equal(t, 0, res.FailedStep)
	require.Len(t, res.Steps, 1)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "step 1")
	assert.Contains(t, res.Err.Error(), "always fails")
	assert.NoFileExists(t, filepath.Join(dir, "marker"))

	failed := res.Failed()
	require.NotNil(t, failed)
	assert.Equal(t, OutcomeFailed, failed.Report.Outcome())
}

func TestRunPlan_RunsInOrder(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	c := newCoordinator(t, Policy{DangerousCheck: true, Dir: dir})

	plan, err := directive.DecodePlan([]byte(`{"plan":[
		{"description":"create","parameters":{"command":"mkdir out"}},
		{"description":"write","operation":"write","parameters":{"filename":"out/log.txt","content":"first"}},
		{"description":"append","operation":"append","parameters":{"filename":"out/log.txt","content":"second"}}
	]}`))
	require.NoError(t, err)

	res := c.RunPlan(context.Background(), plan)

	require.NoError(t, res.Err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, -1, res.FailedStep)
	require.Len(t, res.Steps, 3)
	for i, step := range res.Steps {
		assert.Equal(t, i, step.Index)
	}
	assert.NotEmpty(t, res.ID)

	data, err := os.ReadFile(filepath.Join(dir, "out", "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestRunPlan_UnresolvableStep(t *testing.T) {
	c := newCoordinator(t, Policy{})

	plan, err := directive.DecodePlan([]byte(`{"plan":[{"description":"nothing here"}]}`))
	require.NoError(t, err)

	res := c.RunPlan(context.Background(), plan)

	assert.Equal(t, 0, res.FailedStep)
	assert.ErrorIs(t, res.Err, ErrExtraction)
}

func TestRunPlan_BlockedStepHalts(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	spy := &confirmSpy{approve: true}
	c := newCoordinator(t, Policy{SafeMode: true, DangerousCheck: true, Confirm: spy.confirm, Dir: dir})

	plan, err := directive.DecodePlan([]byte(`{"plan":[
		{"description":"list","parameters":{"command":"ls"}},
		{"description":"wipe","parameters":{"command":"rm -rf /"}},
		{"description":"after","parameters":{"command":"touch after"}}
	]}`))
	require.NoError(t, err)

	res := c.RunPlan(context.Background(), plan)

	assert.Equal(t, 1, res.FailedStep)
	require.Len(t, res.Steps, 2)
	assert.ErrorIs(t, res.Err, ErrBlocked)
	assert.Contains(t, res.Err.Error(), "step 2")
	assert.Empty(t, spy.requests)
	assert.NoFileExists(t, filepath.Join(dir, "after"))
}

func TestRun_PlanDirective(t *testing.T) {
	requireUnix(t)
	c := newCoordinator(t, Policy{DangerousCheck: true})

	plan, err := directive.DecodePlan([]byte(`{"plan":[{"parameters":{"command":"echo one"}}],"overall_confidence":0.7}`))
	require.NoError(t, err)

	rep := c.Run(context.Background(), directive.NewPlan(plan, plan.OverallConfidence))

	require.NoError(t, rep.Err)
	assert.Equal(t, directive.KindPlan, rep.Kind)
	assert.True(t, rep.Succeeded())
	assert.Equal(t, OutcomeCompleted, rep.Outcome())
	assert.InDelta(t, 0.7, rep.Assessment.Confidence, 1e-9)
}

func TestRun_PlanReportCarriesStepRisk(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0o755))
	spy := &confirmSpy{approve: false}
	c := newCoordinator(t, Policy{DangerousCheck: true, Confirm: spy.confirm, Dir: dir})

	plan, err := directive.DecodePlan([]byte(`{"plan":[
		{"description":"greet","parameters":{"command":"echo one"}},
		{"description":"clean","parameters":{"command":"rm -rf build"}}
	]}`))
	require.NoError(t, err)

	rep := c.Run(context.Background(), directive.NewPlan(plan, plan.OverallConfidence))

	assert.Equal(t, security.LevelJSONPlan, rep.Assessment.Level)
	assert.Equal(t, security.RiskHigh, rep.Assessment.Risk)
	assert.True(t, rep.Assessment.RequiresAdmin)
	assert.ErrorIs(t, rep.Err, ErrDeclined)
	assert.DirExists(t, filepath.Join(dir, "build"))
}

func TestRunPlan_Empty(t *testing.T) {
	c := newCoordinator(t, Policy{})

	res := c.RunPlan(context.Background(), &directive.Plan{})
	assert.True(t, res.Succeeded())
	assert.Empty(t, res.Steps)
}
