package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/jobs"
)

type jobOutput struct {
	Affected int    `json:"affected"`
	Trigger  string `json:"trigger"`
}

func newEnv(t *testing.T, reg *jobs.Registry) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Registry: reg}
	env.RegisterActivityWithOptions(acts.RunJob, activity.RegisterOptions{Name: ActivityRunJob})
	return env
}

func TestWorkflow_RunsJob(t *testing.T) {
	reg := jobs.NewRegistry()
	require.NoError(t, reg.Register(jobtypes.TypeRecycle, func(_ context.Context, trigger string) (any, error) {
		return jobOutput{Affected: 3, Trigger: trigger}, nil
	}))
	env := newEnv(t, reg)

	env.ExecuteWorkflow(Workflow, Task{Job: jobtypes.TypeRecycle, Trigger: jobtypes.TriggerManual})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res TaskResult
	require.NoError(t, env.GetWorkflowResult(&res))
	require.Equal(t, jobtypes.TypeRecycle, res.Job)

	var out jobOutput
	require.NoError(t, json.Unmarshal(res.Summary, &out))
	require.Equal(t, 3, out.Affected)
	require.Equal(t, jobtypes.TriggerManual, out.Trigger)
}

func TestWorkflow_DefaultsToScheduledTrigger(t *testing.T) {
	var got string
	reg := jobs.NewRegistry()
	require.NoError(t, reg.Register(jobtypes.TypeStreaks, func(_ context.Context, trigger string) (any, error) {
		got = trigger
		return nil, nil
	}))
	env := newEnv(t, reg)

	env.ExecuteWorkflow(Workflow, Task{Job: jobtypes.TypeStreaks})
	require.NoError(t, env.GetWorkflowError())
	require.Equal(t, jobtypes.TriggerScheduled, got)
}

func TestWorkflow_JobFailureFailsWorkflowWithoutRetry(t *testing.T) {
	calls := 0
	reg := jobs.NewRegistry()
	require.NoError(t, reg.Register(jobtypes.TypeLifecycle, func(context.Context, string) (any, error) {
		calls++
		return nil, errors.New("no active categories")
	}))
	env := newEnv(t, reg)

	env.ExecuteWorkflow(Workflow, Task{Job: jobtypes.TypeLifecycle})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Equal(t, 1, calls)
}

func TestWorkflow_PanicIsReportedAsError(t *testing.T) {
	reg := jobs.NewRegistry()
	require.NoError(t, reg.Register(jobtypes.TypeIntegrity, func(context.Context, string) (any, error) {
		panic("boom")
	}))
	env := newEnv(t, reg)

	env.ExecuteWorkflow(Workflow, Task{Job: jobtypes.TypeIntegrity})
	require.Error(t, env.GetWorkflowError())
}

func TestWorkflow_UnknownJob(t *testing.T) {
	env := newEnv(t, jobs.NewRegistry())
	env.ExecuteWorkflow(Workflow, Task{Job: "nope"})
	require.Error(t, env.GetWorkflowError())

	env = newEnv(t, jobs.NewRegistry())
	env.ExecuteWorkflow(Workflow, Task{})
	require.Error(t, env.GetWorkflowError())
}
