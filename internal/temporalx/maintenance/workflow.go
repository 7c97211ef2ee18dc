package maintenance

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
)

// Workflow runs a single maintenance job. The activity is attempted once.
func Workflow(ctx workflow.Context, task Task) (TaskResult, error) {
	task.Job = strings.TrimSpace(task.Job)
	if task.Job == "" {
		return TaskResult{}, fmt.Errorf("maintenance: missing job")
	}
	if task.Trigger == "" {
		task.Trigger = jobtypes.TriggerScheduled
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out TaskResult
	if err := workflow.ExecuteActivity(ctx, ActivityRunJob, task).Get(ctx, &out); err != nil {
		return TaskResult{Job: task.Job, Trigger: task.Trigger}, err
	}
	workflow.GetLogger(ctx).Info("Maintenance job finished", "job", task.Job, "trigger", task.Trigger)
	return out, nil
}
