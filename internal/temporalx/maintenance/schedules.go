package maintenance

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/jobs"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

func ScheduleID(job string) string { return "hackfeed-" + job }

// EnsureSchedules creates one Temporal schedule per job. A schedule that
// already exists is left as is.
func EnsureSchedules(ctx context.Context, c temporalsdkclient.Client, taskQueue string, schedules []jobs.Schedule, log *logger.Logger) error {
	if c == nil {
		return fmt.Errorf("temporal client is not configured")
	}
	if err := jobs.ValidateSchedules(schedules); err != nil {
		return err
	}
	sc := c.ScheduleClient()
	for _, s := range schedules {
		id := ScheduleID(s.Job)
		_, err := sc.Create(ctx, temporalsdkclient.ScheduleOptions{
			ID: id,
			Spec: temporalsdkclient.ScheduleSpec{
				CronExpressions: []string{s.Spec},
				TimeZoneName:    "UTC",
			},
			Action: &temporalsdkclient.ScheduleWorkflowAction{
				ID:        id + "-run",
				Workflow:  WorkflowName,
				Args:      []interface{}{Task{Job: s.Job, Trigger: jobtypes.TriggerScheduled}},
				TaskQueue: taskQueue,
			},
			Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		})
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create schedule %s: %w", id, err)
		}
		if log != nil {
			log.Info("Temporal schedule ready", "schedule_id", id, "spec", s.Spec, "created", err == nil)
		}
	}
	return nil
}

// Trigger starts a manual run of job and waits for its result.
func Trigger(ctx context.Context, c temporalsdkclient.Client, taskQueue, job string) (TaskResult, error) {
	if c == nil {
		return TaskResult{}, fmt.Errorf("temporal client is not configured")
	}
	run, err := c.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		TaskQueue: taskQueue,
	}, WorkflowName, Task{Job: job, Trigger: jobtypes.TriggerManual})
	if err != nil {
		return TaskResult{}, fmt.Errorf("start %s workflow: %w", job, err)
	}
	var out TaskResult
	if err := run.Get(ctx, &out); err != nil {
		return out, err
	}
	return out, nil
}

func isAlreadyExists(err error) bool {
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return true
	}
	var exists *serviceerror.AlreadyExists
	return errors.As(err, &exists)
}
