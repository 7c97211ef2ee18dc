package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/yungbote/hackfeed-backend/internal/jobs"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type Activities struct {
	Log      *logger.Logger
	Registry *jobs.Registry
	// HeartbeatEvery defaults to 10s.
	HeartbeatEvery time.Duration
}

func (a *Activities) RunJob(ctx context.Context, task Task) (TaskResult, error) {
	res := TaskResult{Job: task.Job, Trigger: task.Trigger}
	if a == nil || a.Registry == nil {
		return res, fmt.Errorf("maintenance: activity not configured")
	}
	h, ok := a.Registry.Get(task.Job)
	if !ok {
		return res, fmt.Errorf("maintenance: no handler registered for job=%s", task.Job)
	}

	stopHB := a.startHeartbeat(ctx)
	defer stopHB()

	var (
		summary any
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				if a.Log != nil {
					a.Log.Error("Job handler panic", "job", task.Job, "panic", r)
				}
				err = fmt.Errorf("maintenance: job %s panicked", task.Job)
			}
		}()
		summary, err = h(ctx, task.Trigger)
	}()

	if summary != nil {
		if raw, mErr := json.Marshal(summary); mErr == nil {
			res.Summary = raw
		}
	}
	return res, err
}

func (a *Activities) startHeartbeat(ctx context.Context) func() {
	every := a.HeartbeatEvery
	if every <= 0 {
		every = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
