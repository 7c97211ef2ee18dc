package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

// Schedule binds a job to a standard five-field cron expression (UTC).
type Schedule struct {
	Job  string `yaml:"job" json:"job"`
	Spec string `yaml:"spec" json:"spec"`
}

// DefaultSchedules runs each daily job at its own hour.
func DefaultSchedules() []Schedule {
	return []Schedule{
		{Job: jobtypes.TypeLifecycle, Spec: "0 0 * * *"},
		{Job: jobtypes.TypeRecycle, Spec: "0 1 * * *"},
		{Job: jobtypes.TypeStreaks, Spec: "0 2 * * *"},
		{Job: jobtypes.TypeSubscriptions, Spec: "0 3 * * *"},
		{Job: jobtypes.TypeIntegrity, Spec: "0 4 * * *"},
	}
}

const hourMask = uint64(1)<<24 - 1

// ValidateSchedules parses every spec and rejects two jobs that could fire in
// the same hour.
func ValidateSchedules(schedules []Schedule) error {
	hours := map[string]uint64{}
	for _, s := range schedules {
		parsed, err := cron.ParseStandard(s.Spec)
		if err != nil {
			return fmt.Errorf("job %s: bad cron spec %q: %w", s.Job, s.Spec, err)
		}
		spec, ok := parsed.(*cron.SpecSchedule)
		if !ok {
			return fmt.Errorf("job %s: spec %q is not an hourly schedule", s.Job, s.Spec)
		}
		if _, dup := hours[s.Job]; dup {
			return fmt.Errorf("job %s scheduled twice", s.Job)
		}
		h := spec.Hour & hourMask
		for other, oh := range hours {
			if h&oh != 0 {
				return fmt.Errorf("jobs %s and %s share an hour", other, s.Job)
			}
		}
		hours[s.Job] = h
	}
	return nil
}

type RunnerDeps struct {
	Log       *logger.Logger
	Registry  *Registry
	Schedules []Schedule
	// Timeout bounds a single scheduled run; zero means no bound.
	Timeout time.Duration
}

// Runner fires registered jobs on their cron schedules. A run that is still
// going when its next tick arrives is skipped, and a panicking handler is
// logged without taking the process down.
type Runner struct {
	log      *logger.Logger
	registry *Registry
	cron     *cron.Cron
	timeout  time.Duration
	ids      map[string]cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewRunner(deps RunnerDeps) (*Runner, error) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "CronRunner")
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	schedules := deps.Schedules
	if len(schedules) == 0 {
		schedules = DefaultSchedules()
	}
	if err := ValidateSchedules(schedules); err != nil {
		return nil, err
	}

	cl := cronLogger{log: log}
	r := &Runner{
		log:      log,
		registry: deps.Registry,
		timeout:  deps.Timeout,
		ids:      map[string]cron.EntryID{},
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	for _, s := range schedules {
		job := s.Job
		if _, ok := deps.Registry.Get(job); !ok {
			return nil, fmt.Errorf("no handler registered for job=%s", job)
		}
		id, err := r.cron.AddFunc(s.Spec, func() { r.fire(job) })
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", job, err)
		}
		r.ids[job] = id
		log.Info("Job scheduled", "job", job, "spec", s.Spec)
	}
	return r, nil
}

// Start begins firing jobs. Cancelling ctx stops the runner.
func (r *Runner) Start(ctx context.Context) {
	r.cron.Start()
	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.ctx.Done():
		}
	}()
}

// Stop halts the schedule and waits for running jobs to return.
func (r *Runner) Stop() {
	done := r.cron.Stop()
	r.cancel()
	<-done.Done()
}

// Next reports the next fire time per job. Zero until Start is called.
func (r *Runner) Next() map[string]time.Time {
	out := make(map[string]time.Time, len(r.ids))
	for job, id := range r.ids {
		out[job] = r.cron.Entry(id).Next
	}
	return out
}

func (r *Runner) fire(job string) {
	h, ok := r.registry.Get(job)
	if !ok {
		r.log.Warn("No handler registered for job", "job", job)
		return
	}
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("Job handler panic", "job", job, "panic", v)
		}
	}()

	start := time.Now()
	if _, err := h(ctx, jobtypes.TriggerScheduled); err != nil {
		r.log.Error("Scheduled job failed", "job", job, "error", err, "duration", time.Since(start).String())
		return
	}
	r.log.Info("Scheduled job done", "job", job, "duration", time.Since(start).String())
}

type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
