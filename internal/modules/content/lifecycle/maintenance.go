package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
)

// Jobs lists every job Dispatch understands, in their daily order.
var Jobs = []string{
	jobtypes.TypeLifecycle,
	jobtypes.TypeRecycle,
	jobtypes.TypeStreaks,
	jobtypes.TypeSubscriptions,
	jobtypes.TypeIntegrity,
}

// Dispatch runs the named job and returns its summary.
func (s *Scheduler) Dispatch(ctx context.Context, job, trigger string) (any, error) {
	switch job {
	case jobtypes.TypeLifecycle:
		return s.Run(ctx, trigger)
	case jobtypes.TypeRecycle:
		return s.Recycle(ctx, trigger)
	case jobtypes.TypeStreaks:
		return s.ResetStreaks(ctx, trigger)
	case jobtypes.TypeSubscriptions:
		return s.ExpireSubscriptions(ctx, trigger)
	case jobtypes.TypeIntegrity:
		return s.IntegritySweep(ctx, trigger)
	}
	return nil, fmt.Errorf("unknown job %q", job)
}

// Recycle republishes proven content: published items older than the
// recycle age that clear the like, view and like/dislike thresholds, best
// liked first. Each gets a fresh publish date and its recycle count bumped.
func (s *Scheduler) Recycle(ctx context.Context, trigger string) (*JobSummary, error) {
	return s.runJob(ctx, jobtypes.TypeRecycle, trigger, func(ctx context.Context, sum *JobSummary) error {
		p := s.cfg.Recycle
		now := s.clock.Now()
		cutoff := now.Add(-p.MinAge)
		minLikes, minViews := p.MinLikes, p.MinViews
		items, err := s.repos.Content.Find(ctx, repos.ContentFilter{
			Statuses:          []types.Status{types.StatusPublished},
			PublishedBefore:   &cutoff,
			LikesAbove:        &minLikes,
			ViewsAbove:        &minViews,
			LikesOverDislikes: p.LikesOverDislikes,
			Sort: []repos.Sort{
				{Field: repos.SortLikes, Desc: true},
				{Field: repos.SortViews, Desc: true},
			},
			Limit: p.Limit,
		})
		if err != nil {
			return err
		}
		for _, c := range items {
			at := now
			count := c.RecycleCount + 1
			updated, err := s.repos.Content.UpdateByID(ctx, c.ID, repos.ContentPatch{PublishDate: &at, RecycleCount: &count})
			if err != nil {
				sum.Failed++
				sum.Errors = append(sum.Errors, fmt.Sprintf("content %s: %v", c.ID, err))
				s.log.Error("Recycle failed", "content_id", c.ID, "error", err)
				continue
			}
			if updated != nil {
				sum.Affected++
			}
		}
		return nil
	})
}

// ResetStreaks zeroes the streak of every user inactive for longer than
// StreakInactivity.
func (s *Scheduler) ResetStreaks(ctx context.Context, trigger string) (*JobSummary, error) {
	return s.runJob(ctx, jobtypes.TypeStreaks, trigger, func(ctx context.Context, sum *JobSummary) error {
		n, err := s.repos.Users.ResetInactiveStreaks(ctx, s.clock.Now().Add(-s.cfg.StreakInactivity))
		if err != nil {
			return err
		}
		sum.Affected = int(n)
		return nil
	})
}

func (s *Scheduler) ExpireSubscriptions(ctx context.Context, trigger string) (*JobSummary, error) {
	return s.runJob(ctx, jobtypes.TypeSubscriptions, trigger, func(ctx context.Context, sum *JobSummary) error {
		n, err := s.repos.Users.ExpireSubscriptions(ctx, s.clock.Now())
		if err != nil {
			return err
		}
		sum.Affected = int(n)
		return nil
	})
}

// IntegritySweep runs the duplicate sweep on its own and then drops archive
// copies older than the reconcile grace whose source is still live.
func (s *Scheduler) IntegritySweep(ctx context.Context, trigger string) (*JobSummary, error) {
	return s.runJob(ctx, jobtypes.TypeIntegrity, trigger, func(ctx context.Context, sum *JobSummary) error {
		res, err := s.detector.Sweep(ctx)
		if err != nil {
			return err
		}
		orphans, err := s.repos.Transitions.Reconcile(ctx, s.clock.Now().Add(-s.cfg.ReconcileGrace))
		if err != nil {
			return err
		}
		sum.Affected = res.Archived + orphans
		sum.Failed = res.Failed
		sum.Details = map[string]int{
			"compared":            res.Compared,
			"duplicates_detected": res.Detected,
			"duplicates_archived": res.Archived,
			"orphans_removed":     orphans,
		}
		return nil
	})
}

func (s *Scheduler) runJob(ctx context.Context, job, trigger string, fn func(context.Context, *JobSummary) error) (*JobSummary, error) {
	if trigger == "" {
		trigger = jobtypes.TriggerScheduled
	}
	sum := &JobSummary{RunID: uuid.New(), Job: job, Trigger: trigger, StartedAt: s.clock.Now()}

	unlock, ok := s.acquire(ctx, job)
	if !ok {
		sum.Skipped = true
		sum.SkipReason = "lock held by another run"
		sum.FinishedAt = s.clock.Now()
		s.log.Info("Job skipped", "job", job, "run_id", sum.RunID, "reason", sum.SkipReason)
		s.beginRun(ctx, job, trigger, sum.RunID, sum.StartedAt)
		s.finishRun(ctx, job, trigger, sum.RunID, jobtypes.StatusSkipped, nil, sum)
		return sum, nil
	}
	defer unlock()

	s.beginRun(ctx, job, trigger, sum.RunID, sum.StartedAt)
	ctx, span := s.tracer.Start(ctx, "lifecycle."+job, trace.WithAttributes(
		attribute.String("lifecycle.run_id", sum.RunID.String()),
		attribute.String("lifecycle.trigger", trigger),
	))
	defer span.End()

	err := fn(ctx, sum)
	sum.FinishedAt = s.clock.Now()
	span.SetAttributes(attribute.Int("job.affected", sum.Affected), attribute.Int("job.failed", sum.Failed))
	if err != nil {
		span.RecordError(err)
		s.log.Error("Job failed", "job", job, "run_id", sum.RunID, "error", err)
		s.finishRun(ctx, job, trigger, sum.RunID, jobtypes.StatusFailed, err, sum)
		return sum, err
	}
	s.log.Info("Job finished", "job", job, "run_id", sum.RunID, "trigger", trigger,
		"affected", sum.Affected, "failed", sum.Failed)
	s.finishRun(ctx, job, trigger, sum.RunID, jobtypes.StatusSucceeded, nil, sum)
	return sum, nil
}
