// Package lifecycle runs the daily content batch: generate new drafts, retire
// what is currently published, promote a random set of drafts, then sweep the
// corpus for duplicates. It also owns the smaller maintenance jobs (recycle,
// streaks, subscriptions, integrity).
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	usertypes "github.com/yungbote/hackfeed-backend/internal/domain/user"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/dedup"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/generator"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type Deps struct {
	Log       *logger.Logger
	Clock     clock.Clock
	Rand      *rand.Rand
	Config    Config
	Generator generator.Generator
	Locker    Locker
	Events    EventPublisher
	Detector  *dedup.Detector
	Repos     repos.Set
}

type Scheduler struct {
	log      *logger.Logger
	clock    clock.Clock
	cfg      Config
	gen      generator.Generator
	locker   Locker
	events   EventPublisher
	detector *dedup.Detector
	repos    repos.Set
	tracer   trace.Tracer

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(deps Deps) *Scheduler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.System()
	}
	rnd := deps.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	locker := deps.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	cfg := deps.Config
	if cfg.CategoryConcurrency < 1 {
		cfg.CategoryConcurrency = 1
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultConfig().GenerateTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultConfig().LockTTL
	}
	if cfg.ReconcileGrace <= 0 {
		cfg.ReconcileGrace = DefaultConfig().ReconcileGrace
	}
	det := deps.Detector
	if det == nil {
		det = dedup.New(dedup.Deps{Log: log, Content: deps.Repos.Content, Transitions: deps.Repos.Transitions})
	}
	return &Scheduler{
		log:      log.With("component", "LifecycleScheduler"),
		clock:    clk,
		cfg:      cfg,
		gen:      deps.Generator,
		locker:   locker,
		events:   deps.Events,
		detector: det,
		repos:    deps.Repos,
		tracer:   otel.Tracer("hackfeed/lifecycle"),
		rand:     rnd,
	}
}

func (s *Scheduler) Config() Config { return s.cfg }

// Run executes one full lifecycle pass. Per-item and per-category failures
// are counted in the summary; only a missing system identity or an empty
// category list aborts the run with a not_found error.
func (s *Scheduler) Run(ctx context.Context, trigger string) (*RunSummary, error) {
	if trigger == "" {
		trigger = jobtypes.TriggerScheduled
	}
	sum := &RunSummary{RunID: uuid.New(), Trigger: trigger, StartedAt: s.clock.Now()}

	if reason := s.skipReason(ctx, trigger, sum.StartedAt); reason != "" {
		return s.skipRun(ctx, sum, reason), nil
	}
	unlock, ok := s.acquire(ctx, jobtypes.TypeLifecycle)
	if !ok {
		return s.skipRun(ctx, sum, "lock held by another run"), nil
	}
	defer unlock()

	s.beginRun(ctx, jobtypes.TypeLifecycle, trigger, sum.RunID, sum.StartedAt)

	ctx, span := s.tracer.Start(ctx, "lifecycle.run", trace.WithAttributes(
		attribute.String("lifecycle.run_id", sum.RunID.String()),
		attribute.String("lifecycle.trigger", trigger),
	))
	defer span.End()

	err := s.run(ctx, sum)
	sum.FinishedAt = s.clock.Now()

	span.SetAttributes(
		attribute.Int("lifecycle.categories", sum.CategoriesProcessed),
		attribute.Int("lifecycle.generated", sum.ItemsGenerated),
		attribute.Int("lifecycle.retired", sum.ItemsRetired),
		attribute.Int("lifecycle.published", sum.ItemsPublished),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lifecycle run aborted")
		s.log.Error("Lifecycle run aborted", "run_id", sum.RunID, "trigger", trigger, "error", err)
		s.finishRun(ctx, jobtypes.TypeLifecycle, trigger, sum.RunID, jobtypes.StatusFailed, err, sum)
		return sum, err
	}

	s.log.Info("Lifecycle run finished",
		"run_id", sum.RunID,
		"trigger", trigger,
		"categories", sum.CategoriesProcessed,
		"categories_failed", sum.CategoriesFailed,
		"generated", sum.ItemsGenerated,
		"generation_failures", sum.GenerationFailures,
		"retired", sum.ItemsRetired,
		"published", sum.ItemsPublished,
		"duplicates_archived", sum.DuplicatesArchived,
		"duration", sum.Duration().String(),
	)
	s.finishRun(ctx, jobtypes.TypeLifecycle, trigger, sum.RunID, jobtypes.StatusSucceeded, nil, sum)
	return sum, nil
}

func (s *Scheduler) run(ctx context.Context, sum *RunSummary) error {
	identity, err := s.repos.Users.FindSystemIdentity(ctx)
	if err != nil {
		return fmt.Errorf("resolve system identity: %w", err)
	}
	if identity == nil {
		return apperr.NotFound("lifecycle.Run", "no system or admin account to attribute generated content to")
	}
	categories, err := s.repos.Categories.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active categories: %w", err)
	}
	if len(categories) == 0 {
		return apperr.NotFound("lifecycle.Run", "no active categories")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.CategoryConcurrency)
	for _, cat := range categories {
		g.Go(func() error {
			rep := s.processCategory(gctx, cat, identity)
			mu.Lock()
			sum.merge(rep)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// duplicates are swept only once every category has settled
	res, err := s.detector.Sweep(ctx)
	if err != nil {
		sum.SweepError = err.Error()
		s.log.Warn("Duplicate sweep failed", "run_id", sum.RunID, "error", err)
		return nil
	}
	sum.DuplicatesDetected = res.Detected
	sum.DuplicatesArchived = res.Archived
	return nil
}

func (s *Scheduler) processCategory(ctx context.Context, cat *types.Category, identity *usertypes.User) categoryReport {
	ctx, span := s.tracer.Start(ctx, "lifecycle.category", trace.WithAttributes(
		attribute.String("category.id", cat.ID.String()),
		attribute.String("category.slug", cat.Slug),
	))
	defer span.End()

	log := s.log.With("category_id", cat.ID, "category", cat.Slug)
	var rep categoryReport
	fail := func(phase string, err error) categoryReport {
		rep.failed = true
		rep.errs = append(rep.errs, fmt.Sprintf("category %s: %s: %v", cat.Slug, phase, err))
		span.RecordError(err)
		span.SetStatus(codes.Error, phase)
		log.Error("Category phase failed", "phase", phase, "error", err)
		return rep
	}

	s.generate(ctx, log, cat, identity, &rep)

	if err := s.retire(ctx, log, cat, &rep); err != nil {
		return fail("retire", err)
	}
	if err := s.promote(ctx, log, cat, &rep); err != nil {
		return fail("promote", err)
	}

	span.SetAttributes(
		attribute.Int("category.generated", rep.generated),
		attribute.Int("category.retired", rep.retired),
		attribute.Int("category.published", rep.published),
	)
	log.Debug("Category processed",
		"generated", rep.generated, "generation_failures", rep.genFailures,
		"retired", rep.retired, "published", rep.published)
	return rep
}

func (s *Scheduler) generate(ctx context.Context, log *logger.Logger, cat *types.Category, identity *usertypes.User, rep *categoryReport) {
	if s.gen == nil {
		return
	}
	for _, diff := range DifficultyPlan(s.cfg.GenerateCount, s.cfg.DifficultyMix) {
		res, err := s.generateOne(ctx, generator.Request{
			CategoryID: cat.ID,
			Category:   cat.Name,
			Difficulty: diff,
		})
		if err != nil {
			rep.genFailures++
			log.Warn("Generation failed", "difficulty", diff, "error", err)
			continue
		}
		item := &types.Content{
			Title:      res.Title,
			Body:       res.Body,
			Summary:    res.Summary,
			Tags:       datatypes.JSONSlice[string](res.Tags),
			CategoryID: cat.ID,
			AuthorID:   identity.ID,
			Type:       types.TypeHack,
			Difficulty: diff,
			Source:     types.SourceAI,
			Status:     types.StatusDraft,
			CreatedAt:  s.clock.Now(),
		}
		if _, err := s.repos.Content.Insert(ctx, item); err != nil {
			rep.genFailures++
			log.Warn("Generated item could not be stored", "difficulty", diff, "error", err)
			continue
		}
		rep.generated++
	}
}

// generateOne bounds a single generator call. A result that arrives after
// the deadline is discarded.
func (s *Scheduler) generateOne(ctx context.Context, req generator.Request) (*generator.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	type outcome struct {
		res *generator.Result
		err error
	}
	// buffered so a generator that ignores ctx can still finish and exit
	done := make(chan outcome, 1)
	go func() {
		res, err := s.gen.Generate(callCtx, req)
		done <- outcome{res, err}
	}()

	var res *generator.Result
	var err error
	select {
	case out := <-done:
		res, err = out.res, out.err
		if err == nil && callCtx.Err() != nil {
			err = callCtx.Err()
		}
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.New(apperr.CodeGeneration, "lifecycle.Generate",
				fmt.Sprintf("timed out after %s", s.cfg.GenerateTimeout), err)
		}
		return nil, err
	}
	if res == nil {
		return nil, apperr.New(apperr.CodeGeneration, "lifecycle.Generate", "empty result", nil)
	}
	return res, nil
}

func (s *Scheduler) retire(ctx context.Context, log *logger.Logger, cat *types.Category, rep *categoryReport) error {
	catID := cat.ID
	published, err := s.repos.Content.Find(ctx, repos.ContentFilter{
		CategoryID: &catID,
		Statuses:   []types.Status{types.StatusPublished},
	})
	if err != nil {
		return err
	}
	for _, c := range published {
		rec, err := s.repos.Transitions.ArchiveAndRemove(ctx, c.ID, types.ReasonAutoDelete, types.ArchiveOptions{})
		if err != nil {
			rep.retireFailures++
			log.Error("Retire failed", "content_id", c.ID, "error", err)
			continue
		}
		if rec != nil {
			rep.retired++
		}
	}
	return nil
}

func (s *Scheduler) promote(ctx context.Context, log *logger.Logger, cat *types.Category, rep *categoryReport) error {
	catID := cat.ID
	drafts, err := s.repos.Content.Find(ctx, repos.ContentFilter{
		CategoryID: &catID,
		Statuses:   []types.Status{types.StatusDraft},
		Sort:       []repos.Sort{{Field: repos.SortCreatedAt}},
	})
	if err != nil {
		return err
	}
	// a fixed input order keeps seeded picks reproducible
	repos.SortContents(drafts, []repos.Sort{{Field: repos.SortCreatedAt}})

	now := s.clock.Now()
	for _, c := range s.pick(drafts, s.cfg.PublishCount) {
		updated, err := s.repos.Content.UpdateByID(ctx, c.ID, repos.Publish(now))
		if err != nil {
			rep.pubFailures++
			log.Error("Promote failed", "content_id", c.ID, "error", err)
			continue
		}
		if updated != nil {
			rep.published++
		}
	}
	return nil
}

// pick draws min(n, len(items)) items uniformly without replacement.
func (s *Scheduler) pick(items []*types.Content, n int) []*types.Content {
	n = min(n, len(items))
	if n <= 0 {
		return nil
	}
	s.randMu.Lock()
	perm := s.rand.Perm(len(items))
	s.randMu.Unlock()
	out := make([]*types.Content, 0, n)
	for _, i := range perm[:n] {
		out = append(out, items[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Scheduler) skipReason(ctx context.Context, trigger string, now time.Time) string {
	if trigger != jobtypes.TriggerScheduled || !s.cfg.SkipScheduledAfterManual || s.repos.JobRuns == nil {
		return ""
	}
	last, err := s.repos.JobRuns.GetLatest(ctx, jobtypes.TypeLifecycle, jobtypes.TriggerManual, jobtypes.StatusSucceeded)
	if err != nil {
		s.log.Warn("Could not read run history; continuing", "error", err)
		return ""
	}
	if last != nil && sameUTCDay(last.StartedAt, now) {
		return "manual run already completed today"
	}
	return ""
}

func (s *Scheduler) skipRun(ctx context.Context, sum *RunSummary, reason string) *RunSummary {
	sum.Skipped = true
	sum.SkipReason = reason
	sum.FinishedAt = s.clock.Now()
	s.log.Info("Lifecycle run skipped", "run_id", sum.RunID, "trigger", sum.Trigger, "reason", reason)
	s.beginRun(ctx, jobtypes.TypeLifecycle, sum.Trigger, sum.RunID, sum.StartedAt)
	s.finishRun(ctx, jobtypes.TypeLifecycle, sum.Trigger, sum.RunID, jobtypes.StatusSkipped, nil, sum)
	return sum
}

// acquire takes the job lock. Lock errors fail closed.
func (s *Scheduler) acquire(ctx context.Context, job string) (func(), bool) {
	unlock, ok, err := s.locker.TryLock(ctx, lockKey(job), s.cfg.LockTTL)
	if err != nil {
		s.log.Warn("Run lock unavailable; skipping", "job", job, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("Run lock release failed", "job", job, "error", err)
		}
	}, true
}

// beginRun records a running JobRun. History is best effort: a failed write
// is logged and the job still runs.
func (s *Scheduler) beginRun(ctx context.Context, jobType, trigger string, id uuid.UUID, startedAt time.Time) {
	if s.repos.JobRuns == nil {
		return
	}
	_, err := s.repos.JobRuns.Create(ctx, &jobtypes.JobRun{
		ID:        id,
		JobType:   jobType,
		Trigger:   trigger,
		Status:    jobtypes.StatusRunning,
		StartedAt: startedAt,
	})
	if err != nil {
		s.log.Warn("Could not record job run", "job", jobType, "run_id", id, "error", err)
	}
}

func (s *Scheduler) finishRun(ctx context.Context, jobType, trigger string, id uuid.UUID, status string, runErr error, result any) {
	now := s.clock.Now()
	raw, _ := json.Marshal(result)
	if s.repos.JobRuns != nil {
		updates := map[string]interface{}{
			"status":      status,
			"finished_at": now,
			"result":      datatypes.JSON(raw),
		}
		if runErr != nil {
			updates["error"] = runErr.Error()
		}
		if err := s.repos.JobRuns.UpdateFields(context.WithoutCancel(ctx), id, updates); err != nil {
			s.log.Warn("Could not finish job run", "run_id", id, "status", status, "error", err)
		}
	}
	if s.events != nil {
		ev := jobtypes.RunEvent{RunID: id, JobType: jobType, Trigger: trigger, Status: status, Result: raw, At: now}
		if runErr != nil {
			ev.Error = runErr.Error()
		}
		if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
			s.log.Warn("Could not publish run event", "run_id", id, "error", err)
		}
	}
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
