package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	usertypes "github.com/yungbote/hackfeed-backend/internal/domain/user"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestRecycle_SelectsProvenContent(t *testing.T) {
	f := newFixture(t)
	cat := uuid.New()
	old := t0.Add(-40 * 24 * time.Hour)
	seed := func(title string, publishedAt time.Time, likes, views, dislikes int64) *types.Content {
		return f.addContent(t, &types.Content{
			CategoryID: cat, Title: title, Body: title + " body",
			Status: types.StatusPublished, PublishDate: ptrTime(publishedAt),
			Likes: likes, Views: views, Dislikes: dislikes,
		})
	}
	best := seed("best", old, 50, 500, 1)
	second := seed("second", old, 20, 300, 2)
	seed("too recent", t0.Add(-10*24*time.Hour), 50, 500, 1)
	seed("few likes", old, 10, 500, 0)
	seed("few views", old, 50, 100, 0)
	seed("too disliked", old, 20, 500, 10)

	sum, err := f.scheduler(nil).Recycle(context.Background(), jobtypes.TriggerManual)
	if err != nil {
		t.Fatalf("Recycle: %v", err)
	}
	if sum.Affected != 2 || sum.Failed != 0 {
		t.Fatalf("affected/failed: want=2/0 got=%d/%d", sum.Affected, sum.Failed)
	}
	for _, id := range []uuid.UUID{best.ID, second.ID} {
		c, _ := f.set.Content.FindByID(context.Background(), id)
		if c.RecycleCount != 1 || c.PublishDate == nil || !c.PublishDate.Equal(t0) {
			t.Fatalf("recycled %s: want count=1 publish=%v got count=%d publish=%v", c.Title, t0, c.RecycleCount, c.PublishDate)
		}
	}
}

func TestRecycle_RespectsLimitByLikes(t *testing.T) {
	f := newFixture(t)
	cat := uuid.New()
	old := t0.Add(-40 * 24 * time.Hour)
	var top *types.Content
	for i, likes := range []int64{30, 90, 60} {
		c := f.addContent(t, &types.Content{
			CategoryID: cat, Title: "item", Body: "body", Status: types.StatusPublished,
			PublishDate: ptrTime(old.Add(time.Duration(i) * time.Hour)), Likes: likes, Views: 1000,
		})
		if likes == 90 {
			top = c
		}
	}
	sum, err := f.scheduler(func(d *Deps) { d.Config.Recycle.Limit = 1 }).Recycle(context.Background(), jobtypes.TriggerManual)
	if err != nil {
		t.Fatalf("Recycle: %v", err)
	}
	if sum.Affected != 1 {
		t.Fatalf("affected: want=1 got=%d", sum.Affected)
	}
	c, _ := f.set.Content.FindByID(context.Background(), top.ID)
	if c.RecycleCount != 1 {
		t.Fatalf("most liked item should be recycled first")
	}
}

func TestResetStreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idle, _ := f.set.Users.Create(ctx, &usertypes.User{Email: "idle@x.test", StreakDays: 9, LastActiveAt: ptrTime(t0.Add(-72 * time.Hour))})
	active, _ := f.set.Users.Create(ctx, &usertypes.User{Email: "active@x.test", StreakDays: 4, LastActiveAt: ptrTime(t0.Add(-time.Hour))})

	sum, err := f.scheduler(nil).ResetStreaks(ctx, jobtypes.TriggerScheduled)
	if err != nil {
		t.Fatalf("ResetStreaks: %v", err)
	}
	if sum.Affected != 1 {
		t.Fatalf("affected: want=1 got=%d", sum.Affected)
	}
	if u, _ := f.set.Users.GetByID(ctx, idle.ID); u.StreakDays != 0 {
		t.Fatalf("idle streak: want=0 got=%d", u.StreakDays)
	}
	if u, _ := f.set.Users.GetByID(ctx, active.ID); u.StreakDays != 4 {
		t.Fatalf("active streak: want=4 got=%d", u.StreakDays)
	}
}

func TestExpireSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lapsed, _ := f.set.Users.Create(ctx, &usertypes.User{
		Email: "lapsed@x.test", SubscriptionStatus: usertypes.SubscriptionCancelled,
		SubscriptionTier: usertypes.TierPremium, SubscriptionEndDate: ptrTime(t0.Add(-time.Hour)),
	})
	current, _ := f.set.Users.Create(ctx, &usertypes.User{
		Email: "current@x.test", SubscriptionStatus: usertypes.SubscriptionActive,
		SubscriptionTier: usertypes.TierPremium, SubscriptionEndDate: ptrTime(t0.Add(time.Hour)),
	})

	sum, err := f.scheduler(nil).ExpireSubscriptions(ctx, jobtypes.TriggerScheduled)
	if err != nil {
		t.Fatalf("ExpireSubscriptions: %v", err)
	}
	if sum.Affected != 1 {
		t.Fatalf("affected: want=1 got=%d", sum.Affected)
	}
	u, _ := f.set.Users.GetByID(ctx, lapsed.ID)
	if u.SubscriptionStatus != usertypes.SubscriptionExpired || u.SubscriptionTier != usertypes.TierFree {
		t.Fatalf("lapsed: want expired/free got=%s/%s", u.SubscriptionStatus, u.SubscriptionTier)
	}
	if u, _ := f.set.Users.GetByID(ctx, current.ID); u.SubscriptionStatus != usertypes.SubscriptionActive {
		t.Fatalf("current: want active got=%s", u.SubscriptionStatus)
	}
}

func TestIntegritySweep_RemovesOrphanedArchiveCopies(t *testing.T) {
	f := newFixture(t)
	live := f.addContent(t, &types.Content{CategoryID: uuid.New(), Title: "still here", Body: "survived a failed move"})
	f.store.PutArchive(types.NewDeletedContent(live, types.ReasonAutoDelete, t0.Add(-2*time.Hour), types.ArchiveOptions{}))
	moving := f.addContent(t, &types.Content{CategoryID: uuid.New(), Title: "mid move", Body: "copied a moment ago"})
	f.store.PutArchive(types.NewDeletedContent(moving, types.ReasonAutoDelete, t0, types.ArchiveOptions{}))

	sum, err := f.scheduler(nil).IntegritySweep(context.Background(), jobtypes.TriggerManual)
	if err != nil {
		t.Fatalf("IntegritySweep: %v", err)
	}
	if sum.Details["orphans_removed"] != 1 || sum.Affected != 1 {
		t.Fatalf("orphans: want=1 got details=%v affected=%d", sum.Details, sum.Affected)
	}
	if rec, _ := f.set.Archive.FindByOriginalID(context.Background(), live.ID); rec != nil {
		t.Fatalf("orphaned archive copy should be gone")
	}
	if rec, _ := f.set.Archive.FindByOriginalID(context.Background(), moving.ID); rec == nil {
		t.Fatalf("copy inside the reconcile grace should stay")
	}
	last, _ := f.set.JobRuns.GetLatest(context.Background(), jobtypes.TypeIntegrity, "", "")
	if last == nil || last.Status != jobtypes.StatusSucceeded {
		t.Fatalf("job run: want succeeded got=%+v", last)
	}
}

func TestMaintenance_SkippedWhenLocked(t *testing.T) {
	f := newFixture(t)
	sum, err := f.scheduler(func(d *Deps) { d.Locker = stubLocker{ok: false} }).ResetStreaks(context.Background(), jobtypes.TriggerScheduled)
	if err != nil {
		t.Fatalf("ResetStreaks: %v", err)
	}
	if !sum.Skipped {
		t.Fatalf("want skipped")
	}
	last, _ := f.set.JobRuns.GetLatest(context.Background(), jobtypes.TypeStreaks, "", "")
	if last == nil || last.Status != jobtypes.StatusSkipped {
		t.Fatalf("job run: want skipped got=%+v", last)
	}
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(nil)
	for _, job := range []string{jobtypes.TypeRecycle, jobtypes.TypeStreaks, jobtypes.TypeSubscriptions, jobtypes.TypeIntegrity} {
		out, err := s.Dispatch(context.Background(), job, jobtypes.TriggerManual)
		if err != nil {
			t.Fatalf("Dispatch(%s): %v", job, err)
		}
		if sum, ok := out.(*JobSummary); !ok || sum.Job != job {
			t.Fatalf("Dispatch(%s): got=%#v", job, out)
		}
	}
	if _, err := s.Dispatch(context.Background(), "nope", jobtypes.TriggerManual); err == nil {
		t.Fatalf("unknown job should error")
	}
}
