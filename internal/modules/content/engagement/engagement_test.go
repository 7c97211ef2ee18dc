package engagement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hackfeed-backend/internal/data/memstore"
	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/pool"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, seed types.Content) (*Service, repos.ContentRepo, *types.Content) {
	t.Helper()
	clk := clock.NewStub(t0)
	set := memstore.New(clk).Set()
	seed.CategoryID = uuid.New()
	seed.Title, seed.Body, seed.Summary = "Ice cube trick", "Freeze coffee into cubes", "Cold brew without dilution"
	c, err := set.Content.Insert(context.Background(), &seed)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return New(Deps{Clock: clk, Content: set.Content}), set.Content, c
}

func TestRecord_IncrementsCounters(t *testing.T) {
	svc, _, c := setup(t, types.Content{})
	for _, a := range []Action{ActionView, ActionView, ActionShare, ActionSave} {
		if _, err := svc.Record(context.Background(), c.ID, a); err != nil {
			t.Fatalf("Record(%s): %v", a, err)
		}
	}
	got, _ := svc.content.FindByID(context.Background(), c.ID)
	if got.Views != 2 || got.Shares != 1 || got.Saves != 1 {
		t.Fatalf("counters: want views=2 shares=1 saves=1 got=%d/%d/%d", got.Views, got.Shares, got.Saves)
	}
}

func TestRecord_LikeReclassifiesPool(t *testing.T) {
	svc, store, c := setup(t, types.Content{Likes: 9})
	got, err := svc.Record(context.Background(), c.ID, ActionLike)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.Pool != types.PoolHighlyLiked {
		t.Fatalf("returned pool: want=%s got=%s", types.PoolHighlyLiked, got.Pool)
	}
	stored, _ := store.FindByID(context.Background(), c.ID)
	if stored.Pool != types.PoolHighlyLiked {
		t.Fatalf("stored pool: want=%s got=%s", types.PoolHighlyLiked, stored.Pool)
	}
}

func TestRecord_BelowMinVotesKeepsPool(t *testing.T) {
	svc, _, c := setup(t, types.Content{Dislikes: 3})
	got, _ := svc.Record(context.Background(), c.ID, ActionDislike)
	if got.Pool != types.PoolRegular {
		t.Fatalf("pool: want=regular got=%s", got.Pool)
	}
}

func TestRecord_PremiumIsUntouched(t *testing.T) {
	svc, store, c := setup(t, types.Content{Pool: types.PoolPremium, Dislikes: 20})
	if _, err := svc.Record(context.Background(), c.ID, ActionDislike); err != nil {
		t.Fatalf("Record: %v", err)
	}
	stored, _ := store.FindByID(context.Background(), c.ID)
	if stored.Pool != types.PoolPremium {
		t.Fatalf("pool: want=premium got=%s", stored.Pool)
	}
}

func TestRecord_Errors(t *testing.T) {
	svc, _, c := setup(t, types.Content{})
	if _, err := svc.Record(context.Background(), c.ID, Action("boost")); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("unknown action: want invalid_argument got=%v", err)
	}
	if _, err := svc.Record(context.Background(), uuid.New(), ActionView); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("missing content: want not_found got=%v", err)
	}
}

func TestMarkUsed(t *testing.T) {
	svc, _, c := setup(t, types.Content{UsageCount: 2})
	got, err := svc.MarkUsed(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if got.UsageCount != 3 || got.LastUsedDate == nil || !got.LastUsedDate.Equal(t0) {
		t.Fatalf("usage: want count=3 last=%v got count=%d last=%v", t0, got.UsageCount, got.LastUsedDate)
	}
	if _, err := svc.MarkUsed(context.Background(), uuid.New()); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("missing content: want not_found got=%v", err)
	}
}

func TestMarkUsed_ConcurrentCallsAllCount(t *testing.T) {
	svc, store, c := setup(t, types.Content{})
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.MarkUsed(context.Background(), c.ID); err != nil {
				t.Errorf("MarkUsed: %v", err)
			}
		}()
	}
	wg.Wait()
	got, _ := store.FindByID(context.Background(), c.ID)
	if got.UsageCount != 20 {
		t.Fatalf("usage: want=20 got=%d", got.UsageCount)
	}
}

// interleavedContent runs before once, right ahead of the first pool write.
type interleavedContent struct {
	repos.ContentRepo
	once   sync.Once
	before func()
}

func (r *interleavedContent) UpdatePool(ctx context.Context, id uuid.UUID, p types.Pool, likes, dislikes int64) (bool, error) {
	r.once.Do(r.before)
	return r.ContentRepo.UpdatePool(ctx, id, p, likes, dislikes)
}

func TestRecord_InterleavedVotesKeepPoolInStepWithCounts(t *testing.T) {
	_, store, c := setup(t, types.Content{Likes: 8, Dislikes: 1})
	other := New(Deps{Clock: clock.NewStub(t0), Content: store})
	slow := New(Deps{Clock: clock.NewStub(t0), Content: &interleavedContent{
		ContentRepo: store,
		before: func() {
			// 9/2 lands while the like below still holds its 9/1 snapshot
			if _, err := other.Record(context.Background(), c.ID, ActionDislike); err != nil {
				t.Errorf("interleaved dislike: %v", err)
			}
		},
	}})

	if _, err := slow.Record(context.Background(), c.ID, ActionLike); err != nil {
		t.Fatalf("Record(like): %v", err)
	}
	stored, _ := store.FindByID(context.Background(), c.ID)
	if stored.Likes != 9 || stored.Dislikes != 2 {
		t.Fatalf("counts: want 9/2 got %d/%d", stored.Likes, stored.Dislikes)
	}
	want := pool.Reclassify(types.PoolRegular, stored.Likes, stored.Dislikes)
	if stored.Pool != want {
		t.Fatalf("stored pool: want=%s got=%s", want, stored.Pool)
	}
}
