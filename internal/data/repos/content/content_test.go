package content

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hackfeed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

func ptrInt64(v int64) *int64 { return &v }

func TestContentRepo_FindFiltersAndSorts(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewContentRepo(db, testutil.Logger(t))

	cat := testutil.SeedCategory(t, ctx, db, "fitness")
	other := testutil.SeedCategory(t, ctx, db, "cooking")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := testutil.SeedContent(t, ctx, db, cat.ID, "A", types.StatusPublished, base)
	b := testutil.SeedContent(t, ctx, db, cat.ID, "B", types.StatusPublished, base.Add(time.Hour))
	testutil.SeedContent(t, ctx, db, cat.ID, "C", types.StatusDraft, base.Add(2*time.Hour))
	testutil.SeedContent(t, ctx, db, other.ID, "D", types.StatusPublished, base)

	if _, err := repo.IncrementStats(ctx, a.ID, StatsDelta{Likes: 50, Views: 500}); err != nil {
		t.Fatalf("IncrementStats a: %v", err)
	}
	if _, err := repo.IncrementStats(ctx, b.ID, StatsDelta{Likes: 50, Views: 900, Dislikes: 30}); err != nil {
		t.Fatalf("IncrementStats b: %v", err)
	}

	got, err := repo.Find(ctx, ContentFilter{
		CategoryID: &cat.ID,
		Statuses:   []types.Status{types.StatusPublished},
		Sort:       []Sort{{Field: SortLikes, Desc: true}, {Field: SortViews, Desc: true}},
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("Find order: %+v", got)
	}

	got, err = repo.Find(ctx, ContentFilter{CategoryID: &cat.ID, LikesAbove: ptrInt64(10), LikesOverDislikes: 2})
	if err != nil {
		t.Fatalf("Find ratio: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("Find ratio: expected only A, got %+v", got)
	}

	n, err := repo.Count(ctx, ContentFilter{Statuses: []types.Status{types.StatusPublished}, ExcludeIDs: []uuid.UUID{a.ID}})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count: want=2 got=%d", n)
	}
}

func TestContentRepo_InsertUpdateDelete(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewContentRepo(db, testutil.Logger(t))
	cat := testutil.SeedCategory(t, ctx, db, "money")

	if _, err := repo.Insert(ctx, &types.Content{Title: " ", Body: "b", Summary: "s", CategoryID: cat.ID}); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("Insert blank title: want invalid_argument got=%v", err)
	}

	c, err := repo.Insert(ctx, &types.Content{Title: "Save Money Fast", Body: "Cook at home.", Summary: "Tips", CategoryID: cat.ID})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if c.Status != types.StatusDraft || c.Pool != types.PoolRegular {
		t.Fatalf("Insert defaults: %+v", c)
	}

	published := types.StatusPublished
	updated, err := repo.UpdateByID(ctx, c.ID, ContentPatch{Status: &published})
	if err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if updated.Status != types.StatusPublished || !updated.HasBeenPublished || updated.PublishDate == nil {
		t.Fatalf("publish invariant not kept: %+v", updated)
	}

	draft := types.StatusDraft
	no := false
	updated, err = repo.UpdateByID(ctx, c.ID, ContentPatch{Status: &draft, HasBeenPublished: &no})
	if err != nil {
		t.Fatalf("UpdateByID draft: %v", err)
	}
	if !updated.HasBeenPublished {
		t.Fatalf("has_been_published must be sticky")
	}

	if missing, err := repo.UpdateByID(ctx, uuid.New(), ContentPatch{Status: &draft}); err != nil || missing != nil {
		t.Fatalf("UpdateByID missing: err=%v got=%+v", err, missing)
	}

	if _, err := repo.IncrementStats(ctx, c.ID, StatsDelta{Likes: -1}); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("negative increment: want invalid_argument got=%v", err)
	}

	ok, err := repo.DeleteByID(ctx, c.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteByID: ok=%v err=%v", ok, err)
	}
	ok, err = repo.DeleteByID(ctx, c.ID)
	if err != nil || ok {
		t.Fatalf("DeleteByID twice: ok=%v err=%v", ok, err)
	}
}

func TestContentRepo_UpdatePoolSkipsPremium(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewContentRepo(db, testutil.Logger(t))
	cat := testutil.SeedCategory(t, ctx, db, "premium")

	c, err := repo.Insert(ctx, &types.Content{Title: "t", Body: "b", Summary: "s", CategoryID: cat.ID, Pool: types.PoolPremium})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ok, err := repo.UpdatePool(ctx, c.ID, types.PoolDisliked, c.Likes, c.Dislikes)
	if err != nil || ok {
		t.Fatalf("UpdatePool premium: ok=%v err=%v", ok, err)
	}
	got, _ := repo.FindByID(ctx, c.ID)
	if got.Pool != types.PoolPremium {
		t.Fatalf("premium pool overwritten: %s", got.Pool)
	}
}

func TestContentRepo_UpdatePoolMissesOnStaleCounts(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewContentRepo(db, testutil.Logger(t))
	cat := testutil.SeedCategory(t, ctx, db, "counts")

	c, err := repo.Insert(ctx, &types.Content{Title: "t", Body: "b", Summary: "s", CategoryID: cat.ID, Pool: types.PoolRegular, Likes: 8, Dislikes: 1})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := repo.IncrementStats(ctx, c.ID, StatsDelta{Dislikes: 1}); err != nil {
		t.Fatalf("IncrementStats: %v", err)
	}
	ok, err := repo.UpdatePool(ctx, c.ID, types.PoolAccepted, 8, 1)
	if err != nil || ok {
		t.Fatalf("UpdatePool stale counts: want=false got ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdatePool(ctx, c.ID, types.PoolAccepted, 8, 2)
	if err != nil || !ok {
		t.Fatalf("UpdatePool current counts: want=true got ok=%v err=%v", ok, err)
	}
}

func TestContentRepo_RecordUseIncrementsInPlace(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewContentRepo(db, testutil.Logger(t))
	cat := testutil.SeedCategory(t, ctx, db, "usage")

	c, err := repo.Insert(ctx, &types.Content{Title: "t", Body: "b", Summary: "s", CategoryID: cat.ID, UsageCount: 2})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for range 3 {
		if _, err := repo.RecordUse(ctx, c.ID, at); err != nil {
			t.Fatalf("RecordUse: %v", err)
		}
	}
	got, _ := repo.FindByID(ctx, c.ID)
	if got.UsageCount != 5 {
		t.Fatalf("UsageCount: want=5 got=%d", got.UsageCount)
	}
	if got.LastUsedDate == nil || !got.LastUsedDate.Equal(at) {
		t.Fatalf("LastUsedDate: want=%v got=%v", at, got.LastUsedDate)
	}
	if missing, err := repo.RecordUse(ctx, uuid.New(), at); err != nil || missing != nil {
		t.Fatalf("RecordUse missing: got=%v err=%v", missing, err)
	}
}
