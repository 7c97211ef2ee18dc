package docstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	contentrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/content"
	"github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

// newTestSet connects to TEST_MONGO_URI and returns a set over a throwaway database.
func newTestSet(t *testing.T) repos.Set {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, ConnectOptions{URI: uri})
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	db := client.Database("hackfeed_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	store := New(db, logger.Nop())
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return store.Set()
}

func TestDocstore_FindAppliesRecycleFilter(t *testing.T) {
	set := newTestSet(t)
	ctx := context.Background()
	cat := uuid.New()
	old := time.Now().Add(-40 * 24 * time.Hour)

	insert := func(title string, likes, dislikes, views int64) {
		t.Helper()
		if _, err := set.Content.Insert(ctx, &content.Content{
			CategoryID: cat, Title: title, Body: "b", Summary: "s",
			Status: content.StatusPublished, PublishDate: &old,
			Likes: likes, Dislikes: dislikes, Views: views,
		}); err != nil {
			t.Fatalf("Insert(%s): %v", title, err)
		}
	}
	insert("keep-high", 40, 3, 500)
	insert("keep-low", 12, 1, 150)
	insert("too-disliked", 30, 20, 500)
	insert("too-few-views", 30, 1, 90)

	likes, views := int64(10), int64(100)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	got, err := set.Content.Find(ctx, contentrepo.ContentFilter{
		Statuses:          []content.Status{content.StatusPublished},
		PublishedBefore:   &cutoff,
		LikesAbove:        &likes,
		ViewsAbove:        &views,
		LikesOverDislikes: 2,
		Sort:              []contentrepo.Sort{{Field: contentrepo.SortLikes, Desc: true}},
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 || got[0].Title != "keep-high" || got[1].Title != "keep-low" {
		t.Fatalf("Find: want=[keep-high keep-low] got=%d items", len(got))
	}
}

func TestDocstore_TransitionRoundTrip(t *testing.T) {
	set := newTestSet(t)
	ctx := context.Background()
	c, err := set.Content.Insert(ctx, &content.Content{
		CategoryID: uuid.New(), Title: "t", Body: "b", Summary: "s",
		Metadata: map[string]any{"k": "v"},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	keep := uuid.New()
	rec, err := set.Transitions.ArchiveAndRemove(ctx, c.ID, content.ReasonDuplicate, content.ArchiveOptions{DuplicateOf: &keep})
	if err != nil || rec == nil {
		t.Fatalf("ArchiveAndRemove: want record got=%v err=%v", rec, err)
	}
	if rec.DuplicateOfID == nil || *rec.DuplicateOfID != keep {
		t.Fatalf("DuplicateOfID: want=%s got=%v", keep, rec.DuplicateOfID)
	}
	if rec.ArchiveMetadata[content.MetaOriginalContentID] != keep.String() {
		t.Fatalf("archive metadata: want original_content_id=%s got=%v", keep, rec.ArchiveMetadata)
	}
	again, err := set.Transitions.ArchiveAndRemove(ctx, c.ID, content.ReasonDuplicate, content.ArchiveOptions{})
	if err != nil || again != nil {
		t.Fatalf("second ArchiveAndRemove: want=nil,nil got=%v,%v", again, err)
	}

	restored, err := set.Transitions.Restore(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Status != content.StatusDraft || restored.ID == c.ID {
		t.Fatalf("Restore: want fresh draft got=%+v", restored)
	}
	n, _ := set.Archive.Count(ctx, contentrepo.ArchiveFilter{})
	if n != 0 {
		t.Fatalf("archive count after restore: want=0 got=%d", n)
	}
}

func TestDocstore_ReconcileDropsOrphans(t *testing.T) {
	set := newTestSet(t)
	ctx := context.Background()
	old, _ := set.Content.Insert(ctx, &content.Content{CategoryID: uuid.New(), Title: "t", Body: "b", Summary: "s"})
	if _, err := set.Archive.Insert(ctx, content.NewDeletedContent(old, content.ReasonAutoDelete, time.Now().Add(-2*time.Hour), content.ArchiveOptions{})); err != nil {
		t.Fatalf("archive Insert: %v", err)
	}
	// a copy written moments ago may belong to a transition still in flight
	fresh, _ := set.Content.Insert(ctx, &content.Content{CategoryID: uuid.New(), Title: "u", Body: "b", Summary: "s"})
	if _, err := set.Archive.Insert(ctx, content.NewDeletedContent(fresh, content.ReasonAutoDelete, time.Now(), content.ArchiveOptions{})); err != nil {
		t.Fatalf("archive Insert: %v", err)
	}
	removed, err := set.Transitions.Reconcile(ctx, time.Now().Add(-time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("Reconcile: want=1 got=%d err=%v", removed, err)
	}
	if rec, _ := set.Archive.FindByOriginalID(ctx, old.ID); rec != nil {
		t.Fatalf("stale orphan still archived")
	}
	if rec, _ := set.Archive.FindByOriginalID(ctx, fresh.ID); rec == nil {
		t.Fatalf("copy inside the grace window was reconciled away")
	}
}

func TestDocstore_ArchiveAndRemoveRebuildsLeftoverCopy(t *testing.T) {
	set := newTestSet(t)
	ctx := context.Background()
	keep := uuid.New()
	c, _ := set.Content.Insert(ctx, &content.Content{CategoryID: uuid.New(), Title: "t", Body: "b", Summary: "s"})
	left := content.NewDeletedContent(c, content.ReasonAutoDelete, time.Now().Add(-time.Minute), content.ArchiveOptions{})
	if _, err := set.Archive.Insert(ctx, left); err != nil {
		t.Fatalf("archive Insert: %v", err)
	}

	rec, err := set.Transitions.ArchiveAndRemove(ctx, c.ID, content.ReasonDuplicate, content.ArchiveOptions{DuplicateOf: &keep})
	if err != nil || rec == nil {
		t.Fatalf("ArchiveAndRemove: want record got=%v err=%v", rec, err)
	}
	if rec.ID != left.ID {
		t.Fatalf("archive id: want=%s got=%s", left.ID, rec.ID)
	}
	if rec.Reason != content.ReasonDuplicate {
		t.Fatalf("Reason: want=%s got=%s", content.ReasonDuplicate, rec.Reason)
	}
	if rec.DuplicateOfID == nil || *rec.DuplicateOfID != keep {
		t.Fatalf("DuplicateOfID: want=%s got=%v", keep, rec.DuplicateOfID)
	}
	if rec.ArchiveMetadata[content.MetaOriginalContentID] != keep.String() {
		t.Fatalf("archive metadata: want=%s got=%v", keep, rec.ArchiveMetadata)
	}
}

func TestDocstore_UpdatePoolAndRecordUse(t *testing.T) {
	set := newTestSet(t)
	ctx := context.Background()
	c, _ := set.Content.Insert(ctx, &content.Content{CategoryID: uuid.New(), Title: "t", Body: "b", Summary: "s", Likes: 8, Dislikes: 2})

	ok, err := set.Content.UpdatePool(ctx, c.ID, content.PoolAccepted, 8, 1)
	if err != nil || ok {
		t.Fatalf("UpdatePool(stale): want=false,nil got=%v,%v", ok, err)
	}
	ok, err = set.Content.UpdatePool(ctx, c.ID, content.PoolAccepted, 8, 2)
	if err != nil || !ok {
		t.Fatalf("UpdatePool(current): want=true,nil got=%v,%v", ok, err)
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for range 3 {
		if _, err := set.Content.RecordUse(ctx, c.ID, at); err != nil {
			t.Fatalf("RecordUse: %v", err)
		}
	}
	got, _ := set.Content.FindByID(ctx, c.ID)
	if got.UsageCount != 3 || got.LastUsedDate == nil || !got.LastUsedDate.Equal(at) {
		t.Fatalf("RecordUse: want usage=3 last=%v got=%d/%v", at, got.UsageCount, got.LastUsedDate)
	}
}
