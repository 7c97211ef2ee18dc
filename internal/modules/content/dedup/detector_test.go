package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hackfeed-backend/internal/data/memstore"
	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

var t0 = time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)

const stretchBody = "Stand tall and reach both arms overhead.\nHold for thirty seconds while breathing slowly.\nFold forward and let your shoulders relax."

type fixture struct {
	store *memstore.Store
	set   repos.Set
	det   *Detector
}

func newFixture() fixture {
	store := memstore.New(clock.NewStub(t0))
	set := store.Set()
	return fixture{
		store: store,
		set:   set,
		det:   New(Deps{Content: set.Content, Transitions: set.Transitions}),
	}
}

func (f fixture) add(t *testing.T, cat uuid.UUID, title, body string, createdAt time.Time) *types.Content {
	t.Helper()
	c, err := f.set.Content.Insert(context.Background(), &types.Content{
		CategoryID: cat,
		Title:      title,
		Body:       body,
		Summary:    "summary",
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("Insert(%q): %v", title, err)
	}
	return c
}

func TestFindPotentialDuplicates_UnknownTarget(t *testing.T) {
	f := newFixture()
	_, err := f.det.FindPotentialDuplicates(context.Background(), uuid.New(), nil)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("want not_found got=%v", err)
	}
}

func TestFindPotentialDuplicates_FiltersAndOrders(t *testing.T) {
	f := newFixture()
	cat, other := uuid.New(), uuid.New()
	target := f.add(t, cat, "Morning Stretch Routine", stretchBody, t0)
	exact := f.add(t, cat, "Morning Stretch Routine", stretchBody, t0.Add(time.Minute))
	near := f.add(t, cat, "Evening Stretch Routine", "Stand tall and reach both arms overhead.\nSomething else entirely.", t0.Add(2*time.Minute))
	f.add(t, cat, "Budget Meal Prep", stretchBody, t0.Add(3*time.Minute))
	elsewhere := f.add(t, other, "Morning Stretch Routine", stretchBody, t0.Add(4*time.Minute))

	got, err := f.det.FindPotentialDuplicates(context.Background(), target.ID, &cat)
	if err != nil {
		t.Fatalf("FindPotentialDuplicates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matches: want=2 got=%d (%+v)", len(got), got)
	}
	if got[0].ContentID != exact.ID || got[0].OverallSimilarity != 1 {
		t.Fatalf("best match: want=%s score=1 got=%s score=%v", exact.ID, got[0].ContentID, got[0].OverallSimilarity)
	}
	if got[1].ContentID != near.ID || got[1].OverallSimilarity >= got[0].OverallSimilarity {
		t.Fatalf("second match: want=%s with lower score got=%+v", near.ID, got[1])
	}
	for _, m := range got {
		if m.ContentID == target.ID {
			t.Fatalf("target must be excluded")
		}
		if m.TitleSimilarity < TitlePrefilter {
			t.Fatalf("match below title pre-filter: %+v", m)
		}
		want := 0.4*m.TitleSimilarity + 0.6*m.BodySimilarity
		if m.OverallSimilarity != want {
			t.Fatalf("overall: want=%v got=%v", want, m.OverallSimilarity)
		}
	}

	all, _ := f.det.FindPotentialDuplicates(context.Background(), target.ID, nil)
	found := false
	for _, m := range all {
		found = found || m.ContentID == elsewhere.ID
	}
	if !found {
		t.Fatalf("unscoped lookup must include other categories")
	}
}

func TestMarkAsDuplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := uuid.New()
	orig := f.add(t, cat, "a", "b", t0)
	dup := f.add(t, cat, "a", "b", t0.Add(time.Second))

	if _, err := f.det.MarkAsDuplicate(ctx, dup.ID, &dup.ID); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("self reference: want invalid_argument got=%v", err)
	}

	rec, err := f.det.MarkAsDuplicate(ctx, dup.ID, &orig.ID)
	if err != nil || rec == nil {
		t.Fatalf("MarkAsDuplicate: want record got=%v err=%v", rec, err)
	}
	if rec.Reason != types.ReasonDuplicate || rec.OriginalContentID != dup.ID {
		t.Fatalf("record: want reason=duplicate original=%s got=%s/%s", dup.ID, rec.Reason, rec.OriginalContentID)
	}
	if rec.DuplicateOfID == nil || *rec.DuplicateOfID != orig.ID || rec.ArchiveMetadata[types.MetaOriginalContentID] != orig.ID.String() {
		t.Fatalf("provenance: want duplicate of %s got=%v / %v", orig.ID, rec.DuplicateOfID, rec.ArchiveMetadata)
	}

	again, err := f.det.MarkAsDuplicate(ctx, dup.ID, &orig.ID)
	if err != nil || again != nil {
		t.Fatalf("already archived: want=nil,nil got=%v,%v", again, err)
	}
	n, _ := f.set.Archive.Count(ctx, repos.ArchiveFilter{})
	if n != 1 {
		t.Fatalf("archive count: want=1 got=%d", n)
	}
}

func TestMarkAsDuplicate_DropsUnknownOriginal(t *testing.T) {
	f := newFixture()
	dup := f.add(t, uuid.New(), "a", "b", t0)
	ghost := uuid.New()
	rec, err := f.det.MarkAsDuplicate(context.Background(), dup.ID, &ghost)
	if err != nil || rec == nil {
		t.Fatalf("MarkAsDuplicate: want record got=%v err=%v", rec, err)
	}
	if rec.DuplicateOfID != nil || rec.ArchiveMetadata[types.MetaOriginalContentID] != nil {
		t.Fatalf("unknown original must be dropped: got=%v / %v", rec.DuplicateOfID, rec.ArchiveMetadata)
	}
}

func TestResolveDuplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := uuid.New()
	best := f.add(t, cat, "a", "b", t0)
	d1 := f.add(t, cat, "a", "b", t0)
	d2 := f.add(t, cat, "a", "b", t0)
	gone := uuid.New()

	if _, err := f.det.ResolveDuplicates(ctx, []uuid.UUID{best.ID}); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("one id: want invalid_argument got=%v", err)
	}

	res, err := f.det.ResolveDuplicates(ctx, []uuid.UUID{best.ID, d1.ID, gone, d2.ID})
	if err != nil {
		t.Fatalf("ResolveDuplicates: %v", err)
	}
	if res.Kept != best.ID || len(res.MarkedAsDuplicates) != 2 || len(res.Missing) != 1 {
		t.Fatalf("resolution: want kept=%s marked=2 missing=1 got=%+v", best.ID, res)
	}
	for _, rec := range res.MarkedAsDuplicates {
		if rec.DuplicateOfID == nil || *rec.DuplicateOfID != best.ID {
			t.Fatalf("marked record must point at kept id: %+v", rec)
		}
		stored, _ := f.set.Archive.FindByOriginalID(ctx, rec.OriginalContentID)
		if stored == nil {
			t.Fatalf("no archive record for %s", rec.OriginalContentID)
		}
		if stored.Reason != types.ReasonDuplicate {
			t.Fatalf("archive reason: want=%s got=%s", types.ReasonDuplicate, stored.Reason)
		}
		if stored.ArchiveMetadata[types.MetaOriginalContentID] != best.ID.String() {
			t.Fatalf("archive metadata: want original_content_id=%s got=%v", best.ID, stored.ArchiveMetadata)
		}
		if live, _ := f.set.Content.FindByID(ctx, rec.OriginalContentID); live != nil {
			t.Fatalf("duplicate %s still live", rec.OriginalContentID)
		}
	}
	if c, _ := f.set.Content.FindByID(ctx, best.ID); c == nil {
		t.Fatalf("kept item must stay live")
	}
	if rec, _ := f.set.Archive.FindByOriginalID(ctx, best.ID); rec != nil {
		t.Fatalf("kept item must not be archived: %+v", rec)
	}
	if n, _ := f.set.Archive.Count(ctx, repos.ArchiveFilter{}); n != 2 {
		t.Fatalf("archive count: want=2 got=%d", n)
	}
}

func TestSweep_ArchivesLaterOfPunctuationVariants(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := uuid.New()
	first := f.add(t, cat, "5 Minute Stretch Routine", stretchBody, t0)
	second := f.add(t, cat, "5-Minute Stretch Routine!!", stretchBody, t0.Add(time.Hour))

	if score := SweepScore(first, second); score <= SweepThreshold {
		t.Fatalf("SweepScore: want > %v got=%v", SweepThreshold, score)
	}

	res, err := f.det.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Detected != 1 || res.Archived != 1 {
		t.Fatalf("sweep: want detected=1 archived=1 got=%+v", res)
	}
	if c, _ := f.set.Content.FindByID(ctx, first.ID); c == nil {
		t.Fatalf("earlier item must be kept")
	}
	rec, _ := f.set.Archive.FindByOriginalID(ctx, second.ID)
	if rec == nil || rec.Reason != types.ReasonDuplicate {
		t.Fatalf("later item: want archived as duplicate got=%v", rec)
	}
}

func TestSweep_MarkAndSkip(t *testing.T) {
	f := newFixture()
	cat := uuid.New()
	a := f.add(t, cat, "Desk Posture Fix", stretchBody, t0)
	f.add(t, cat, "Desk Posture Fix", stretchBody, t0.Add(time.Minute))
	f.add(t, cat, "Desk Posture Fix", stretchBody, t0.Add(2*time.Minute))

	res, err := f.det.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Compared != 2 || res.Detected != 2 || res.Archived != 2 {
		t.Fatalf("sweep: want compared=2 detected=2 archived=2 got=%+v", res)
	}
	for _, p := range res.Pairs {
		if p.KeptID != a.ID {
			t.Fatalf("every pair must keep the earliest item: %+v", p)
		}
	}

	again, _ := f.det.Sweep(context.Background())
	if again.Detected != 0 || again.Compared != 0 {
		t.Fatalf("second sweep: want nothing left got=%+v", again)
	}
}

func TestSweep_ThresholdIsStrict(t *testing.T) {
	f := newFixture()
	cat := uuid.New()
	f.add(t, cat, "Alpha tricks", stretchBody, t0)
	f.add(t, cat, "Bravo hacks", stretchBody, t0.Add(time.Minute))

	res, _ := f.det.Sweep(context.Background())
	if res.Compared != 1 || res.Detected != 0 {
		t.Fatalf("score of exactly %v is not a duplicate: got=%+v", SweepThreshold, res)
	}
}

func TestSweep_ComparesWithinCategoryOnly(t *testing.T) {
	f := newFixture()
	f.add(t, uuid.New(), "Desk Posture Fix", stretchBody, t0)
	f.add(t, uuid.New(), "Desk Posture Fix", stretchBody, t0.Add(time.Minute))

	res, _ := f.det.Sweep(context.Background())
	if res.Categories != 2 || res.Compared != 0 {
		t.Fatalf("sweep: want categories=2 compared=0 got=%+v", res)
	}
}

func TestSweep_IgnoresCancellationAndCountsFailures(t *testing.T) {
	f := newFixture()
	cat := uuid.New()
	f.add(t, cat, "Desk Posture Fix", stretchBody, t0)
	f.add(t, cat, "Desk Posture Fix", stretchBody, t0.Add(time.Minute))
	f.add(t, cat, "Desk Posture Fix", stretchBody, t0.Add(2*time.Minute))
	f.store.FailNext("content.DeleteByID", errors.New("boom"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.det.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep(cancelled): %v", err)
	}
	if res.Failed != 1 || res.Archived != 1 {
		t.Fatalf("sweep: want failed=1 archived=1 got=%+v", res)
	}
}
