// Package dedup finds near-duplicate content and moves the extra copies to the archive.
//
// Two scoring rules coexist. The per-item lookup scores candidates with edit
// distance (0.4 title + 0.6 body, after a 0.8 title pre-filter). The
// corpus-wide sweep uses word-set overlap (0.7 body + 0.3 title, duplicate
// when strictly above 0.7) because it compares every pair in a category.
package dedup

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/similarity"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

const (
	TitlePrefilter = 0.8
	titleWeight    = 0.4
	bodyWeight     = 0.6

	SweepThreshold   = 0.7
	sweepBodyWeight  = 0.7
	sweepTitleWeight = 0.3
)

type Deps struct {
	Log         *logger.Logger
	Content     repos.ContentRepo
	Transitions repos.TransitionRepo
}

type Detector struct {
	log         *logger.Logger
	content     repos.ContentRepo
	transitions repos.TransitionRepo
	tracer      trace.Tracer
}

func New(deps Deps) *Detector {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{
		log:         log.With("component", "DuplicateDetector"),
		content:     deps.Content,
		transitions: deps.Transitions,
		tracer:      otel.Tracer("hackfeed/dedup"),
	}
}

// Match is one candidate returned by FindPotentialDuplicates.
type Match struct {
	ContentID         uuid.UUID `json:"content_id"`
	Title             string    `json:"title"`
	TitleSimilarity   float64   `json:"title_similarity"`
	BodySimilarity    float64   `json:"body_similarity"`
	OverallSimilarity float64   `json:"overall_similarity"`
}

// FindPotentialDuplicates scores every live item (optionally limited to one
// category) against the target, best match first. Candidates whose titles
// score below TitlePrefilter are dropped before bodies are compared.
func (d *Detector) FindPotentialDuplicates(ctx context.Context, targetID uuid.UUID, categoryID *uuid.UUID) ([]Match, error) {
	target, err := d.content.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NotFound("dedup.FindPotentialDuplicates", "content %s", targetID)
	}

	candidates, err := d.content.Find(ctx, repos.ContentFilter{
		CategoryID: categoryID,
		ExcludeIDs: []uuid.UUID{targetID},
	})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0)
	for _, c := range candidates {
		ts := similarity.TitleSimilarity(target.Title, c.Title)
		if ts < TitlePrefilter {
			continue
		}
		bs := similarity.BodySimilarity(target.Body, c.Body)
		matches = append(matches, Match{
			ContentID:         c.ID,
			Title:             c.Title,
			TitleSimilarity:   ts,
			BodySimilarity:    bs,
			OverallSimilarity: titleWeight*ts + bodyWeight*bs,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].OverallSimilarity != matches[j].OverallSimilarity {
			return matches[i].OverallSimilarity > matches[j].OverallSimilarity
		}
		return matches[i].ContentID.String() < matches[j].ContentID.String()
	})
	return matches, nil
}

// MarkAsDuplicate archives contentID with reason duplicate. A content id that
// is no longer live returns (nil, nil). An original that does not resolve is
// dropped from the provenance instead of failing the call.
func (d *Detector) MarkAsDuplicate(ctx context.Context, contentID uuid.UUID, originalID *uuid.UUID) (*types.DeletedContent, error) {
	if originalID != nil && *originalID == contentID {
		return nil, apperr.InvalidArgument("dedup.MarkAsDuplicate", "content %s cannot duplicate itself", contentID)
	}
	item, err := d.content.FindByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		d.log.Debug("Duplicate already gone", "content_id", contentID)
		return nil, nil
	}

	opts := types.ArchiveOptions{}
	if originalID != nil {
		orig, err := d.content.FindByID(ctx, *originalID)
		if err != nil {
			return nil, err
		}
		if orig == nil {
			d.log.Warn("Original content not found; archiving without provenance",
				"content_id", contentID, "original_content_id", *originalID)
		} else {
			id := orig.ID
			opts.DuplicateOf = &id
		}
	}
	return d.transitions.ArchiveAndRemove(ctx, contentID, types.ReasonDuplicate, opts)
}

// Resolution reports the outcome of ResolveDuplicates.
type Resolution struct {
	Kept               uuid.UUID               `json:"kept"`
	MarkedAsDuplicates []*types.DeletedContent `json:"marked_as_duplicates"`
	// Missing lists ids that were no longer live.
	Missing []uuid.UUID `json:"missing,omitempty"`
}

// ResolveDuplicates keeps ids[0] and archives every other id as its duplicate.
// ids must be ordered best quality first.
func (d *Detector) ResolveDuplicates(ctx context.Context, ids []uuid.UUID) (*Resolution, error) {
	if len(ids) < 2 {
		return nil, apperr.InvalidArgument("dedup.ResolveDuplicates", "need at least 2 ids, got %d", len(ids))
	}
	kept := ids[0]
	out := &Resolution{Kept: kept}
	for _, id := range ids[1:] {
		if id == kept {
			continue
		}
		rec, err := d.MarkAsDuplicate(ctx, id, &kept)
		if err != nil {
			return out, err
		}
		if rec == nil {
			out.Missing = append(out.Missing, id)
			continue
		}
		out.MarkedAsDuplicates = append(out.MarkedAsDuplicates, rec)
	}
	return out, nil
}

// Pair is one duplicate pair found by Sweep.
type Pair struct {
	KeptID      uuid.UUID `json:"kept_id"`
	DuplicateID uuid.UUID `json:"duplicate_id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Score       float64   `json:"score"`
	Archived    bool      `json:"archived"`
}

type SweepResult struct {
	Categories int    `json:"categories"`
	Compared   int    `json:"compared"`
	Detected   int    `json:"detected"`
	Archived   int    `json:"archived"`
	Failed     int    `json:"failed"`
	Pairs      []Pair `json:"pairs,omitempty"`
}

type sweepItem struct {
	c     *types.Content
	title map[string]struct{}
	body  map[string]struct{}
}

// SweepScore is the pair score used by Sweep.
func SweepScore(a, b *types.Content) float64 {
	return sweepScore(similarity.Tokens(a.Title), similarity.Tokens(a.Body), similarity.Tokens(b.Title), similarity.Tokens(b.Body))
}

func sweepScore(titleA, bodyA, titleB, bodyB map[string]struct{}) float64 {
	return sweepBodyWeight*similarity.JaccardSets(bodyA, bodyB) + sweepTitleWeight*similarity.JaccardSets(titleA, titleB)
}

// Sweep compares every pair of live items within each category and archives
// the later-created item of each duplicate pair. An item archived during the
// pass is never compared again. The sweep runs to completion even when ctx is
// cancelled; only a failure to load the corpus is returned as an error.
func (d *Detector) Sweep(ctx context.Context) (*SweepResult, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := d.tracer.Start(ctx, "dedup.sweep")
	defer span.End()

	items, err := d.content.Find(ctx, repos.ContentFilter{
		Sort: []repos.Sort{{Field: repos.SortCreatedAt}},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load corpus")
		return nil, err
	}

	groups := map[uuid.UUID][]sweepItem{}
	var order []uuid.UUID
	for _, c := range items {
		if _, ok := groups[c.CategoryID]; !ok {
			order = append(order, c.CategoryID)
		}
		groups[c.CategoryID] = append(groups[c.CategoryID], sweepItem{
			c:     c,
			title: similarity.Tokens(c.Title),
			body:  similarity.Tokens(c.Body),
		})
	}

	res := &SweepResult{Categories: len(order)}
	archived := map[uuid.UUID]bool{}
	for _, cat := range order {
		group := groups[cat]
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i].c, group[j].c
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		})
		for i := 0; i < len(group); i++ {
			if archived[group[i].c.ID] {
				continue
			}
			for j := i + 1; j < len(group); j++ {
				if archived[group[j].c.ID] {
					continue
				}
				res.Compared++
				score := sweepScore(group[i].title, group[i].body, group[j].title, group[j].body)
				if score <= SweepThreshold {
					continue
				}
				res.Detected++
				kept, dup := group[i].c, group[j].c
				pair := Pair{KeptID: kept.ID, DuplicateID: dup.ID, CategoryID: cat, Score: score}

				keptID := kept.ID
				rec, err := d.transitions.ArchiveAndRemove(ctx, dup.ID, types.ReasonDuplicate, types.ArchiveOptions{DuplicateOf: &keptID})
				if err != nil {
					res.Failed++
					d.log.Error("Sweep could not archive duplicate",
						"content_id", dup.ID, "original_content_id", kept.ID, "score", score, "error", err)
					res.Pairs = append(res.Pairs, pair)
					continue
				}
				// a nil record means another writer removed it first; either way it is gone
				archived[dup.ID] = true
				if rec != nil {
					res.Archived++
					pair.Archived = true
				}
				res.Pairs = append(res.Pairs, pair)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("dedup.categories", res.Categories),
		attribute.Int("dedup.compared", res.Compared),
		attribute.Int("dedup.detected", res.Detected),
		attribute.Int("dedup.archived", res.Archived),
		attribute.Int("dedup.failed", res.Failed),
	)
	d.log.Info("Duplicate sweep finished",
		"categories", res.Categories, "compared", res.Compared,
		"detected", res.Detected, "archived", res.Archived, "failed", res.Failed)
	return res, nil
}
