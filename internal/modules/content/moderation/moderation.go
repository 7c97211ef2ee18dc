// Package moderation holds the editorial actions on content: publishing,
// rejecting, archiving and restoring items, and premium gating.
package moderation

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/pool"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
	"github.com/yungbote/hackfeed-backend/internal/pkg/pointers"
)

type Deps struct {
	Log         *logger.Logger
	Clock       clock.Clock
	Content     repos.ContentRepo
	Categories  repos.CategoryRepo
	Transitions repos.TransitionRepo
}

type Service struct {
	log         *logger.Logger
	clock       clock.Clock
	content     repos.ContentRepo
	categories  repos.CategoryRepo
	transitions repos.TransitionRepo
}

func New(deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		log:         log.With("component", "Moderation"),
		clock:       clk,
		content:     deps.Content,
		categories:  deps.Categories,
		transitions: deps.Transitions,
	}
}

func (s *Service) Publish(ctx context.Context, id uuid.UUID) (*types.Content, error) {
	return s.update(ctx, "moderation.Publish", id, repos.Publish(s.clock.Now()))
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*types.Content, error) {
	return s.update(ctx, "moderation.Reject", id, repos.ContentPatch{Status: pointers.Ptr(types.StatusRejected)})
}

// SetPremium gates an item behind a subscription. Clearing the flag puts the
// item back in the pool its votes earn.
func (s *Service) SetPremium(ctx context.Context, id uuid.UUID, premium bool) (*types.Content, error) {
	c, err := s.content.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("moderation.SetPremium", "content %s", id)
	}
	next := types.PoolPremium
	if !premium {
		next = pool.Reclassify(types.PoolRegular, c.Likes, c.Dislikes)
	}
	if next == c.Pool {
		return c, nil
	}
	return s.update(ctx, "moderation.SetPremium", id, repos.ContentPatch{Pool: &next})
}

// Archive removes an item from the feed on an editor's request.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) (*types.DeletedContent, error) {
	rec, err := s.transitions.ArchiveAndRemove(ctx, id, types.ReasonManualDelete, types.ArchiveOptions{})
	if err != nil {
		s.log.Error("Archive failed", "content_id", id, "error", err)
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("moderation.Archive", "content %s", id)
	}
	return rec, nil
}

type CategoryArchiveResult struct {
	CategoryID uuid.UUID   `json:"category_id"`
	Archived   int         `json:"archived"`
	Failed     []uuid.UUID `json:"failed,omitempty"`
}

// ArchiveCategory deactivates a category and archives all of its live
// content. Items that fail to move are reported and can be retried by
// calling it again.
func (s *Service) ArchiveCategory(ctx context.Context, categoryID uuid.UUID) (*CategoryArchiveResult, error) {
	cat, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperr.NotFound("moderation.ArchiveCategory", "category %s", categoryID)
	}
	if _, err := s.categories.SetActive(ctx, categoryID, false); err != nil {
		return nil, err
	}
	items, err := s.content.Find(ctx, repos.ContentFilter{CategoryID: &categoryID})
	if err != nil {
		return nil, err
	}

	res := &CategoryArchiveResult{CategoryID: categoryID}
	for _, c := range items {
		rec, err := s.transitions.ArchiveAndRemove(ctx, c.ID, types.ReasonCategoryDeleted, types.ArchiveOptions{})
		if err != nil {
			res.Failed = append(res.Failed, c.ID)
			s.log.Error("Category archive failed", "category_id", categoryID, "content_id", c.ID, "error", err)
			continue
		}
		if rec != nil {
			res.Archived++
		}
	}
	s.log.Info("Category archived", "category_id", categoryID, "slug", cat.Slug,
		"archived", res.Archived, "failed", len(res.Failed))
	return res, nil
}

// Restore brings an archived item back as a draft under a fresh id.
func (s *Service) Restore(ctx context.Context, archiveID uuid.UUID) (*types.Content, error) {
	c, err := s.transitions.Restore(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	s.log.Info("Content restored", "archive_id", archiveID, "content_id", c.ID)
	return c, nil
}

func (s *Service) Purge(ctx context.Context, archiveID uuid.UUID) error {
	ok, err := s.transitions.Purge(ctx, archiveID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("moderation.Purge", "archive record %s", archiveID)
	}
	return nil
}

func (s *Service) update(ctx context.Context, op string, id uuid.UUID, patch repos.ContentPatch) (*types.Content, error) {
	c, err := s.content.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound(op, "content %s", id)
	}
	return c, nil
}
