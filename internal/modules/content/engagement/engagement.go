// Package engagement records reader interactions and keeps each item's pool
// in step with its votes.
package engagement

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/pool"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type Action string

const (
	ActionView    Action = "view"
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
	ActionShare   Action = "share"
	ActionSave    Action = "save"
)

func (a Action) delta() (repos.StatsDelta, bool) {
	switch a {
	case ActionView:
		return repos.StatsDelta{Views: 1}, true
	case ActionLike:
		return repos.StatsDelta{Likes: 1}, true
	case ActionDislike:
		return repos.StatsDelta{Dislikes: 1}, true
	case ActionShare:
		return repos.StatsDelta{Shares: 1}, true
	case ActionSave:
		return repos.StatsDelta{Saves: 1}, true
	}
	return repos.StatsDelta{}, false
}

const poolWriteAttempts = 5

type Deps struct {
	Log     *logger.Logger
	Clock   clock.Clock
	Content repos.ContentRepo
}

type Service struct {
	log     *logger.Logger
	clock   clock.Clock
	content repos.ContentRepo
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
	return &Service{log: log.With("component", "Engagement"), clock: clk, content: deps.Content}
}

// Record applies one interaction. Likes and dislikes may move the item to a
// different pool; premium items keep their pool.
func (s *Service) Record(ctx context.Context, id uuid.UUID, action Action) (*types.Content, error) {
	delta, ok := action.delta()
	if !ok {
		return nil, apperr.InvalidArgument("engagement.Record", "unknown action %q", action)
	}
	c, err := s.content.IncrementStats(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("engagement.Record", "content %s", id)
	}
	if delta.Likes == 0 && delta.Dislikes == 0 {
		return c, nil
	}
	return s.reclassify(ctx, c), nil
}

// reclassify writes the pool derived from c's votes. The write only lands if
// the stored votes still match c; otherwise the item is re-read and
// classified again so a slower request cannot overwrite a newer pool.
func (s *Service) reclassify(ctx context.Context, c *types.Content) *types.Content {
	for range poolWriteAttempts {
		next := pool.Reclassify(c.Pool, c.Likes, c.Dislikes)
		if next == c.Pool {
			return c
		}
		changed, err := s.content.UpdatePool(ctx, c.ID, next, c.Likes, c.Dislikes)
		if err != nil {
			s.log.Warn("Pool update failed", "content_id", c.ID, "pool", next, "error", err)
			return c
		}
		if changed {
			s.log.Debug("Pool changed", "content_id", c.ID, "from", c.Pool, "to", next)
			c.Pool = next
			return c
		}
		fresh, err := s.content.FindByID(ctx, c.ID)
		if err != nil {
			s.log.Warn("Pool re-read failed", "content_id", c.ID, "error", err)
			return c
		}
		if fresh == nil {
			return c
		}
		c = fresh
	}
	s.log.Warn("Pool update kept losing to concurrent votes", "content_id", c.ID, "attempts", poolWriteAttempts)
	return c
}

// MarkUsed notes that an item was served in a feed.
func (s *Service) MarkUsed(ctx context.Context, id uuid.UUID) (*types.Content, error) {
	c, err := s.content.RecordUse(ctx, id, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("engagement.MarkUsed", "content %s", id)
	}
	return c, nil
}
