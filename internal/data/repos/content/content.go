package content

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/data/txn"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

// ContentRepo is the live content collection.
// Lookups by id return (nil, nil) when the item does not exist.
type ContentRepo interface {
	Find(ctx context.Context, f ContentFilter) ([]*types.Content, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.Content, error)
	Insert(ctx context.Context, c *types.Content) (*types.Content, error)
	UpdateByID(ctx context.Context, id uuid.UUID, patch ContentPatch) (*types.Content, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context, f ContentFilter) (int64, error)
	IncrementStats(ctx context.Context, id uuid.UUID, delta StatsDelta) (*types.Content, error)
	// UpdatePool sets the pool unless the item is premium or its like/dislike
	// counts no longer match the ones the pool was computed from.
	UpdatePool(ctx context.Context, id uuid.UUID, pool types.Pool, likes, dislikes int64) (bool, error)
	// RecordUse bumps the usage counter and stamps the last use time in one write.
	RecordUse(ctx context.Context, id uuid.UUID, at time.Time) (*types.Content, error)
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{
		db:  db,
		log: baseLog.With("repo", "ContentRepo"),
	}
}

func (r *contentRepo) Find(ctx context.Context, f ContentFilter) ([]*types.Content, error) {
	var out []*types.Content
	q := applyContentFilter(dbctx.DB(ctx, r.db).Model(&types.Content{}), f)
	for _, s := range f.Sort {
		if s.Field.Valid() {
			q = q.Order(s.Clause())
		}
	}
	q = q.Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, txn.MapError("content.Find", err)
	}
	return out, nil
}

func (r *contentRepo) FindByID(ctx context.Context, id uuid.UUID) (*types.Content, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Content
	err := dbctx.DB(ctx, r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, txn.MapError("content.FindByID", err)
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *contentRepo) Insert(ctx context.Context, c *types.Content) (*types.Content, error) {
	if err := PrepareInsert(c, time.Now()); err != nil {
		return nil, err
	}
	if err := dbctx.DB(ctx, r.db).Create(c).Error; err != nil {
		return nil, txn.MapError("content.Insert", err)
	}
	return c, nil
}

func (r *contentRepo) UpdateByID(ctx context.Context, id uuid.UUID, patch ContentPatch) (*types.Content, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	now := time.Now().UTC()
	patch = patch.Normalize(current, now)
	res := dbctx.DB(ctx, r.db).
		Model(&types.Content{}).
		Where("id = ?", id).
		Updates(patch.Columns(now))
	if res.Error != nil {
		return nil, txn.MapError("content.UpdateByID", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *contentRepo) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res := dbctx.DB(ctx, r.db).Where("id = ?", id).Delete(&types.Content{})
	if res.Error != nil {
		return false, txn.MapError("content.DeleteByID", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *contentRepo) Count(ctx context.Context, f ContentFilter) (int64, error) {
	var n int64
	if err := applyContentFilter(dbctx.DB(ctx, r.db).Model(&types.Content{}), f).Count(&n).Error; err != nil {
		return 0, txn.MapError("content.Count", err)
	}
	return n, nil
}

func (r *contentRepo) IncrementStats(ctx context.Context, id uuid.UUID, delta StatsDelta) (*types.Content, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}
	if delta.IsZero() {
		return r.FindByID(ctx, id)
	}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	for col, v := range delta.Columns() {
		updates[col] = gorm.Expr(col+" + ?", v)
	}
	res := dbctx.DB(ctx, r.db).
		Model(&types.Content{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, txn.MapError("content.IncrementStats", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *contentRepo) UpdatePool(ctx context.Context, id uuid.UUID, pool types.Pool, likes, dislikes int64) (bool, error) {
	res := dbctx.DB(ctx, r.db).
		Model(&types.Content{}).
		Where("id = ? AND pool <> ? AND likes = ? AND dislikes = ?", id, types.PoolPremium, likes, dislikes).
		Updates(map[string]any{"pool": pool, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, txn.MapError("content.UpdatePool", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *contentRepo) RecordUse(ctx context.Context, id uuid.UUID, at time.Time) (*types.Content, error) {
	at = at.UTC()
	res := dbctx.DB(ctx, r.db).
		Model(&types.Content{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"usage_count":    gorm.Expr("usage_count + 1"),
			"last_used_date": at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return nil, txn.MapError("content.RecordUse", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func applyContentFilter(q *gorm.DB, f ContentFilter) *gorm.DB {
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if len(f.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", f.ExcludeIDs)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Pool != "" {
		q = q.Where("pool = ?", f.Pool)
	}
	if f.Type != "" {
		q = q.Where("content_type = ?", f.Type)
	}
	if f.PublishedBefore != nil {
		q = q.Where("publish_date IS NOT NULL AND publish_date < ?", f.PublishedBefore.UTC())
	}
	if f.LikesAbove != nil {
		q = q.Where("likes > ?", *f.LikesAbove)
	}
	if f.ViewsAbove != nil {
		q = q.Where("views > ?", *f.ViewsAbove)
	}
	if f.LikesOverDislikes > 0 {
		q = q.Where("likes > ? * dislikes", f.LikesOverDislikes)
	}
	return q
}

// PrepareInsert fills defaults and validates c before it is stored by any backend.
func PrepareInsert(c *types.Content, now time.Time) error {
	if c == nil {
		return apperr.InvalidArgument("content.Insert", "nil content")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Title = strings.TrimSpace(c.Title)
	c.Body = strings.TrimSpace(c.Body)
	c.Summary = strings.TrimSpace(c.Summary)
	if c.Status == "" {
		c.Status = types.StatusDraft
	}
	if c.Pool == "" {
		c.Pool = types.PoolRegular
	}
	if c.Type == "" {
		c.Type = types.TypeHack
	}
	if c.Difficulty == "" {
		c.Difficulty = types.DifficultyBeginner
	}
	if c.Source == "" {
		c.Source = types.SourceManual
	}
	if c.Status == types.StatusPublished {
		c.HasBeenPublished = true
		if c.PublishDate == nil {
			t := now.UTC()
			c.PublishDate = &t
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC()
	}
	c.UpdatedAt = now.UTC()
	if err := c.Validate(); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, "content.Insert", err.Error(), err)
	}
	return nil
}
