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

type CategoryRepo interface {
	Create(ctx context.Context, c *types.Category) (*types.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.Category, error)
	ListActive(ctx context.Context) ([]*types.Category, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{
		db:  db,
		log: baseLog.With("repo", "CategoryRepo"),
	}
}

func (r *categoryRepo) Create(ctx context.Context, c *types.Category) (*types.Category, error) {
	if err := PrepareCategory(c, time.Now()); err != nil {
		return nil, err
	}
	if err := dbctx.DB(ctx, r.db).Create(c).Error; err != nil {
		return nil, txn.MapError("category.Create", err)
	}
	return c, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*types.Category, error) {
	var c types.Category
	if err := dbctx.DB(ctx, r.db).Where("id = ?", id).Limit(1).Find(&c).Error; err != nil {
		return nil, txn.MapError("category.FindByID", err)
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *categoryRepo) ListActive(ctx context.Context) ([]*types.Category, error) {
	var out []*types.Category
	err := dbctx.DB(ctx, r.db).
		Where("is_active = ?", true).
		Order("name ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, txn.MapError("category.ListActive", err)
	}
	return out, nil
}

func (r *categoryRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	res := dbctx.DB(ctx, r.db).
		Model(&types.Category{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, txn.MapError("category.SetActive", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PrepareCategory fills defaults and validates c before it is stored by any backend.
func PrepareCategory(c *types.Category, now time.Time) error {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return apperr.InvalidArgument("category.Create", "category name is required")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Name = strings.TrimSpace(c.Name)
	if strings.TrimSpace(c.Slug) == "" {
		c.Slug = strings.ReplaceAll(strings.ToLower(c.Name), " ", "-")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC()
	}
	c.UpdatedAt = now.UTC()
	return nil
}
