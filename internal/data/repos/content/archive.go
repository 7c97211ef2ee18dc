package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/data/txn"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

// ArchiveRepo is the DeletedContent collection.
type ArchiveRepo interface {
	Find(ctx context.Context, f ArchiveFilter) ([]*types.DeletedContent, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.DeletedContent, error)
	FindByOriginalID(ctx context.Context, originalID uuid.UUID) (*types.DeletedContent, error)
	Insert(ctx context.Context, d *types.DeletedContent) (*types.DeletedContent, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context, f ArchiveFilter) (int64, error)
}

type archiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArchiveRepo(db *gorm.DB, baseLog *logger.Logger) ArchiveRepo {
	return &archiveRepo{
		db:  db,
		log: baseLog.With("repo", "ArchiveRepo"),
	}
}

func (r *archiveRepo) Find(ctx context.Context, f ArchiveFilter) ([]*types.DeletedContent, error) {
	var out []*types.DeletedContent
	q := applyArchiveFilter(dbctx.DB(ctx, r.db).Model(&types.DeletedContent{}), f).
		Order("deleted_at DESC").
		Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, txn.MapError("archive.Find", err)
	}
	return out, nil
}

func (r *archiveRepo) FindByID(ctx context.Context, id uuid.UUID) (*types.DeletedContent, error) {
	return r.first(ctx, "archive.FindByID", "id = ?", id)
}

func (r *archiveRepo) FindByOriginalID(ctx context.Context, originalID uuid.UUID) (*types.DeletedContent, error) {
	return r.first(ctx, "archive.FindByOriginalID", "original_content_id = ?", originalID)
}

func (r *archiveRepo) first(ctx context.Context, op, where string, id uuid.UUID) (*types.DeletedContent, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var d types.DeletedContent
	if err := dbctx.DB(ctx, r.db).Where(where, id).Limit(1).Find(&d).Error; err != nil {
		return nil, txn.MapError(op, err)
	}
	if d.ID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}

func (r *archiveRepo) Insert(ctx context.Context, d *types.DeletedContent) (*types.DeletedContent, error) {
	if err := PrepareArchiveInsert(d, time.Now()); err != nil {
		return nil, err
	}
	if err := dbctx.DB(ctx, r.db).Create(d).Error; err != nil {
		return nil, txn.MapError("archive.Insert", err)
	}
	return d, nil
}

func (r *archiveRepo) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res := dbctx.DB(ctx, r.db).Where("id = ?", id).Delete(&types.DeletedContent{})
	if res.Error != nil {
		return false, txn.MapError("archive.DeleteByID", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *archiveRepo) Count(ctx context.Context, f ArchiveFilter) (int64, error) {
	var n int64
	if err := applyArchiveFilter(dbctx.DB(ctx, r.db).Model(&types.DeletedContent{}), f).Count(&n).Error; err != nil {
		return 0, txn.MapError("archive.Count", err)
	}
	return n, nil
}

func applyArchiveFilter(q *gorm.DB, f ArchiveFilter) *gorm.DB {
	if f.Reason != "" {
		q = q.Where("reason = ?", f.Reason)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.OriginalContentID != nil {
		q = q.Where("original_content_id = ?", *f.OriginalContentID)
	}
	if f.DeletedBefore != nil {
		q = q.Where("deleted_at < ?", f.DeletedBefore.UTC())
	}
	return q
}

// PrepareArchiveInsert fills defaults and validates d before it is stored by any backend.
func PrepareArchiveInsert(d *types.DeletedContent, now time.Time) error {
	if d == nil || d.OriginalContentID == uuid.Nil {
		return apperr.InvalidArgument("archive.Insert", "archive record needs the original content id")
	}
	if !d.Reason.Valid() {
		return apperr.InvalidArgument("archive.Insert", "unknown delete reason %q", d.Reason)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.DeletedAt.IsZero() {
		d.DeletedAt = now.UTC()
	}
	return nil
}
