package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/data/txn"
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

// TransitionRepo moves records between the live collection and the archive.
// Callers never observe the intermediate state.
type TransitionRepo interface {
	// ArchiveAndRemove copies the item into the archive and deletes it from the
	// live collection. An id that is no longer live is a no-op returning (nil, nil).
	ArchiveAndRemove(ctx context.Context, id uuid.UUID, reason types.DeleteReason, opts types.ArchiveOptions) (*types.DeletedContent, error)
	// Restore re-inserts an archived item under a fresh id as a draft.
	Restore(ctx context.Context, archiveID uuid.UUID) (*types.Content, error)
	// Purge permanently removes an archive record.
	Purge(ctx context.Context, archiveID uuid.UUID) (bool, error)
	// Reconcile drops archive copies deleted before cutoff whose source is still
	// live and returns how many were removed. Newer copies may belong to a
	// transition that is still in flight and are left alone.
	Reconcile(ctx context.Context, cutoff time.Time) (int, error)
}

type transitionRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	tx      txn.Runner
	content ContentRepo
	archive ArchiveRepo
}

func NewTransitionRepo(db *gorm.DB, baseLog *logger.Logger, content ContentRepo, archive ArchiveRepo) TransitionRepo {
	return &transitionRepo{
		db:      db,
		log:     baseLog.With("repo", "TransitionRepo"),
		tx:      txn.NewGormRunner(db),
		content: content,
		archive: archive,
	}
}

func (r *transitionRepo) ArchiveAndRemove(ctx context.Context, id uuid.UUID, reason types.DeleteReason, opts types.ArchiveOptions) (*types.DeletedContent, error) {
	if !reason.Valid() {
		return nil, apperr.InvalidArgument("content.ArchiveAndRemove", "unknown delete reason %q", reason)
	}
	var out *types.DeletedContent
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		src, err := r.content.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if src == nil {
			return nil
		}
		rec, err := r.archive.FindByOriginalID(ctx, id)
		if err != nil {
			return err
		}
		fresh := types.NewDeletedContent(src, reason, time.Now(), opts)
		if rec != nil {
			// A copy left by an interrupted transition is rebuilt so the
			// reason and metadata reflect this call.
			fresh.ID = rec.ID
			if _, err := r.archive.DeleteByID(ctx, rec.ID); err != nil {
				return err
			}
		}
		if _, err := r.archive.Insert(ctx, fresh); err != nil {
			return err
		}
		rec = fresh
		deleted, err := r.content.DeleteByID(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("source row vanished during transition")
		}
		out = rec
		return nil
	})
	if err != nil {
		r.log.Error("Archive transition failed", "content_id", id, "reason", reason, "error", err)
		return nil, apperr.New(apperr.CodeTransition, "content.ArchiveAndRemove",
			fmt.Sprintf("id=%s reason=%s", id, reason), err)
	}
	if out == nil {
		r.log.Debug("Archive transition skipped; content not live", "content_id", id, "reason", reason)
	}
	return out, nil
}

func (r *transitionRepo) Restore(ctx context.Context, archiveID uuid.UUID) (*types.Content, error) {
	var out *types.Content
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		rec, err := r.archive.FindByID(ctx, archiveID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperr.NotFound("content.Restore", "archive record %s", archiveID)
		}
		c, err := r.content.Insert(ctx, rec.Revive(time.Now()))
		if err != nil {
			return err
		}
		if _, err := r.archive.DeleteByID(ctx, rec.ID); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, err
		}
		return nil, apperr.New(apperr.CodeTransition, "content.Restore", fmt.Sprintf("archive_id=%s", archiveID), err)
	}
	return out, nil
}

func (r *transitionRepo) Purge(ctx context.Context, archiveID uuid.UUID) (bool, error) {
	return r.archive.DeleteByID(ctx, archiveID)
}

func (r *transitionRepo) Reconcile(ctx context.Context, cutoff time.Time) (int, error) {
	db := dbctx.DB(ctx, r.db)
	var stale []*types.DeletedContent
	err := db.Model(&types.DeletedContent{}).
		Where("original_content_id IN (?)", db.Session(&gorm.Session{NewDB: true}).Model(&types.Content{}).Select("id")).
		Where("deleted_at < ?", cutoff.UTC()).
		Find(&stale).Error
	if err != nil {
		return 0, txn.MapError("content.Reconcile", err)
	}
	removed := 0
	for _, rec := range stale {
		ok, err := r.archive.DeleteByID(ctx, rec.ID)
		if err != nil {
			r.log.Error("Reconcile could not drop orphaned archive copy",
				"archive_id", rec.ID, "original_content_id", rec.OriginalContentID, "reason", rec.Reason, "error", err)
			continue
		}
		if ok {
			removed++
			r.log.Warn("Dropped orphaned archive copy of live content",
				"archive_id", rec.ID, "original_content_id", rec.OriginalContentID, "reason", rec.Reason)
		}
	}
	return removed, nil
}
