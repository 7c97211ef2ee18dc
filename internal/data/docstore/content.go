package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	contentrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/content"
	"github.com/yungbote/hackfeed-backend/internal/data/txn"
	"github.com/yungbote/hackfeed-backend/internal/domain/content"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type contentStore struct {
	col *mongo.Collection
	log *logger.Logger
}

func contentQuery(f contentrepo.ContentFilter) bson.M {
	q := bson.M{}
	idq := bson.M{}
	if len(f.IDs) > 0 {
		idq["$in"] = idStrings(f.IDs)
	}
	if len(f.ExcludeIDs) > 0 {
		idq["$nin"] = idStrings(f.ExcludeIDs)
	}
	if len(idq) > 0 {
		q["_id"] = idq
	}
	if f.CategoryID != nil {
		q["category_id"] = f.CategoryID.String()
	}
	if len(f.Statuses) > 0 {
		st := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			st = append(st, string(s))
		}
		q["status"] = bson.M{"$in": st}
	}
	if f.Pool != "" {
		q["pool"] = string(f.Pool)
	}
	if f.Type != "" {
		q["content_type"] = string(f.Type)
	}
	if f.PublishedBefore != nil {
		q["publish_date"] = bson.M{"$ne": nil, "$lt": f.PublishedBefore.UTC()}
	}
	if f.LikesAbove != nil {
		q["likes"] = bson.M{"$gt": *f.LikesAbove}
	}
	if f.ViewsAbove != nil {
		q["views"] = bson.M{"$gt": *f.ViewsAbove}
	}
	if f.LikesOverDislikes > 0 {
		q["$expr"] = bson.M{"$gt": bson.A{"$likes", bson.M{"$multiply": bson.A{f.LikesOverDislikes, "$dislikes"}}}}
	}
	return q
}

func contentSort(sorts []contentrepo.Sort) bson.D {
	out := bson.D{}
	for _, s := range sorts {
		if !s.Field.Valid() {
			continue
		}
		dir := 1
		if s.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: string(s.Field), Value: dir})
	}
	return append(out, bson.E{Key: "_id", Value: 1})
}

func (r *contentStore) Find(ctx context.Context, f contentrepo.ContentFilter) ([]*content.Content, error) {
	opts := options.Find().SetSort(contentSort(f.Sort))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, contentQuery(f), opts)
	if err != nil {
		return nil, txn.MapError("content.Find", err)
	}
	var docs []contentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, txn.MapError("content.Find", err)
	}
	out := make([]*content.Content, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].domain())
	}
	return out, nil
}

func (r *contentStore) FindByID(ctx context.Context, id uuid.UUID) (*content.Content, error) {
	var doc contentDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, txn.MapError("content.FindByID", err)
	}
	return doc.domain(), nil
}

func (r *contentStore) Insert(ctx context.Context, c *content.Content) (*content.Content, error) {
	if err := contentrepo.PrepareInsert(c, time.Now()); err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, toContentDoc(c)); err != nil {
		return nil, txn.MapError("content.Insert", err)
	}
	return c, nil
}

func (r *contentStore) UpdateByID(ctx context.Context, id uuid.UUID, patch contentrepo.ContentPatch) (*content.Content, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	now := time.Now().UTC()
	patch = patch.Normalize(current, now)
	return r.findOneAndUpdate(ctx, "content.UpdateByID", bson.M{"_id": id.String()},
		bson.M{"$set": bsonColumns(patch.Columns(now))})
}

func (r *contentStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return false, txn.MapError("content.DeleteByID", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *contentStore) Count(ctx context.Context, f contentrepo.ContentFilter) (int64, error) {
	n, err := r.col.CountDocuments(ctx, contentQuery(f))
	if err != nil {
		return 0, txn.MapError("content.Count", err)
	}
	return n, nil
}

func (r *contentStore) IncrementStats(ctx context.Context, id uuid.UUID, delta contentrepo.StatsDelta) (*content.Content, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}
	if delta.IsZero() {
		return r.FindByID(ctx, id)
	}
	inc := bson.M{}
	for col, v := range delta.Columns() {
		inc[col] = v
	}
	return r.findOneAndUpdate(ctx, "content.IncrementStats", bson.M{"_id": id.String()},
		bson.M{"$inc": inc, "$set": bson.M{"updated_at": time.Now().UTC()}})
}

func (r *contentStore) UpdatePool(ctx context.Context, id uuid.UUID, pool content.Pool, likes, dislikes int64) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"_id":      id.String(),
			"pool":     bson.M{"$ne": string(content.PoolPremium)},
			"likes":    likes,
			"dislikes": dislikes,
		},
		bson.M{"$set": bson.M{"pool": string(pool), "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, txn.MapError("content.UpdatePool", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *contentStore) RecordUse(ctx context.Context, id uuid.UUID, at time.Time) (*content.Content, error) {
	at = at.UTC()
	return r.findOneAndUpdate(ctx, "content.RecordUse", bson.M{"_id": id.String()},
		bson.M{"$inc": bson.M{"usage_count": 1}, "$set": bson.M{"last_used_date": at, "updated_at": at}})
}

func (r *contentStore) findOneAndUpdate(ctx context.Context, op string, filter, update bson.M) (*content.Content, error) {
	var doc contentDoc
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, txn.MapError(op, err)
	}
	return doc.domain(), nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

type archiveStore struct {
	col *mongo.Collection
	log *logger.Logger
}

func archiveQuery(f contentrepo.ArchiveFilter) bson.M {
	q := bson.M{}
	if f.Reason != "" {
		q["reason"] = string(f.Reason)
	}
	if f.CategoryID != nil {
		q["category_id"] = f.CategoryID.String()
	}
	if f.OriginalContentID != nil {
		q["original_content_id"] = f.OriginalContentID.String()
	}
	if f.DeletedBefore != nil {
		q["deleted_at"] = bson.M{"$lt": f.DeletedBefore.UTC()}
	}
	return q
}

func (r *archiveStore) Find(ctx context.Context, f contentrepo.ArchiveFilter) ([]*content.DeletedContent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "deleted_at", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, archiveQuery(f), opts)
	if err != nil {
		return nil, txn.MapError("archive.Find", err)
	}
	var docs []archiveDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, txn.MapError("archive.Find", err)
	}
	out := make([]*content.DeletedContent, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].domain())
	}
	return out, nil
}

func (r *archiveStore) FindByID(ctx context.Context, id uuid.UUID) (*content.DeletedContent, error) {
	return findArchive(ctx, r.col, "archive.FindByID", bson.M{"_id": id.String()})
}

func (r *archiveStore) FindByOriginalID(ctx context.Context, originalID uuid.UUID) (*content.DeletedContent, error) {
	return findArchive(ctx, r.col, "archive.FindByOriginalID", bson.M{"original_content_id": originalID.String()})
}

func findArchive(ctx context.Context, col *mongo.Collection, op string, filter bson.M) (*content.DeletedContent, error) {
	var doc archiveDoc
	err := col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, txn.MapError(op, err)
	}
	return doc.domain(), nil
}

func (r *archiveStore) Insert(ctx context.Context, d *content.DeletedContent) (*content.DeletedContent, error) {
	if err := contentrepo.PrepareArchiveInsert(d, time.Now()); err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, toArchiveDoc(d)); err != nil {
		return nil, txn.MapError("archive.Insert", err)
	}
	return d, nil
}

func (r *archiveStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return false, txn.MapError("archive.DeleteByID", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *archiveStore) Count(ctx context.Context, f contentrepo.ArchiveFilter) (int64, error) {
	n, err := r.col.CountDocuments(ctx, archiveQuery(f))
	if err != nil {
		return 0, txn.MapError("archive.Count", err)
	}
	return n, nil
}

// transitionStore moves documents without multi-document transactions, so it
// works against standalone servers. The archive copy is upserted on
// original_content_id first, then the source is deleted; when the delete fails
// a copy this call created is removed again. Anything left behind is an
// orphan that Reconcile drops.
type transitionStore struct {
	content *mongo.Collection
	archive *mongo.Collection
	log     *logger.Logger
}

func (r *transitionStore) ArchiveAndRemove(ctx context.Context, id uuid.UUID, reason content.DeleteReason, opts content.ArchiveOptions) (*content.DeletedContent, error) {
	if !reason.Valid() {
		return nil, apperr.InvalidArgument("content.ArchiveAndRemove", "unknown delete reason %q", reason)
	}
	var src contentDoc
	err := r.content.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&src)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.log.Debug("Archive transition skipped; content not live", "content_id", id, "reason", reason)
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(id, reason, err)
	}

	rec := content.NewDeletedContent(src.domain(), reason, time.Now(), opts)
	fields, err := archiveFields(rec)
	if err != nil {
		return nil, r.fail(id, reason, err)
	}
	// A copy left by an interrupted transition keeps its _id but takes this
	// call's snapshot, reason and metadata.
	res, err := r.archive.UpdateOne(ctx,
		bson.M{"original_content_id": id.String()},
		bson.M{"$set": fields, "$setOnInsert": bson.M{"_id": rec.ID.String()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return nil, r.fail(id, reason, err)
	}
	created := res.UpsertedCount > 0

	del, err := r.content.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err == nil && del.DeletedCount == 0 {
		err = errors.New("source document vanished during transition")
	}
	if err != nil {
		if created {
			if _, cerr := r.archive.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": rec.ID.String()}); cerr != nil {
				r.log.Warn("Could not undo archive copy; left for reconcile", "content_id", id, "archive_id", rec.ID, "error", cerr)
			}
		}
		return nil, r.fail(id, reason, err)
	}

	stored, err := findArchive(ctx, r.archive, "content.ArchiveAndRemove", bson.M{"original_content_id": id.String()})
	if err != nil || stored == nil {
		return rec, nil
	}
	return stored, nil
}

func archiveFields(rec *content.DeletedContent) (bson.M, error) {
	raw, err := bson.Marshal(toArchiveDoc(rec))
	if err != nil {
		return nil, err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "_id")
	return fields, nil
}

func (r *transitionStore) fail(id uuid.UUID, reason content.DeleteReason, err error) error {
	r.log.Error("Archive transition failed", "content_id", id, "reason", reason, "error", err)
	return apperr.New(apperr.CodeTransition, "content.ArchiveAndRemove",
		"id="+id.String()+" reason="+string(reason), txn.MapError("content.ArchiveAndRemove", err))
}

func (r *transitionStore) Restore(ctx context.Context, archiveID uuid.UUID) (*content.Content, error) {
	rec, err := findArchive(ctx, r.archive, "content.Restore", bson.M{"_id": archiveID.String()})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("content.Restore", "archive record %s", archiveID)
	}
	c := rec.Revive(time.Now())
	if err := contentrepo.PrepareInsert(c, time.Now()); err != nil {
		return nil, err
	}
	if _, err := r.content.InsertOne(ctx, toContentDoc(c)); err != nil {
		return nil, apperr.New(apperr.CodeTransition, "content.Restore", "archive_id="+archiveID.String(), err)
	}
	if _, err := r.archive.DeleteOne(ctx, bson.M{"_id": archiveID.String()}); err != nil {
		_, _ = r.content.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": c.ID.String()})
		return nil, apperr.New(apperr.CodeTransition, "content.Restore", "archive_id="+archiveID.String(), err)
	}
	return c, nil
}

func (r *transitionStore) Purge(ctx context.Context, archiveID uuid.UUID) (bool, error) {
	res, err := r.archive.DeleteOne(ctx, bson.M{"_id": archiveID.String()})
	if err != nil {
		return false, txn.MapError("content.Purge", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *transitionStore) Reconcile(ctx context.Context, cutoff time.Time) (int, error) {
	cur, err := r.archive.Find(ctx, bson.M{"deleted_at": bson.M{"$lt": cutoff.UTC()}},
		options.Find().SetProjection(bson.M{"_id": 1, "original_content_id": 1, "reason": 1}))
	if err != nil {
		return 0, txn.MapError("content.Reconcile", err)
	}
	var recs []archiveDoc
	if err := cur.All(ctx, &recs); err != nil {
		return 0, txn.MapError("content.Reconcile", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	originals := make([]string, 0, len(recs))
	for _, rec := range recs {
		originals = append(originals, rec.OriginalContentID)
	}
	liveCur, err := r.content.Find(ctx, bson.M{"_id": bson.M{"$in": originals}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, txn.MapError("content.Reconcile", err)
	}
	var live []struct {
		ID string `bson:"_id"`
	}
	if err := liveCur.All(ctx, &live); err != nil {
		return 0, txn.MapError("content.Reconcile", err)
	}
	liveSet := make(map[string]struct{}, len(live))
	for _, l := range live {
		liveSet[l.ID] = struct{}{}
	}

	removed := 0
	for _, rec := range recs {
		if _, ok := liveSet[rec.OriginalContentID]; !ok {
			continue
		}
		res, err := r.archive.DeleteOne(ctx, bson.M{"_id": rec.ID})
		if err != nil {
			r.log.Error("Reconcile could not drop orphaned archive copy",
				"archive_id", rec.ID, "original_content_id", rec.OriginalContentID, "error", err)
			continue
		}
		if res.DeletedCount > 0 {
			removed++
			r.log.Warn("Dropped orphaned archive copy of live content",
				"archive_id", rec.ID, "original_content_id", rec.OriginalContentID, "reason", rec.Reason)
		}
	}
	return removed, nil
}
