package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"

	contentrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/content"
	jobsrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/jobs"
	userrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/user"
	"github.com/yungbote/hackfeed-backend/internal/data/txn"
	"github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/domain/user"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

type categoryStore struct {
	col *mongo.Collection
}

func (r *categoryStore) Create(ctx context.Context, c *content.Category) (*content.Category, error) {
	if err := contentrepo.PrepareCategory(c, time.Now()); err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, toCategoryDoc(c)); err != nil {
		return nil, txn.MapError("category.Create", err)
	}
	return c, nil
}

func (r *categoryStore) FindByID(ctx context.Context, id uuid.UUID) (*content.Category, error) {
	var doc categoryDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, txn.MapError("category.FindByID", err)
	}
	return doc.domain(), nil
}

func (r *categoryStore) ListActive(ctx context.Context) ([]*content.Category, error) {
	cur, err := r.col.Find(ctx, bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, txn.MapError("category.ListActive", err)
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, txn.MapError("category.ListActive", err)
	}
	out := make([]*content.Category, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].domain())
	}
	return out, nil
}

func (r *categoryStore) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, txn.MapError("category.SetActive", err)
	}
	return res.MatchedCount > 0, nil
}

type userStore struct {
	col *mongo.Collection
}

func (r *userStore) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if err := userrepo.PrepareUser(u, time.Now()); err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, toUserDoc(u)); err != nil {
		return nil, txn.MapError("user.Create", err)
	}
	return u, nil
}

func (r *userStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.findOne(ctx, "user.GetByID", bson.M{"_id": id.String()}, nil)
}

func (r *userStore) FindSystemIdentity(ctx context.Context) (*user.User, error) {
	oldest := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	for _, role := range []user.Role{user.RoleSystem, user.RoleAdmin} {
		u, err := r.findOne(ctx, "user.FindSystemIdentity", bson.M{"role": string(role)}, oldest)
		if err != nil || u != nil {
			return u, err
		}
	}
	return nil, nil
}

func (r *userStore) findOne(ctx context.Context, op string, filter bson.M, opts *options.FindOneOptions) (*user.User, error) {
	if opts == nil {
		opts = options.FindOne()
	}
	var doc userDoc
	err := r.col.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, txn.MapError(op, err)
	}
	return doc.domain(), nil
}

func (r *userStore) ResetInactiveStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{
			"streak_days": bson.M{"$gt": 0},
			"$or": bson.A{
				bson.M{"last_active_at": nil},
				bson.M{"last_active_at": bson.M{"$lt": cutoff.UTC()}},
			},
		},
		bson.M{"$set": bson.M{"streak_days": 0, "updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, txn.MapError("user.ResetInactiveStreaks", err)
	}
	return res.ModifiedCount, nil
}

func (r *userStore) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{
			"subscription_status":   bson.M{"$in": bson.A{string(user.SubscriptionActive), string(user.SubscriptionCancelled)}},
			"subscription_end_date": bson.M{"$ne": nil, "$lt": now.UTC()},
		},
		bson.M{"$set": bson.M{
			"subscription_status": string(user.SubscriptionExpired),
			"subscription_tier":   string(user.TierFree),
			"updated_at":          now.UTC(),
		}})
	if err != nil {
		return 0, txn.MapError("user.ExpireSubscriptions", err)
	}
	return res.ModifiedCount, nil
}

type jobRunStore struct {
	col *mongo.Collection
}

func (r *jobRunStore) Create(ctx context.Context, job *jobs.JobRun) (*jobs.JobRun, error) {
	if err := jobsrepo.PrepareJobRun(job, time.Now()); err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, toJobRunDoc(job)); err != nil {
		return nil, txn.MapError("job_run.Create", err)
	}
	return job, nil
}

func (r *jobRunStore) GetByID(ctx context.Context, id uuid.UUID) (*jobs.JobRun, error) {
	return r.findOne(ctx, "job_run.GetByID", bson.M{"_id": id.String()}, options.FindOne())
}

func (r *jobRunStore) GetLatest(ctx context.Context, jobType, trigger, status string) (*jobs.JobRun, error) {
	if jobType == "" {
		return nil, nil
	}
	q := bson.M{"job_type": jobType}
	if trigger != "" {
		q["trigger_source"] = trigger
	}
	if status != "" {
		q["status"] = status
	}
	return r.findOne(ctx, "job_run.GetLatest", q, options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}}))
}

func (r *jobRunStore) findOne(ctx context.Context, op string, filter bson.M, opts *options.FindOneOptions) (*jobs.JobRun, error) {
	var doc jobRunDoc
	err := r.col.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, txn.MapError(op, err)
	}
	return doc.domain(), nil
}

func (r *jobRunStore) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range updates {
		switch x := v.(type) {
		case datatypes.JSON:
			set[k] = string(x)
		case []byte:
			set[k] = string(x)
		case time.Time:
			set[k] = x.UTC()
		default:
			set[k] = v
		}
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set})
	if err != nil {
		return txn.MapError("job_run.UpdateFields", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("job_run.UpdateFields", "job run %s", id)
	}
	return nil
}
