package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/data/txn"
	types "github.com/yungbote/hackfeed-backend/internal/domain/user"
	"github.com/yungbote/hackfeed-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type UserRepo interface {
	Create(ctx context.Context, u *types.User) (*types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	// FindSystemIdentity returns the account batch-generated content is
	// attributed to: the oldest system account, else the oldest admin.
	FindSystemIdentity(ctx context.Context) (*types.User, error)
	// ResetInactiveStreaks zeroes streaks of users not active since cutoff.
	ResetInactiveStreaks(ctx context.Context, cutoff time.Time) (int64, error)
	// ExpireSubscriptions flips active or cancelled subscriptions that ended before now to expired/free.
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(ctx context.Context, u *types.User) (*types.User, error) {
	if err := PrepareUser(u, time.Now()); err != nil {
		return nil, err
	}
	if err := dbctx.DB(ctx, ur.db).Create(u).Error; err != nil {
		return nil, txn.MapError("user.Create", err)
	}
	return u, nil
}

func (ur *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	var u types.User
	if err := dbctx.DB(ctx, ur.db).Where("id = ?", id).Limit(1).Find(&u).Error; err != nil {
		return nil, txn.MapError("user.GetByID", err)
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (ur *userRepo) FindSystemIdentity(ctx context.Context) (*types.User, error) {
	for _, role := range []types.Role{types.RoleSystem, types.RoleAdmin} {
		var u types.User
		err := dbctx.DB(ctx, ur.db).
			Where("role = ?", role).
			Order("created_at ASC").
			Order("id ASC").
			Limit(1).
			Find(&u).Error
		if err != nil {
			return nil, txn.MapError("user.FindSystemIdentity", err)
		}
		if u.ID != uuid.Nil {
			return &u, nil
		}
	}
	return nil, nil
}

func (ur *userRepo) ResetInactiveStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	res := dbctx.DB(ctx, ur.db).
		Model(&types.User{}).
		Where("streak_days > 0 AND (last_active_at IS NULL OR last_active_at < ?)", cutoff.UTC()).
		Updates(map[string]any{"streak_days": 0, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, txn.MapError("user.ResetInactiveStreaks", res.Error)
	}
	return res.RowsAffected, nil
}

func (ur *userRepo) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res := dbctx.DB(ctx, ur.db).
		Model(&types.User{}).
		Where("subscription_status IN ? AND subscription_end_date IS NOT NULL AND subscription_end_date < ?",
			[]types.SubscriptionStatus{types.SubscriptionActive, types.SubscriptionCancelled}, now.UTC()).
		Updates(map[string]any{
			"subscription_status": types.SubscriptionExpired,
			"subscription_tier":   types.TierFree,
			"updated_at":          now.UTC(),
		})
	if res.Error != nil {
		return 0, txn.MapError("user.ExpireSubscriptions", res.Error)
	}
	return res.RowsAffected, nil
}

// PrepareUser fills defaults and validates u before it is stored by any backend.
func PrepareUser(u *types.User, now time.Time) error {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return apperr.InvalidArgument("user.Create", "email is required")
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = types.RoleUser
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = types.SubscriptionNone
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = types.TierFree
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.UTC()
	}
	u.UpdatedAt = now.UTC()
	return nil
}
