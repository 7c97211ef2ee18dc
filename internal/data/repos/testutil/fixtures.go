package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/domain/user"
	"github.com/yungbote/hackfeed-backend/internal/pkg/dbctx"
)

func SeedCategory(tb testing.TB, ctx context.Context, db *gorm.DB, name string) *content.Category {
	tb.Helper()
	now := time.Now().UTC()
	c := &content.Category{
		ID:        uuid.New(),
		Name:      name,
		Slug:      name + "-" + uuid.NewString()[:8],
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := dbctx.DB(ctx, db).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedContent(tb testing.TB, ctx context.Context, db *gorm.DB, categoryID uuid.UUID, title string, status content.Status, createdAt time.Time) *content.Content {
	tb.Helper()
	c := &content.Content{
		ID:         uuid.New(),
		Title:      title,
		Body:       "Body for " + title,
		Summary:    "Summary for " + title,
		CategoryID: categoryID,
		Type:       content.TypeHack,
		Difficulty: content.DifficultyBeginner,
		Source:     content.SourceManual,
		Status:     status,
		Pool:       content.PoolRegular,
		CreatedAt:  createdAt.UTC(),
		UpdatedAt:  createdAt.UTC(),
	}
	if status == content.StatusPublished {
		at := createdAt.UTC()
		c.PublishDate = &at
		c.HasBeenPublished = true
	}
	if err := dbctx.DB(ctx, db).Create(c).Error; err != nil {
		tb.Fatalf("seed content: %v", err)
	}
	return c
}

func SeedUser(tb testing.TB, ctx context.Context, db *gorm.DB, email string, role user.Role) *user.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &user.User{
		ID:                 uuid.New(),
		Email:              email,
		DisplayName:        "Seed",
		Role:               role,
		SubscriptionStatus: user.SubscriptionNone,
		SubscriptionTier:   user.TierFree,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := dbctx.DB(ctx, db).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}
