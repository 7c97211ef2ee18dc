package user

import (
	"testing"
	"time"

	"github.com/yungbote/hackfeed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hackfeed-backend/internal/domain/user"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestUserRepo_FindSystemIdentity(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewUserRepo(db, testutil.Logger(t))

	got, err := repo.FindSystemIdentity(ctx)
	if err != nil {
		t.Fatalf("FindSystemIdentity (empty): %v", err)
	}
	if got != nil {
		t.Fatalf("FindSystemIdentity (empty): expected nil, got %+v", got)
	}

	admin := testutil.SeedUser(t, ctx, db, "admin@example.com", types.RoleAdmin)
	got, err = repo.FindSystemIdentity(ctx)
	if err != nil || got == nil || got.ID != admin.ID {
		t.Fatalf("FindSystemIdentity (admin): err=%v got=%+v", err, got)
	}

	sys := testutil.SeedUser(t, ctx, db, "system@example.com", types.RoleSystem)
	got, err = repo.FindSystemIdentity(ctx)
	if err != nil || got == nil || got.ID != sys.ID {
		t.Fatalf("FindSystemIdentity (system preferred): err=%v got=%+v", err, got)
	}
}

func TestUserRepo_ResetInactiveStreaks(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewUserRepo(db, testutil.Logger(t))
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	active, err := repo.Create(ctx, &types.User{Email: "active@example.com", StreakDays: 4, LastActiveAt: ptrTime(now.Add(-time.Hour))})
	if err != nil {
		t.Fatalf("Create active: %v", err)
	}
	idle, err := repo.Create(ctx, &types.User{Email: "idle@example.com", StreakDays: 9, LastActiveAt: ptrTime(now.Add(-72 * time.Hour))})
	if err != nil {
		t.Fatalf("Create idle: %v", err)
	}

	n, err := repo.ResetInactiveStreaks(ctx, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("ResetInactiveStreaks: %v", err)
	}
	if n != 1 {
		t.Fatalf("ResetInactiveStreaks: want=1 got=%d", n)
	}
	if u, _ := repo.GetByID(ctx, idle.ID); u == nil || u.StreakDays != 0 {
		t.Fatalf("idle streak not reset: %+v", u)
	}
	if u, _ := repo.GetByID(ctx, active.ID); u == nil || u.StreakDays != 4 {
		t.Fatalf("active streak changed: %+v", u)
	}
}

func TestUserRepo_ExpireSubscriptions(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewUserRepo(db, testutil.Logger(t))
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	lapsed, _ := repo.Create(ctx, &types.User{Email: "lapsed@example.com", SubscriptionStatus: types.SubscriptionCancelled,
		SubscriptionTier: types.TierPremium, SubscriptionEndDate: ptrTime(now.Add(-time.Hour))})
	current, _ := repo.Create(ctx, &types.User{Email: "current@example.com", SubscriptionStatus: types.SubscriptionActive,
		SubscriptionTier: types.TierPremium, SubscriptionEndDate: ptrTime(now.Add(24 * time.Hour))})

	n, err := repo.ExpireSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("ExpireSubscriptions: %v", err)
	}
	if n != 1 {
		t.Fatalf("ExpireSubscriptions: want=1 got=%d", n)
	}
	u, _ := repo.GetByID(ctx, lapsed.ID)
	if u == nil || u.SubscriptionStatus != types.SubscriptionExpired || u.SubscriptionTier != types.TierFree {
		t.Fatalf("lapsed subscription not expired: %+v", u)
	}
	u, _ = repo.GetByID(ctx, current.ID)
	if u == nil || u.SubscriptionStatus != types.SubscriptionActive {
		t.Fatalf("current subscription changed: %+v", u)
	}
}
