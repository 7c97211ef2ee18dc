package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

type SubscriptionStatus string

const (
	SubscriptionNone      SubscriptionStatus = "none"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	Role        Role      `gorm:"column:role;not null;default:'user';index" json:"role"`

	StreakDays   int        `gorm:"column:streak_days;not null;default:0" json:"streak_days"`
	LastActiveAt *time.Time `gorm:"column:last_active_at;index" json:"last_active_at,omitempty"`

	SubscriptionStatus  SubscriptionStatus `gorm:"column:subscription_status;not null;default:'none';index" json:"subscription_status"`
	SubscriptionTier    Tier               `gorm:"column:subscription_tier;not null;default:'free'" json:"subscription_tier"`
	SubscriptionEndDate *time.Time         `gorm:"column:subscription_end_date;index" json:"subscription_end_date,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

// CanAuthor reports whether the user may be credited for batch-generated content.
func (u *User) CanAuthor() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleSystem)
}
