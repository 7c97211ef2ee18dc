package content

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusArchived  Status = "archived"
)

type Pool string

const (
	PoolRegular     Pool = "regular"
	PoolAccepted    Pool = "accepted"
	PoolHighlyLiked Pool = "highly_liked"
	PoolDisliked    Pool = "disliked"
	PoolPremium     Pool = "premium"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

type Type string

const (
	TypeHack      Type = "hack"
	TypeTip       Type = "tip"
	TypeTutorial  Type = "tutorial"
	TypeChallenge Type = "challenge"
)

type Source string

const (
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// Content is a unit of user-facing feed material.
type Content struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string                      `gorm:"column:title;not null" json:"title"`
	Body       string                      `gorm:"column:body;not null" json:"body"`
	Summary    string                      `gorm:"column:summary;not null" json:"summary"`
	CategoryID uuid.UUID                   `gorm:"type:uuid;column:category_id;not null;index" json:"category_id"`
	AuthorID   uuid.UUID                   `gorm:"type:uuid;column:author_id;index" json:"author_id"`
	Type       Type                        `gorm:"column:content_type;not null;default:'hack';index" json:"content_type"`
	Difficulty Difficulty                  `gorm:"column:difficulty;not null;default:'beginner'" json:"difficulty"`
	Tags       datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Source     Source                      `gorm:"column:source;not null;default:'manual'" json:"source"`

	Status Status `gorm:"column:status;not null;default:'draft';index" json:"status"`
	Pool   Pool   `gorm:"column:pool;not null;default:'regular';index" json:"pool"`

	Views    int64 `gorm:"column:views;not null;default:0" json:"views"`
	Likes    int64 `gorm:"column:likes;not null;default:0" json:"likes"`
	Dislikes int64 `gorm:"column:dislikes;not null;default:0" json:"dislikes"`
	Shares   int64 `gorm:"column:shares;not null;default:0" json:"shares"`
	Saves    int64 `gorm:"column:saves;not null;default:0" json:"saves"`

	HasBeenPublished bool       `gorm:"column:has_been_published;not null;default:false" json:"has_been_published"`
	PublishDate      *time.Time `gorm:"column:publish_date;index" json:"publish_date,omitempty"`
	UsageCount       int        `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	LastUsedDate     *time.Time `gorm:"column:last_used_date" json:"last_used_date,omitempty"`
	RecycleCount     int        `gorm:"column:recycle_count;not null;default:0" json:"recycle_count"`

	IsDuplicate       bool       `gorm:"column:is_duplicate;not null;default:false" json:"is_duplicate"`
	OriginalContentID *uuid.UUID `gorm:"type:uuid;column:original_content_id" json:"original_content_id,omitempty"`

	Metadata datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Content) TableName() string { return "content" }

// Validate checks the fields every stored item must carry.
func (c *Content) Validate() error {
	if c == nil {
		return errMissing("content")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errMissing("title")
	}
	if strings.TrimSpace(c.Body) == "" {
		return errMissing("body")
	}
	if strings.TrimSpace(c.Summary) == "" {
		return errMissing("summary")
	}
	if c.CategoryID == uuid.Nil {
		return errMissing("category_id")
	}
	if c.Status == StatusPublished && (c.PublishDate == nil || !c.HasBeenPublished) {
		return &FieldError{Field: "publish_date", Reason: "published content needs publish_date and has_been_published"}
	}
	if c.Views < 0 || c.Likes < 0 || c.Dislikes < 0 || c.Shares < 0 || c.Saves < 0 {
		return &FieldError{Field: "stats", Reason: "counters must be non-negative"}
	}
	return nil
}

// Clone returns a deep copy safe to hand to other goroutines.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := *c
	if c.Tags != nil {
		out.Tags = append(datatypes.JSONSlice[string](nil), c.Tags...)
	}
	if c.Metadata != nil {
		out.Metadata = make(datatypes.JSONMap, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	out.PublishDate = cloneTime(c.PublishDate)
	out.LastUsedDate = cloneTime(c.LastUsedDate)
	if c.OriginalContentID != nil {
		id := *c.OriginalContentID
		out.OriginalContentID = &id
	}
	return &out
}

// FieldError reports a missing or inconsistent field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Reason }

func errMissing(field string) error {
	return &FieldError{Field: field, Reason: "required"}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
