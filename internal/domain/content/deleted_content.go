package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type DeleteReason string

const (
	ReasonManualDelete    DeleteReason = "manual_delete"
	ReasonAutoDelete      DeleteReason = "auto_delete"
	ReasonDuplicate       DeleteReason = "duplicate"
	ReasonCategoryDeleted DeleteReason = "category_deleted"
	ReasonOther           DeleteReason = "other"
)

func (r DeleteReason) Valid() bool {
	switch r {
	case ReasonManualDelete, ReasonAutoDelete, ReasonDuplicate, ReasonCategoryDeleted, ReasonOther:
		return true
	}
	return false
}

// MetaOriginalContentID is the archive metadata key holding the kept item of a duplicate pair.
const MetaOriginalContentID = "original_content_id"

// DeletedContent is the archival copy of a Content record.
// OriginalContentID is the id the record had before archival and is unique,
// which is what makes the archive transition idempotent.
type DeletedContent struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalContentID uuid.UUID    `gorm:"type:uuid;column:original_content_id;not null;uniqueIndex" json:"original_content_id"`
	Reason            DeleteReason `gorm:"column:reason;not null;index" json:"reason"`
	DeletedAt         time.Time    `gorm:"column:deleted_at;not null;index" json:"deleted_at"`
	DuplicateOfID     *uuid.UUID   `gorm:"type:uuid;column:duplicate_of_id;index" json:"duplicate_of_id,omitempty"`

	Title      string                      `gorm:"column:title;not null" json:"title"`
	Body       string                      `gorm:"column:body;not null" json:"body"`
	Summary    string                      `gorm:"column:summary" json:"summary"`
	CategoryID uuid.UUID                   `gorm:"type:uuid;column:category_id;index" json:"category_id"`
	AuthorID   uuid.UUID                   `gorm:"type:uuid;column:author_id" json:"author_id"`
	Type       Type                        `gorm:"column:content_type" json:"content_type"`
	Difficulty Difficulty                  `gorm:"column:difficulty" json:"difficulty"`
	Tags       datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Source     Source                      `gorm:"column:source" json:"source"`
	Status     Status                      `gorm:"column:status" json:"status"`
	Pool       Pool                        `gorm:"column:pool" json:"pool"`

	Views    int64 `gorm:"column:views;not null;default:0" json:"views"`
	Likes    int64 `gorm:"column:likes;not null;default:0" json:"likes"`
	Dislikes int64 `gorm:"column:dislikes;not null;default:0" json:"dislikes"`
	Shares   int64 `gorm:"column:shares;not null;default:0" json:"shares"`
	Saves    int64 `gorm:"column:saves;not null;default:0" json:"saves"`

	HasBeenPublished bool       `gorm:"column:has_been_published;not null;default:false" json:"has_been_published"`
	PublishDate      *time.Time `gorm:"column:publish_date" json:"publish_date,omitempty"`
	UsageCount       int        `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	LastUsedDate     *time.Time `gorm:"column:last_used_date" json:"last_used_date,omitempty"`
	RecycleCount     int        `gorm:"column:recycle_count;not null;default:0" json:"recycle_count"`
	IsDuplicate      bool       `gorm:"column:is_duplicate;not null;default:false" json:"is_duplicate"`

	Metadata        datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	ArchiveMetadata datatypes.JSONMap `gorm:"column:archive_metadata" json:"archive_metadata,omitempty"`

	ContentCreatedAt time.Time `gorm:"column:content_created_at" json:"content_created_at"`
	ContentUpdatedAt time.Time `gorm:"column:content_updated_at" json:"content_updated_at"`
}

func (DeletedContent) TableName() string { return "deleted_content" }

// ArchiveOptions carries the optional provenance attached to an archive copy.
type ArchiveOptions struct {
	DuplicateOf *uuid.UUID
	Metadata    map[string]any
}

// NewDeletedContent snapshots c into an archive record.
func NewDeletedContent(c *Content, reason DeleteReason, at time.Time, opts ArchiveOptions) *DeletedContent {
	src := c.Clone()
	d := &DeletedContent{
		ID:                uuid.New(),
		OriginalContentID: src.ID,
		Reason:            reason,
		DeletedAt:         at.UTC(),
		Title:             src.Title,
		Body:              src.Body,
		Summary:           src.Summary,
		CategoryID:        src.CategoryID,
		AuthorID:          src.AuthorID,
		Type:              src.Type,
		Difficulty:        src.Difficulty,
		Tags:              src.Tags,
		Source:            src.Source,
		Status:            src.Status,
		Pool:              src.Pool,
		Views:             src.Views,
		Likes:             src.Likes,
		Dislikes:          src.Dislikes,
		Shares:            src.Shares,
		Saves:             src.Saves,
		HasBeenPublished:  src.HasBeenPublished,
		PublishDate:       src.PublishDate,
		UsageCount:        src.UsageCount,
		LastUsedDate:      src.LastUsedDate,
		RecycleCount:      src.RecycleCount,
		IsDuplicate:       src.IsDuplicate || reason == ReasonDuplicate,
		Metadata:          src.Metadata,
		ContentCreatedAt:  src.CreatedAt,
		ContentUpdatedAt:  src.UpdatedAt,
	}
	if len(opts.Metadata) > 0 {
		d.ArchiveMetadata = datatypes.JSONMap{}
		for k, v := range opts.Metadata {
			d.ArchiveMetadata[k] = v
		}
	}
	if opts.DuplicateOf != nil {
		id := *opts.DuplicateOf
		d.DuplicateOfID = &id
		if d.ArchiveMetadata == nil {
			d.ArchiveMetadata = datatypes.JSONMap{}
		}
		d.ArchiveMetadata[MetaOriginalContentID] = id.String()
	}
	return d
}

// Revive builds the Content that a restore re-inserts: fresh id, back to draft.
// Engagement stats and the sticky publication flag survive the round trip.
func (d *DeletedContent) Revive(at time.Time) *Content {
	c := &Content{
		ID:               uuid.New(),
		Title:            d.Title,
		Body:             d.Body,
		Summary:          d.Summary,
		CategoryID:       d.CategoryID,
		AuthorID:         d.AuthorID,
		Type:             d.Type,
		Difficulty:       d.Difficulty,
		Tags:             append(datatypes.JSONSlice[string](nil), d.Tags...),
		Source:           d.Source,
		Status:           StatusDraft,
		Pool:             d.Pool,
		Views:            d.Views,
		Likes:            d.Likes,
		Dislikes:         d.Dislikes,
		Shares:           d.Shares,
		Saves:            d.Saves,
		HasBeenPublished: d.HasBeenPublished,
		UsageCount:       d.UsageCount,
		LastUsedDate:     cloneTime(d.LastUsedDate),
		RecycleCount:     d.RecycleCount,
		Metadata:         datatypes.JSONMap{},
		CreatedAt:        at.UTC(),
		UpdatedAt:        at.UTC(),
	}
	for k, v := range d.Metadata {
		c.Metadata[k] = v
	}
	c.Metadata["restored_from"] = d.OriginalContentID.String()
	if c.Pool == "" {
		c.Pool = PoolRegular
	}
	return c
}
