package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/pointers"
)

// ContentPatch is a partial update. Nil fields are left untouched.
// HasBeenPublished is sticky: a patch can set it but never clear it.
type ContentPatch struct {
	Title   *string
	Body    *string
	Summary *string
	Tags    []string

	Status           *types.Status
	Pool             *types.Pool
	HasBeenPublished *bool
	PublishDate      *time.Time
	UsageCount       *int
	LastUsedDate     *time.Time
	RecycleCount     *int

	IsDuplicate       *bool
	OriginalContentID *uuid.UUID

	Metadata map[string]any
}

// Publish is the patch that moves an item to published at t.
func Publish(t time.Time) ContentPatch {
	return ContentPatch{
		Status:           pointers.Ptr(types.StatusPublished),
		HasBeenPublished: pointers.Ptr(true),
		PublishDate:      pointers.Time(t.UTC()),
	}
}

// Normalize keeps the published invariant: moving an item to published
// marks it as having been published and stamps a publish date if it has none.
func (p ContentPatch) Normalize(current *types.Content, now time.Time) ContentPatch {
	if p.Status == nil || *p.Status != types.StatusPublished {
		return p
	}
	p.HasBeenPublished = pointers.Ptr(true)
	if p.PublishDate == nil && (current == nil || current.PublishDate == nil) {
		t := now.UTC()
		p.PublishDate = &t
	}
	return p
}

// Columns renders the patch as a column->value map shared by the SQL and document backends.
func (p ContentPatch) Columns(now time.Time) map[string]any {
	out := map[string]any{"updated_at": now.UTC()}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Body != nil {
		out["body"] = *p.Body
	}
	if p.Summary != nil {
		out["summary"] = *p.Summary
	}
	if p.Tags != nil {
		out["tags"] = datatypes.JSONSlice[string](p.Tags)
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.Pool != nil {
		out["pool"] = *p.Pool
	}
	if p.HasBeenPublished != nil && *p.HasBeenPublished {
		out["has_been_published"] = true
	}
	if p.PublishDate != nil {
		out["publish_date"] = p.PublishDate.UTC()
	}
	if p.UsageCount != nil {
		out["usage_count"] = *p.UsageCount
	}
	if p.LastUsedDate != nil {
		out["last_used_date"] = p.LastUsedDate.UTC()
	}
	if p.RecycleCount != nil {
		out["recycle_count"] = *p.RecycleCount
	}
	if p.IsDuplicate != nil {
		out["is_duplicate"] = *p.IsDuplicate
	}
	if p.OriginalContentID != nil {
		out["original_content_id"] = *p.OriginalContentID
	}
	if p.Metadata != nil {
		out["metadata"] = datatypes.JSONMap(p.Metadata)
	}
	return out
}

// Apply mutates c the same way Columns would update a stored row.
func (p ContentPatch) Apply(c *types.Content, now time.Time) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Body != nil {
		c.Body = *p.Body
	}
	if p.Summary != nil {
		c.Summary = *p.Summary
	}
	if p.Tags != nil {
		c.Tags = append(datatypes.JSONSlice[string](nil), p.Tags...)
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Pool != nil {
		c.Pool = *p.Pool
	}
	if p.HasBeenPublished != nil && *p.HasBeenPublished {
		c.HasBeenPublished = true
	}
	if p.PublishDate != nil {
		t := p.PublishDate.UTC()
		c.PublishDate = &t
	}
	if p.UsageCount != nil {
		c.UsageCount = *p.UsageCount
	}
	if p.LastUsedDate != nil {
		t := p.LastUsedDate.UTC()
		c.LastUsedDate = &t
	}
	if p.RecycleCount != nil {
		c.RecycleCount = *p.RecycleCount
	}
	if p.IsDuplicate != nil {
		c.IsDuplicate = *p.IsDuplicate
	}
	if p.OriginalContentID != nil {
		id := *p.OriginalContentID
		c.OriginalContentID = &id
	}
	if p.Metadata != nil {
		c.Metadata = datatypes.JSONMap{}
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	c.UpdatedAt = now.UTC()
}

// StatsDelta is an increment applied to engagement counters.
type StatsDelta struct {
	Views    int64
	Likes    int64
	Dislikes int64
	Shares   int64
	Saves    int64
}

func (d StatsDelta) Validate() error {
	if d.Views < 0 || d.Likes < 0 || d.Dislikes < 0 || d.Shares < 0 || d.Saves < 0 {
		return apperr.InvalidArgument("content.IncrementStats", "counters can only be incremented")
	}
	return nil
}

func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// Columns lists the non-zero counters by column name.
func (d StatsDelta) Columns() map[string]int64 {
	out := map[string]int64{}
	for col, v := range map[string]int64{
		"views": d.Views, "likes": d.Likes, "dislikes": d.Dislikes, "shares": d.Shares, "saves": d.Saves,
	} {
		if v != 0 {
			out[col] = v
		}
	}
	return out
}

func (d StatsDelta) Apply(c *types.Content, now time.Time) {
	c.Views += d.Views
	c.Likes += d.Likes
	c.Dislikes += d.Dislikes
	c.Shares += d.Shares
	c.Saves += d.Saves
	c.UpdatedAt = now.UTC()
}
