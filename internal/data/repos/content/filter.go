package content

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
)

type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortPublishDate SortField = "publish_date"
	SortLikes       SortField = "likes"
	SortViews       SortField = "views"
)

func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortPublishDate, SortLikes, SortViews:
		return true
	}
	return false
}

type Sort struct {
	Field SortField
	Desc  bool
}

func (s Sort) Clause() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return string(s.Field) + " " + dir
}

// ContentFilter selects live content. Zero values mean "any".
type ContentFilter struct {
	IDs        []uuid.UUID
	ExcludeIDs []uuid.UUID
	CategoryID *uuid.UUID
	Statuses   []types.Status
	Pool       types.Pool
	Type       types.Type

	PublishedBefore *time.Time
	LikesAbove      *int64
	ViewsAbove      *int64
	// LikesOverDislikes keeps items with likes > factor*dislikes when > 0.
	LikesOverDislikes float64

	Sort  []Sort
	Limit int
}

// Matches evaluates the filter against a single item.
func (f ContentFilter) Matches(c *types.Content) bool {
	if c == nil {
		return false
	}
	if len(f.IDs) > 0 && !containsID(f.IDs, c.ID) {
		return false
	}
	if containsID(f.ExcludeIDs, c.ID) {
		return false
	}
	if f.CategoryID != nil && c.CategoryID != *f.CategoryID {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if c.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Pool != "" && c.Pool != f.Pool {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.PublishedBefore != nil && (c.PublishDate == nil || !c.PublishDate.Before(*f.PublishedBefore)) {
		return false
	}
	if f.LikesAbove != nil && c.Likes <= *f.LikesAbove {
		return false
	}
	if f.ViewsAbove != nil && c.Views <= *f.ViewsAbove {
		return false
	}
	if f.LikesOverDislikes > 0 && float64(c.Likes) <= f.LikesOverDislikes*float64(c.Dislikes) {
		return false
	}
	return true
}

// SortContents orders items in place by the filter's sort keys, using id as the final tiebreak.
func SortContents(items []*types.Content, sorts []Sort) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		for _, s := range sorts {
			c := compareField(a, b, s.Field)
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return strings.Compare(a.ID.String(), b.ID.String()) < 0
	})
}

func compareField(a, b *types.Content, f SortField) int {
	switch f {
	case SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortPublishDate:
		switch {
		case a.PublishDate == nil && b.PublishDate == nil:
			return 0
		case a.PublishDate == nil:
			return -1
		case b.PublishDate == nil:
			return 1
		}
		return a.PublishDate.Compare(*b.PublishDate)
	case SortLikes:
		return cmpInt(a.Likes, b.Likes)
	case SortViews:
		return cmpInt(a.Views, b.Views)
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// ArchiveFilter selects archive records.
type ArchiveFilter struct {
	Reason            types.DeleteReason
	CategoryID        *uuid.UUID
	OriginalContentID *uuid.UUID
	DeletedBefore     *time.Time
	Limit             int
}

func (f ArchiveFilter) Matches(d *types.DeletedContent) bool {
	if d == nil {
		return false
	}
	if f.Reason != "" && d.Reason != f.Reason {
		return false
	}
	if f.CategoryID != nil && d.CategoryID != *f.CategoryID {
		return false
	}
	if f.OriginalContentID != nil && d.OriginalContentID != *f.OriginalContentID {
		return false
	}
	if f.DeletedBefore != nil && !d.DeletedAt.Before(*f.DeletedBefore) {
		return false
	}
	return true
}
