package docstore

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"

	"github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/domain/user"
)

type contentDoc struct {
	ID         string   `bson:"_id"`
	Title      string   `bson:"title"`
	Body       string   `bson:"body"`
	Summary    string   `bson:"summary"`
	CategoryID string   `bson:"category_id"`
	AuthorID   string   `bson:"author_id"`
	Type       string   `bson:"content_type"`
	Difficulty string   `bson:"difficulty"`
	Tags       []string `bson:"tags"`
	Source     string   `bson:"source"`
	Status     string   `bson:"status"`
	Pool       string   `bson:"pool"`

	Views    int64 `bson:"views"`
	Likes    int64 `bson:"likes"`
	Dislikes int64 `bson:"dislikes"`
	Shares   int64 `bson:"shares"`
	Saves    int64 `bson:"saves"`

	HasBeenPublished bool       `bson:"has_been_published"`
	PublishDate      *time.Time `bson:"publish_date"`
	UsageCount       int        `bson:"usage_count"`
	LastUsedDate     *time.Time `bson:"last_used_date"`
	RecycleCount     int        `bson:"recycle_count"`

	IsDuplicate       bool    `bson:"is_duplicate"`
	OriginalContentID *string `bson:"original_content_id"`

	Metadata map[string]any `bson:"metadata,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toContentDoc(c *content.Content) *contentDoc {
	return &contentDoc{
		ID:                c.ID.String(),
		Title:             c.Title,
		Body:              c.Body,
		Summary:           c.Summary,
		CategoryID:        c.CategoryID.String(),
		AuthorID:          idString(c.AuthorID),
		Type:              string(c.Type),
		Difficulty:        string(c.Difficulty),
		Tags:              []string(c.Tags),
		Source:            string(c.Source),
		Status:            string(c.Status),
		Pool:              string(c.Pool),
		Views:             c.Views,
		Likes:             c.Likes,
		Dislikes:          c.Dislikes,
		Shares:            c.Shares,
		Saves:             c.Saves,
		HasBeenPublished:  c.HasBeenPublished,
		PublishDate:       c.PublishDate,
		UsageCount:        c.UsageCount,
		LastUsedDate:      c.LastUsedDate,
		RecycleCount:      c.RecycleCount,
		IsDuplicate:       c.IsDuplicate,
		OriginalContentID: idPtrString(c.OriginalContentID),
		Metadata:          map[string]any(c.Metadata),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (d *contentDoc) domain() *content.Content {
	return &content.Content{
		ID:                parseID(d.ID),
		Title:             d.Title,
		Body:              d.Body,
		Summary:           d.Summary,
		CategoryID:        parseID(d.CategoryID),
		AuthorID:          parseID(d.AuthorID),
		Type:              content.Type(d.Type),
		Difficulty:        content.Difficulty(d.Difficulty),
		Tags:              datatypes.JSONSlice[string](d.Tags),
		Source:            content.Source(d.Source),
		Status:            content.Status(d.Status),
		Pool:              content.Pool(d.Pool),
		Views:             d.Views,
		Likes:             d.Likes,
		Dislikes:          d.Dislikes,
		Shares:            d.Shares,
		Saves:             d.Saves,
		HasBeenPublished:  d.HasBeenPublished,
		PublishDate:       utcPtr(d.PublishDate),
		UsageCount:        d.UsageCount,
		LastUsedDate:      utcPtr(d.LastUsedDate),
		RecycleCount:      d.RecycleCount,
		IsDuplicate:       d.IsDuplicate,
		OriginalContentID: parseIDPtr(d.OriginalContentID),
		Metadata:          plainMap(d.Metadata),
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
}

type archiveDoc struct {
	ID                string    `bson:"_id"`
	OriginalContentID string    `bson:"original_content_id"`
	Reason            string    `bson:"reason"`
	DeletedAt         time.Time `bson:"deleted_at"`
	DuplicateOfID     *string   `bson:"duplicate_of_id"`

	Title      string   `bson:"title"`
	Body       string   `bson:"body"`
	Summary    string   `bson:"summary"`
	CategoryID string   `bson:"category_id"`
	AuthorID   string   `bson:"author_id"`
	Type       string   `bson:"content_type"`
	Difficulty string   `bson:"difficulty"`
	Tags       []string `bson:"tags"`
	Source     string   `bson:"source"`
	Status     string   `bson:"status"`
	Pool       string   `bson:"pool"`

	Views    int64 `bson:"views"`
	Likes    int64 `bson:"likes"`
	Dislikes int64 `bson:"dislikes"`
	Shares   int64 `bson:"shares"`
	Saves    int64 `bson:"saves"`

	HasBeenPublished bool       `bson:"has_been_published"`
	PublishDate      *time.Time `bson:"publish_date"`
	UsageCount       int        `bson:"usage_count"`
	LastUsedDate     *time.Time `bson:"last_used_date"`
	RecycleCount     int        `bson:"recycle_count"`
	IsDuplicate      bool       `bson:"is_duplicate"`

	Metadata        map[string]any `bson:"metadata,omitempty"`
	ArchiveMetadata map[string]any `bson:"archive_metadata,omitempty"`

	ContentCreatedAt time.Time `bson:"content_created_at"`
	ContentUpdatedAt time.Time `bson:"content_updated_at"`
}

func toArchiveDoc(d *content.DeletedContent) *archiveDoc {
	return &archiveDoc{
		ID:                d.ID.String(),
		OriginalContentID: d.OriginalContentID.String(),
		Reason:            string(d.Reason),
		DeletedAt:         d.DeletedAt,
		DuplicateOfID:     idPtrString(d.DuplicateOfID),
		Title:             d.Title,
		Body:              d.Body,
		Summary:           d.Summary,
		CategoryID:        d.CategoryID.String(),
		AuthorID:          idString(d.AuthorID),
		Type:              string(d.Type),
		Difficulty:        string(d.Difficulty),
		Tags:              []string(d.Tags),
		Source:            string(d.Source),
		Status:            string(d.Status),
		Pool:              string(d.Pool),
		Views:             d.Views,
		Likes:             d.Likes,
		Dislikes:          d.Dislikes,
		Shares:            d.Shares,
		Saves:             d.Saves,
		HasBeenPublished:  d.HasBeenPublished,
		PublishDate:       d.PublishDate,
		UsageCount:        d.UsageCount,
		LastUsedDate:      d.LastUsedDate,
		RecycleCount:      d.RecycleCount,
		IsDuplicate:       d.IsDuplicate,
		Metadata:          map[string]any(d.Metadata),
		ArchiveMetadata:   map[string]any(d.ArchiveMetadata),
		ContentCreatedAt:  d.ContentCreatedAt,
		ContentUpdatedAt:  d.ContentUpdatedAt,
	}
}

func (a *archiveDoc) domain() *content.DeletedContent {
	return &content.DeletedContent{
		ID:                parseID(a.ID),
		OriginalContentID: parseID(a.OriginalContentID),
		Reason:            content.DeleteReason(a.Reason),
		DeletedAt:         a.DeletedAt.UTC(),
		DuplicateOfID:     parseIDPtr(a.DuplicateOfID),
		Title:             a.Title,
		Body:              a.Body,
		Summary:           a.Summary,
		CategoryID:        parseID(a.CategoryID),
		AuthorID:          parseID(a.AuthorID),
		Type:              content.Type(a.Type),
		Difficulty:        content.Difficulty(a.Difficulty),
		Tags:              datatypes.JSONSlice[string](a.Tags),
		Source:            content.Source(a.Source),
		Status:            content.Status(a.Status),
		Pool:              content.Pool(a.Pool),
		Views:             a.Views,
		Likes:             a.Likes,
		Dislikes:          a.Dislikes,
		Shares:            a.Shares,
		Saves:             a.Saves,
		HasBeenPublished:  a.HasBeenPublished,
		PublishDate:       utcPtr(a.PublishDate),
		UsageCount:        a.UsageCount,
		LastUsedDate:      utcPtr(a.LastUsedDate),
		RecycleCount:      a.RecycleCount,
		IsDuplicate:       a.IsDuplicate,
		Metadata:          plainMap(a.Metadata),
		ArchiveMetadata:   plainMap(a.ArchiveMetadata),
		ContentCreatedAt:  a.ContentCreatedAt.UTC(),
		ContentUpdatedAt:  a.ContentUpdatedAt.UTC(),
	}
}

type categoryDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Slug        string    `bson:"slug"`
	Description string    `bson:"description"`
	IsActive    bool      `bson:"is_active"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toCategoryDoc(c *content.Category) *categoryDoc {
	return &categoryDoc{
		ID: c.ID.String(), Name: c.Name, Slug: c.Slug, Description: c.Description,
		IsActive: c.IsActive, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func (d *categoryDoc) domain() *content.Category {
	return &content.Category{
		ID: parseID(d.ID), Name: d.Name, Slug: d.Slug, Description: d.Description,
		IsActive: d.IsActive, CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type userDoc struct {
	ID                  string     `bson:"_id"`
	Email               string     `bson:"email"`
	DisplayName         string     `bson:"display_name"`
	Role                string     `bson:"role"`
	StreakDays          int        `bson:"streak_days"`
	LastActiveAt        *time.Time `bson:"last_active_at"`
	SubscriptionStatus  string     `bson:"subscription_status"`
	SubscriptionTier    string     `bson:"subscription_tier"`
	SubscriptionEndDate *time.Time `bson:"subscription_end_date"`
	CreatedAt           time.Time  `bson:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at"`
}

func toUserDoc(u *user.User) *userDoc {
	return &userDoc{
		ID:                  u.ID.String(),
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		Role:                string(u.Role),
		StreakDays:          u.StreakDays,
		LastActiveAt:        u.LastActiveAt,
		SubscriptionStatus:  string(u.SubscriptionStatus),
		SubscriptionTier:    string(u.SubscriptionTier),
		SubscriptionEndDate: u.SubscriptionEndDate,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (d *userDoc) domain() *user.User {
	return &user.User{
		ID:                  parseID(d.ID),
		Email:               d.Email,
		DisplayName:         d.DisplayName,
		Role:                user.Role(d.Role),
		StreakDays:          d.StreakDays,
		LastActiveAt:        utcPtr(d.LastActiveAt),
		SubscriptionStatus:  user.SubscriptionStatus(d.SubscriptionStatus),
		SubscriptionTier:    user.Tier(d.SubscriptionTier),
		SubscriptionEndDate: utcPtr(d.SubscriptionEndDate),
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
}

type jobRunDoc struct {
	ID         string     `bson:"_id"`
	JobType    string     `bson:"job_type"`
	Trigger    string     `bson:"trigger_source"`
	Status     string     `bson:"status"`
	Error      string     `bson:"error,omitempty"`
	Result     string     `bson:"result,omitempty"`
	StartedAt  time.Time  `bson:"started_at"`
	FinishedAt *time.Time `bson:"finished_at"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

func toJobRunDoc(j *jobs.JobRun) *jobRunDoc {
	return &jobRunDoc{
		ID: j.ID.String(), JobType: j.JobType, Trigger: j.Trigger, Status: j.Status, Error: j.Error,
		Result: string(j.Result), StartedAt: j.StartedAt, FinishedAt: j.FinishedAt,
		CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt,
	}
}

func (d *jobRunDoc) domain() *jobs.JobRun {
	out := &jobs.JobRun{
		ID: parseID(d.ID), JobType: d.JobType, Trigger: d.Trigger, Status: d.Status, Error: d.Error,
		StartedAt: d.StartedAt.UTC(), FinishedAt: utcPtr(d.FinishedAt),
		CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.Result != "" {
		out.Result = datatypes.JSON(d.Result)
	}
	return out
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func idPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseIDPtr(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id := parseID(*s)
	return &id
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// plainMap turns decoded nested documents back into plain maps.
func plainMap(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	out := datatypes.JSONMap{}
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case bson.D:
		m := map[string]any{}
		for _, e := range x {
			m[e.Key] = plainValue(e.Value)
		}
		return m
	case bson.M:
		return map[string]any(plainMap(x))
	case bson.A:
		out := make([]any, len(x))
		for i := range x {
			out[i] = plainValue(x[i])
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC()
	}
	return v
}

// bsonColumns converts a column map from ContentPatch.Columns into bson-safe values.
func bsonColumns(cols map[string]any) bson.M {
	out := bson.M{}
	for k, v := range cols {
		switch x := v.(type) {
		case uuid.UUID:
			out[k] = x.String()
		case datatypes.JSONSlice[string]:
			out[k] = []string(x)
		case datatypes.JSONMap:
			out[k] = map[string]any(x)
		default:
			out[k] = v
		}
	}
	return out
}
