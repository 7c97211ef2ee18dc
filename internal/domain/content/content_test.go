package content

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func sample() *Content {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return &Content{
		ID:         uuid.New(),
		Title:      "Freeze bananas for smoothies",
		Body:       "Peel first.\nSlice into coins.",
		Summary:    "Quick prep",
		CategoryID: uuid.New(),
		Type:       TypeHack,
		Difficulty: DifficultyBeginner,
		Tags:       datatypes.JSONSlice[string]{"kitchen"},
		Status:     StatusDraft,
		Pool:       PoolRegular,
		Likes:      12,
		Metadata:   datatypes.JSONMap{"prompt": "x"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestValidate(t *testing.T) {
	c := sample()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid content rejected: %v", err)
	}

	c.Title = "   "
	if err := c.Validate(); err == nil {
		t.Fatalf("expected blank title to fail")
	}

	c = sample()
	c.Status = StatusPublished
	if err := c.Validate(); err == nil {
		t.Fatalf("published without publish_date must fail")
	}
	now := time.Now()
	c.PublishDate = &now
	c.HasBeenPublished = true
	if err := c.Validate(); err != nil {
		t.Fatalf("published content rejected: %v", err)
	}

	c.Dislikes = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("negative counters must fail")
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := sample()
	cp := c.Clone()
	cp.Tags[0] = "changed"
	cp.Metadata["prompt"] = "y"
	if c.Tags[0] != "kitchen" || c.Metadata["prompt"] != "x" {
		t.Fatalf("clone shares slices or maps with the source")
	}
}

func TestNewDeletedContentCarriesProvenance(t *testing.T) {
	c := sample()
	kept := uuid.New()
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	d := NewDeletedContent(c, ReasonDuplicate, at, ArchiveOptions{DuplicateOf: &kept})
	if d.OriginalContentID != c.ID {
		t.Fatalf("original id: want=%s got=%s", c.ID, d.OriginalContentID)
	}
	if d.ID == c.ID || d.ID == uuid.Nil {
		t.Fatalf("archive row needs its own id")
	}
	if !d.IsDuplicate || d.DuplicateOfID == nil || *d.DuplicateOfID != kept {
		t.Fatalf("duplicate markers not set: %+v", d)
	}
	if got := d.ArchiveMetadata[MetaOriginalContentID]; got != kept.String() {
		t.Fatalf("metadata original id: want=%s got=%v", kept, got)
	}
	if !d.DeletedAt.Equal(at) || !d.ContentCreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("timestamps not preserved")
	}
}

func TestReviveAssignsFreshDraft(t *testing.T) {
	c := sample()
	c.HasBeenPublished = true
	d := NewDeletedContent(c, ReasonManualDelete, time.Now(), ArchiveOptions{})
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	r := d.Revive(at)
	if r.ID == c.ID || r.ID == uuid.Nil {
		t.Fatalf("restored content must get a fresh id")
	}
	if r.Status != StatusDraft || r.PublishDate != nil {
		t.Fatalf("restored content must be an unpublished draft: %+v", r)
	}
	if !r.HasBeenPublished {
		t.Fatalf("has_been_published is sticky")
	}
	if r.Likes != 12 || r.Metadata["restored_from"] != c.ID.String() {
		t.Fatalf("stats or provenance lost: %+v", r)
	}
}

func TestDeleteReasonValid(t *testing.T) {
	for _, r := range []DeleteReason{ReasonManualDelete, ReasonAutoDelete, ReasonDuplicate, ReasonCategoryDeleted, ReasonOther} {
		if !r.Valid() {
			t.Fatalf("%s should be valid", r)
		}
	}
	if DeleteReason("expired").Valid() {
		t.Fatalf("unknown reason accepted")
	}
}
