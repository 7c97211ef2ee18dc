package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/data/repos/content"
	"github.com/yungbote/hackfeed-backend/internal/data/repos/jobs"
	"github.com/yungbote/hackfeed-backend/internal/data/repos/user"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type (
	ContentRepo    = content.ContentRepo
	ArchiveRepo    = content.ArchiveRepo
	CategoryRepo   = content.CategoryRepo
	TransitionRepo = content.TransitionRepo
	UserRepo       = user.UserRepo
	JobRunRepo     = jobs.JobRunRepo

	ContentFilter = content.ContentFilter
	ArchiveFilter = content.ArchiveFilter
	ContentPatch  = content.ContentPatch
	StatsDelta    = content.StatsDelta
	Sort          = content.Sort
)

const (
	SortCreatedAt   = content.SortCreatedAt
	SortPublishDate = content.SortPublishDate
	SortLikes       = content.SortLikes
	SortViews       = content.SortViews
)

var (
	NewContentRepo    = content.NewContentRepo
	NewArchiveRepo    = content.NewArchiveRepo
	NewCategoryRepo   = content.NewCategoryRepo
	NewTransitionRepo = content.NewTransitionRepo
	NewUserRepo       = user.NewUserRepo
	NewJobRunRepo     = jobs.NewJobRunRepo

	// Publish is the patch that moves an item to published.
	Publish      = content.Publish
	SortContents = content.SortContents
)

// Set bundles every store the content engine talks to. Each backend
// (gorm, mongo, memory) produces one.
type Set struct {
	Content     ContentRepo
	Archive     ArchiveRepo
	Categories  CategoryRepo
	Transitions TransitionRepo
	Users       UserRepo
	JobRuns     JobRunRepo
}

// NewGormSet wires the SQL-backed repos over one database handle.
func NewGormSet(db *gorm.DB, log *logger.Logger) Set {
	contentRepo := NewContentRepo(db, log)
	archiveRepo := NewArchiveRepo(db, log)
	return Set{
		Content:     contentRepo,
		Archive:     archiveRepo,
		Categories:  NewCategoryRepo(db, log),
		Transitions: NewTransitionRepo(db, log, contentRepo, archiveRepo),
		Users:       NewUserRepo(db, log),
		JobRuns:     NewJobRunRepo(db, log),
	}
}
