package domain

import (
	"github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/domain/user"
)

type (
	Content        = content.Content
	DeletedContent = content.DeletedContent
	Category       = content.Category
	ArchiveOptions = content.ArchiveOptions
	ContentStatus  = content.Status
	Pool           = content.Pool
	Difficulty     = content.Difficulty
	DeleteReason   = content.DeleteReason

	User = user.User

	JobRun = jobs.JobRun
)

// Models lists every persisted type for migrations.
func Models() []any {
	return []any{
		&content.Category{},
		&content.Content{},
		&content.DeletedContent{},
		&user.User{},
		&jobs.JobRun{},
	}
}
