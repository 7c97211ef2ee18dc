package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/domain"
)

// AutoMigrateAll creates or updates every table plus the postgres-only indexes
// gorm tags cannot express.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_content_category_status ON content (category_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_content_recycle ON content (publish_date, likes DESC, views DESC) WHERE status = 'published'`,
		`CREATE INDEX IF NOT EXISTS idx_job_run_latest ON job_run (job_type, trigger_source, status, started_at DESC)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
