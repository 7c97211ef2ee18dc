package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TypeLifecycle     = "lifecycle"
	TypeRecycle       = "recycle"
	TypeStreaks       = "streaks"
	TypeSubscriptions = "subscriptions"
	TypeIntegrity     = "integrity"

	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"

	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// JobRun is one execution of a maintenance job.
type JobRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobType    string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Trigger    string         `gorm:"column:trigger_source;not null;index" json:"trigger"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Result     datatypes.JSON `gorm:"column:result" json:"result"`
	StartedAt  time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

// RunEvent is broadcast when a job run reaches a terminal status.
type RunEvent struct {
	RunID   uuid.UUID      `json:"run_id"`
	JobType string         `json:"job_type"`
	Trigger string         `json:"trigger"`
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Result  datatypes.JSON `json:"result,omitempty"`
	At      time.Time      `json:"at"`
}
