package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/data/txn"
	types "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type JobRunRepo interface {
	Create(ctx context.Context, job *types.JobRun) (*types.JobRun, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.JobRun, error)
	// GetLatest returns the most recently started run of jobType, optionally
	// narrowed to a trigger and status ("" matches any).
	GetLatest(ctx context.Context, jobType, trigger, status string) (*types.JobRun, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Create(ctx context.Context, job *types.JobRun) (*types.JobRun, error) {
	if err := PrepareJobRun(job, time.Now()); err != nil {
		return nil, err
	}
	if err := dbctx.DB(ctx, r.db).Create(job).Error; err != nil {
		return nil, txn.MapError("job_run.Create", err)
	}
	return job, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.JobRun, error) {
	var job types.JobRun
	if err := dbctx.DB(ctx, r.db).Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
		return nil, txn.MapError("job_run.GetByID", err)
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRunRepo) GetLatest(ctx context.Context, jobType, trigger, status string) (*types.JobRun, error) {
	if jobType == "" {
		return nil, nil
	}
	q := dbctx.DB(ctx, r.db).Where("job_type = ?", jobType)
	if trigger != "" {
		q = q.Where("trigger_source = ?", trigger)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var job types.JobRun
	if err := q.Order("started_at DESC").Limit(1).Find(&job).Error; err != nil {
		return nil, txn.MapError("job_run.GetLatest", err)
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRunRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbctx.DB(ctx, r.db).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return txn.MapError("job_run.UpdateFields", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("job_run.UpdateFields", "job run %s", id)
	}
	return nil
}

// PrepareJobRun fills defaults and validates job before it is stored by any backend.
func PrepareJobRun(job *types.JobRun, now time.Time) error {
	if job == nil || job.JobType == "" {
		return apperr.InvalidArgument("job_run.Create", "job type is required")
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Trigger == "" {
		job.Trigger = types.TriggerScheduled
	}
	if job.Status == "" {
		job.Status = types.StatusRunning
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = now.UTC()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now.UTC()
	}
	job.UpdatedAt = now.UTC()
	return nil
}

// ApplyFields mirrors UpdateFields on an in-memory run. Unknown columns are ignored.
func ApplyFields(job *types.JobRun, updates map[string]interface{}) {
	for col, v := range updates {
		switch col {
		case "status":
			if s, ok := v.(string); ok {
				job.Status = s
			}
		case "error":
			if s, ok := v.(string); ok {
				job.Error = s
			}
		case "result":
			switch r := v.(type) {
			case datatypes.JSON:
				job.Result = r
			case []byte:
				job.Result = datatypes.JSON(r)
			}
		case "finished_at":
			switch t := v.(type) {
			case time.Time:
				tt := t.UTC()
				job.FinishedAt = &tt
			case *time.Time:
				job.FinishedAt = t
			}
		case "updated_at":
			if t, ok := v.(time.Time); ok {
				job.UpdatedAt = t.UTC()
			}
		}
	}
}
