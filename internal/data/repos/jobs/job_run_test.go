package jobs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/hackfeed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := testutil.Tx(t, db)
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	older := &types.JobRun{
		JobType:   types.TypeLifecycle,
		Trigger:   types.TriggerManual,
		Status:    types.StatusSucceeded,
		StartedAt: now.Add(-2 * time.Hour),
	}
	newer := &types.JobRun{
		JobType:   types.TypeLifecycle,
		Trigger:   types.TriggerScheduled,
		StartedAt: now.Add(-1 * time.Hour),
	}
	for _, j := range []*types.JobRun{older, newer} {
		if _, err := repo.Create(ctx, j); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if newer.Status != types.StatusRunning || newer.ID == uuid.Nil {
		t.Fatalf("Create defaults: %+v", newer)
	}

	latest, err := repo.GetLatest(ctx, types.TypeLifecycle, "", "")
	if err != nil || latest == nil || latest.ID != newer.ID {
		t.Fatalf("GetLatest(any): err=%v got=%+v", err, latest)
	}
	latest, err = repo.GetLatest(ctx, types.TypeLifecycle, types.TriggerManual, types.StatusSucceeded)
	if err != nil || latest == nil || latest.ID != older.ID {
		t.Fatalf("GetLatest(manual succeeded): err=%v got=%+v", err, latest)
	}
	latest, err = repo.GetLatest(ctx, types.TypeRecycle, "", "")
	if err != nil || latest != nil {
		t.Fatalf("GetLatest(other type): err=%v got=%+v", err, latest)
	}

	finished := now
	if err := repo.UpdateFields(ctx, newer.ID, map[string]interface{}{
		"status":      types.StatusSucceeded,
		"finished_at": finished,
		"result":      datatypes.JSON([]byte(`{"items_generated":10}`)),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(ctx, newer.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v", err)
	}
	if got.Status != types.StatusSucceeded || got.FinishedAt == nil {
		t.Fatalf("UpdateFields not applied: %+v", got)
	}

	err = repo.UpdateFields(ctx, uuid.New(), map[string]interface{}{"status": types.StatusFailed})
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("UpdateFields(missing): want not_found got=%v", err)
	}
}
