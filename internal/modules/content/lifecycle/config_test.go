package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.GenerateCount)
	assert.Equal(t, 10, cfg.PublishCount)
	assert.Equal(t, 60*time.Second, cfg.GenerateTimeout)
	assert.Equal(t, 48*time.Hour, cfg.StreakInactivity)
	assert.Equal(t, 30*24*time.Hour, cfg.Recycle.MinAge)
	assert.Equal(t, int64(10), cfg.Recycle.MinLikes)
	assert.Equal(t, int64(100), cfg.Recycle.MinViews)
	assert.Equal(t, 2.0, cfg.Recycle.LikesOverDislikes)
	assert.True(t, cfg.SkipScheduledAfterManual)
}

func TestConfigValidate_RejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CategoryConcurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DifficultyMix = DifficultyMix{}
	assert.Error(t, cfg.Validate())
}

func TestDifficultyPlan(t *testing.T) {
	mix := DefaultConfig().DifficultyMix
	plan := DifficultyPlan(10, mix)
	want := []types.Difficulty{
		types.DifficultyBeginner, types.DifficultyBeginner, types.DifficultyBeginner,
		types.DifficultyBeginner, types.DifficultyBeginner, types.DifficultyBeginner,
		types.DifficultyIntermediate, types.DifficultyIntermediate, types.DifficultyIntermediate,
		types.DifficultyAdvanced,
	}
	assert.Equal(t, want, plan)

	for _, n := range []int{1, 3, 7, 20, 33} {
		assert.Len(t, DifficultyPlan(n, mix), n, "n=%d", n)
	}
	assert.Nil(t, DifficultyPlan(0, mix))
	assert.Equal(t, []types.Difficulty{types.DifficultyBeginner, types.DifficultyBeginner}, DifficultyPlan(2, DifficultyMix{}))
}
