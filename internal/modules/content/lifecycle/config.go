package lifecycle

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
)

//go:embed policy.yaml
var defaultPolicy []byte

// DifficultyMix is the share of each difficulty in a generation batch.
type DifficultyMix struct {
	Beginner     float64 `yaml:"beginner" validate:"gte=0,lte=1"`
	Intermediate float64 `yaml:"intermediate" validate:"gte=0,lte=1"`
	Advanced     float64 `yaml:"advanced" validate:"gte=0,lte=1"`
}

type RecyclePolicy struct {
	MinAge            time.Duration `yaml:"min_age" validate:"gt=0"`
	MinLikes          int64         `yaml:"min_likes" validate:"gte=0"`
	MinViews          int64         `yaml:"min_views" validate:"gte=0"`
	LikesOverDislikes float64       `yaml:"likes_over_dislikes" validate:"gte=0"`
	Limit             int           `yaml:"limit" validate:"gt=0"`
}

type Config struct {
	GenerateCount            int           `yaml:"generate_count" validate:"gte=0,lte=100"`
	DifficultyMix            DifficultyMix `yaml:"difficulty_mix"`
	PublishCount             int           `yaml:"publish_count" validate:"gte=0"`
	GenerateTimeout          time.Duration `yaml:"generate_timeout" validate:"gt=0"`
	CategoryConcurrency      int           `yaml:"category_concurrency" validate:"gte=1,lte=32"`
	SkipScheduledAfterManual bool          `yaml:"skip_scheduled_after_manual"`
	LockTTL                  time.Duration `yaml:"lock_ttl" validate:"gt=0"`
	StreakInactivity         time.Duration `yaml:"streak_inactivity" validate:"gt=0"`
	ReconcileGrace           time.Duration `yaml:"reconcile_grace" validate:"gte=0"`
	Recycle                  RecyclePolicy `yaml:"recycle"`
}

// DefaultConfig returns the embedded policy.
func DefaultConfig() Config {
	cfg, err := ParseConfig(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("embedded lifecycle policy: %v", err))
	}
	return cfg
}

// ParseConfig decodes a YAML policy on top of nothing; missing keys stay zero.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode lifecycle policy: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid lifecycle config: %w", err)
	}
	if sum := c.DifficultyMix.Beginner + c.DifficultyMix.Intermediate + c.DifficultyMix.Advanced; sum <= 0 {
		return fmt.Errorf("invalid lifecycle config: difficulty mix sums to %v", sum)
	}
	return nil
}

// DifficultyPlan spreads n generation calls over contiguous difficulty
// blocks: beginner first, then intermediate, then advanced. Shares are
// rounded and advanced takes whatever is left.
func DifficultyPlan(n int, mix DifficultyMix) []types.Difficulty {
	if n <= 0 {
		return nil
	}
	total := mix.Beginner + mix.Intermediate + mix.Advanced
	if total <= 0 {
		mix, total = DifficultyMix{Beginner: 1}, 1
	}
	beginner := roundShare(n, mix.Beginner/total)
	intermediate := min(roundShare(n, mix.Intermediate/total), n-beginner)
	advanced := n - beginner - intermediate

	out := make([]types.Difficulty, 0, n)
	for i := 0; i < beginner; i++ {
		out = append(out, types.DifficultyBeginner)
	}
	for i := 0; i < intermediate; i++ {
		out = append(out, types.DifficultyIntermediate)
	}
	for i := 0; i < advanced; i++ {
		out = append(out, types.DifficultyAdvanced)
	}
	return out
}

func roundShare(n int, share float64) int {
	v := int(float64(n)*share + 0.5)
	return max(0, min(v, n))
}
