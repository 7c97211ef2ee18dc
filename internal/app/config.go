package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/jobs"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/lifecycle"
	"github.com/yungbote/hackfeed-backend/internal/observability"
	"github.com/yungbote/hackfeed-backend/internal/temporalx"
)

const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	SchedulerCron     = "cron"
	SchedulerTemporal = "temporal"
)

type Config struct {
	LogMode       string `env:"LOG_MODE" envDefault:"development"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
	LogCompress   bool   `env:"LOG_COMPRESS" envDefault:"true"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres" validate:"oneof=postgres sqlite mongo memory"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	DatabaseURL       string        `env:"DATABASE_URL"`
	PostgresHost      string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort      string        `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser      string        `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword  string        `env:"POSTGRES_PASSWORD"`
	PostgresName      string        `env:"POSTGRES_NAME" envDefault:"hackfeed"`
	PostgresSSLMode   string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"hackfeed.db"`

	MongoURI      string `env:"MONGO_URI" validate:"required_if=StoreDriver mongo"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"hackfeed"`

	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	RedisEventChannel string `env:"REDIS_EVENT_CHANNEL" envDefault:"hackfeed:runs"`

	OpenAI OpenAIConfig `envPrefix:"OPENAI_"`

	Lifecycle LifecycleOverrides `envPrefix:"LIFECYCLE_"`

	Scheduler        string        `env:"SCHEDULER" envDefault:"cron" validate:"oneof=cron temporal"`
	JobTimeout       time.Duration `env:"JOB_TIMEOUT" envDefault:"3h"`
	CronLifecycle    string        `env:"CRON_LIFECYCLE" envDefault:"0 0 * * *"`
	CronRecycle      string        `env:"CRON_RECYCLE" envDefault:"0 1 * * *"`
	CronStreaks      string        `env:"CRON_STREAKS" envDefault:"0 2 * * *"`
	CronSubscription string        `env:"CRON_SUBSCRIPTIONS" envDefault:"0 3 * * *"`
	CronIntegrity    string        `env:"CRON_INTEGRITY" envDefault:"0 4 * * *"`

	Temporal temporalx.Config
	Otel     observability.OtelConfig
}

type OpenAIConfig struct {
	APIKey      string        `env:"API_KEY"`
	BaseURL     string        `env:"BASE_URL"`
	Model       string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"60s"`
	MaxRetries  int           `env:"MAX_RETRIES" envDefault:"2"`
	Temperature float64       `env:"TEMPERATURE" envDefault:"0.7"`
}

// LifecycleOverrides adjusts the embedded lifecycle policy. Unset fields keep
// the policy value; PolicyFile replaces the whole policy before overrides apply.
type LifecycleOverrides struct {
	PolicyFile               string         `env:"POLICY_FILE"`
	GenerateCount            *int           `env:"GENERATE_COUNT"`
	PublishCount             *int           `env:"PUBLISH_COUNT"`
	GenerateTimeout          *time.Duration `env:"GENERATE_TIMEOUT"`
	CategoryConcurrency      *int           `env:"CATEGORY_CONCURRENCY"`
	SkipScheduledAfterManual *bool          `env:"SKIP_SCHEDULED_AFTER_MANUAL"`
	LockTTL                  *time.Duration `env:"LOCK_TTL"`
}

// Apply layers the overrides on top of base and validates the result.
func (o LifecycleOverrides) Apply(base lifecycle.Config) (lifecycle.Config, error) {
	cfg := base
	if o.PolicyFile != "" {
		raw, err := os.ReadFile(o.PolicyFile)
		if err != nil {
			return lifecycle.Config{}, fmt.Errorf("read lifecycle policy: %w", err)
		}
		if cfg, err = lifecycle.ParseConfig(raw); err != nil {
			return lifecycle.Config{}, err
		}
	}
	if o.GenerateCount != nil {
		cfg.GenerateCount = *o.GenerateCount
	}
	if o.PublishCount != nil {
		cfg.PublishCount = *o.PublishCount
	}
	if o.GenerateTimeout != nil {
		cfg.GenerateTimeout = *o.GenerateTimeout
	}
	if o.CategoryConcurrency != nil {
		cfg.CategoryConcurrency = *o.CategoryConcurrency
	}
	if o.SkipScheduledAfterManual != nil {
		cfg.SkipScheduledAfterManual = *o.SkipScheduledAfterManual
	}
	if o.LockTTL != nil {
		cfg.LockTTL = *o.LockTTL
	}
	if err := cfg.Validate(); err != nil {
		return lifecycle.Config{}, err
	}
	return cfg, nil
}

// Schedules lists the cron expression of every daily job.
func (c Config) Schedules() []jobs.Schedule {
	return []jobs.Schedule{
		{Job: jobtypes.TypeLifecycle, Spec: c.CronLifecycle},
		{Job: jobtypes.TypeRecycle, Spec: c.CronRecycle},
		{Job: jobtypes.TypeStreaks, Spec: c.CronStreaks},
		{Job: jobtypes.TypeSubscriptions, Spec: c.CronSubscription},
		{Job: jobtypes.TypeIntegrity, Spec: c.CronIntegrity},
	}
}

// LoadConfig reads the given env files (or ./.env when none are named) into
// the process environment and parses Config from it. A missing default .env
// is not an error.
func LoadConfig(files ...string) (Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Scheduler == SchedulerTemporal && !c.Temporal.Enabled() {
		return fmt.Errorf("invalid config: SCHEDULER=temporal needs TEMPORAL_ADDRESS")
	}
	if err := jobs.ValidateSchedules(c.Schedules()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
