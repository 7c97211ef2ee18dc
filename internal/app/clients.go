package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/hackfeed-backend/internal/clients/openai"
	"github.com/yungbote/hackfeed-backend/internal/clients/redis"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/lifecycle"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
	"github.com/yungbote/hackfeed-backend/internal/temporalx"
)

// Clients holds the optional external services. Redis, Temporal and OpenAI
// are each skipped when their address or key is not configured.
type Clients struct {
	Redis    *goredis.Client
	Locker   lifecycle.Locker
	Events   redis.EventBus
	Temporal temporalsdkclient.Client
	OpenAI   openai.Client
}

func wireClients(ctx context.Context, cfg Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	out := Clients{Locker: lifecycle.NoopLocker{}}

	if cfg.RedisAddr != "" {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.Locker = redis.NewLocker(rdb, log)
		out.Events = redis.NewEventBus(rdb, cfg.RedisEventChannel, log)
	} else {
		log.Warn("REDIS_ADDR not set; runs are not locked across instances")
	}

	if cfg.OpenAI.APIKey != "" {
		ai, err := openai.NewClient(log, openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Timeout:     cfg.OpenAI.Timeout,
			MaxRetries:  cfg.OpenAI.MaxRetries,
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.OpenAI = ai
	} else {
		log.Warn("OPENAI_API_KEY not set; lifecycle runs will skip generation")
	}

	if cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(ctx, cfg.Temporal, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		out.Temporal = tc
	}
	return out, nil
}

func (c Clients) Close() {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
