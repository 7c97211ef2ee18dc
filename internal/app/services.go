package app

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/yungbote/hackfeed-backend/internal/jobs"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/dedup"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/engagement"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/generator"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/lifecycle"
	"github.com/yungbote/hackfeed-backend/internal/modules/content/moderation"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

type Services struct {
	Detector   *dedup.Detector
	Scheduler  *lifecycle.Scheduler
	Engagement *engagement.Service
	Moderation *moderation.Service
	Jobs       *jobs.Registry
}

type serviceDeps struct {
	cfg     Config
	log     *logger.Logger
	clock   clock.Clock
	rand    *rand.Rand
	store   *Store
	clients Clients
}

func wireServices(deps serviceDeps) (Services, error) {
	log := deps.log
	log.Info("Wiring services...")
	rs := deps.store.Repos

	policy, err := deps.cfg.Lifecycle.Apply(lifecycle.DefaultConfig())
	if err != nil {
		return Services{}, err
	}

	var gen generator.Generator
	if deps.clients.OpenAI != nil {
		gen = generator.Validated(generator.NewOpenAI(deps.clients.OpenAI, log))
	}
	var events lifecycle.EventPublisher
	if deps.clients.Events != nil {
		events = deps.clients.Events
	}

	detector := dedup.New(dedup.Deps{Log: log, Content: rs.Content, Transitions: rs.Transitions})
	scheduler := lifecycle.New(lifecycle.Deps{
		Log:       log,
		Clock:     deps.clock,
		Rand:      deps.rand,
		Config:    policy,
		Generator: gen,
		Locker:    deps.clients.Locker,
		Events:    events,
		Detector:  detector,
		Repos:     rs,
	})

	registry := jobs.NewRegistry()
	for _, job := range lifecycle.Jobs {
		err := registry.Register(job, func(ctx context.Context, trigger string) (any, error) {
			return scheduler.Dispatch(ctx, job, trigger)
		})
		if err != nil {
			return Services{}, fmt.Errorf("register job %s: %w", job, err)
		}
	}

	return Services{
		Detector:   detector,
		Scheduler:  scheduler,
		Engagement: engagement.New(engagement.Deps{Log: log, Clock: deps.clock, Content: rs.Content}),
		Moderation: moderation.New(moderation.Deps{
			Log:         log,
			Clock:       deps.clock,
			Content:     rs.Content,
			Categories:  rs.Categories,
			Transitions: rs.Transitions,
		}),
		Jobs: registry,
	}, nil
}
