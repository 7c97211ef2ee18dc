// Package app wires configuration, storage, clients and services into a
// runnable process.
package app

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/yungbote/hackfeed-backend/internal/jobs"
	"github.com/yungbote/hackfeed-backend/internal/observability"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
	"github.com/yungbote/hackfeed-backend/internal/temporalx/maintenance"
	"github.com/yungbote/hackfeed-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    *Store
	Clients  Clients
	Services Services

	shutdownOtel func(context.Context) error
}

// Options overrides process defaults, mostly for tests.
type Options struct {
	Log   *logger.Logger
	Clock clock.Clock
	Rand  *rand.Rand
}

func New(ctx context.Context, cfg Config, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		var file *logger.FileOptions
		if cfg.LogFile != "" {
			file = &logger.FileOptions{
				Path:       cfg.LogFile,
				MaxSizeMB:  cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAgeDays: cfg.LogMaxAgeDays,
				Compress:   cfg.LogCompress,
			}
		}
		l, err := logger.NewWithFile(cfg.LogMode, file)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		log = l
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System()
	}

	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)

	store, err := openStore(ctx, cfg, clk, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(ctx)
			log.Sync()
			return nil, fmt.Errorf("migrate store: %w", err)
		}
	}

	clients, err := wireClients(ctx, cfg, log)
	if err != nil {
		_ = store.Close(ctx)
		log.Sync()
		return nil, err
	}

	services, err := wireServices(serviceDeps{
		cfg:     cfg,
		log:     log,
		clock:   clk,
		rand:    opts.Rand,
		store:   store,
		clients: clients,
	})
	if err != nil {
		clients.Close()
		_ = store.Close(ctx)
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        store,
		Clients:      clients,
		Services:     services,
		shutdownOtel: shutdownOtel,
	}, nil
}

// RunJob runs one registered job in-process.
func (a *App) RunJob(ctx context.Context, job, trigger string) (any, error) {
	h, ok := a.Services.Jobs.Get(job)
	if !ok {
		return nil, fmt.Errorf("unknown job %q (known: %v)", job, a.Services.Jobs.Names())
	}
	return h(ctx, trigger)
}

// Serve runs the daily jobs until ctx is cancelled, either on the in-process
// cron runner or as a Temporal worker with one schedule per job.
func (a *App) Serve(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	schedules := a.Cfg.Schedules()

	if a.Cfg.Scheduler == SchedulerTemporal {
		if a.Clients.Temporal == nil {
			return fmt.Errorf("temporal scheduler selected but no temporal client")
		}
		if err := maintenance.EnsureSchedules(ctx, a.Clients.Temporal, a.Cfg.Temporal.TaskQueue, schedules, a.Log); err != nil {
			return err
		}
		runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cfg.Temporal, a.Services.Jobs)
		if err != nil {
			return err
		}
		if err := runner.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}

	runner, err := jobs.NewRunner(jobs.RunnerDeps{
		Log:       a.Log,
		Registry:  a.Services.Jobs,
		Schedules: schedules,
		Timeout:   a.Cfg.JobTimeout,
	})
	if err != nil {
		return err
	}
	runner.Start(ctx)
	for job, next := range runner.Next() {
		a.Log.Info("Next run", "job", job, "at", next)
	}
	<-ctx.Done()
	runner.Stop()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx := context.Background()
	a.Clients.Close()
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			a.Log.Warn("Store close failed", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		_ = a.shutdownOtel(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
