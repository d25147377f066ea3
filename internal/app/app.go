package app

import (
	"context"
	"fmt"

	"github.com/vytor/realorai/internal/api"
	"github.com/vytor/realorai/internal/auth"
	"github.com/vytor/realorai/internal/civilday"
	"github.com/vytor/realorai/internal/config"
	"github.com/vytor/realorai/internal/creative"
	"github.com/vytor/realorai/internal/events"
	"github.com/vytor/realorai/internal/jobs"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/services"
	"github.com/vytor/realorai/internal/worker"
)

// App holds every long-lived component of the service.
type App struct {
	Config config.Config
	Days   *civilday.Resolver
	Store  *Store

	Puzzles   services.PuzzleService
	Scheduler services.SchedulerService
	Sessions  services.SessionService
	Pipeline  services.PipelineService

	GenerationPool *worker.Pool
	Jobs           jobs.JobQueue
	Auth           *auth.Authenticator
	Streams        *api.StreamRegistry

	nats *events.NATSPublisher
	log  *logger.Logger
}

// Option customizes New.
type Option func(*options)

type options struct {
	days   *civilday.Resolver
	client creative.ClientInterface
}

// WithResolver replaces the resolver built from cfg.Timezone.
func WithResolver(r *civilday.Resolver) Option {
	return func(o *options) { o.days = r }
}

// WithCreativeClient replaces the HTTP creative gateway client.
func WithCreativeClient(c creative.ClientInterface) Option {
	return func(o *options) { o.client = c }
}

// New opens the store and builds the services. Call Start before serving and
// Close when done.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	log := logger.Default().WithPrefix("app")

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	days := o.days
	if days == nil {
		var err error
		if days, err = civilday.Load(cfg.Timezone); err != nil {
			return nil, err
		}
	}
	log.Debug("civil day resolver in %s, today is %s", days.Location(), days.TodayKey())

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{Config: cfg, Days: days, Store: store, log: log}

	a.Streams = api.NewStreamRegistry(cfg.SSEHeartbeat)
	publishers := events.Fanout{a.Streams}
	if cfg.NATSURL != "" {
		a.nats, err = events.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		publishers = append(publishers, a.nats)
	}

	client := o.client
	if client == nil {
		client = creative.New(cfg.CreativeBaseURL, cfg.CreativeAPIKey)
	}

	a.Puzzles = services.NewPuzzleService(store.Puzzles, days, publishers, cfg.ScanDays)
	a.Scheduler = services.NewSchedulerService(a.Puzzles, days, cfg.ScheduleRetries)
	a.Sessions = services.NewSessionService(store.Sessions, days, cfg.SessionRetries)
	a.Pipeline = services.NewPipelineService(client, a.Scheduler, a.Puzzles, publishers, services.PipelineConfig{
		CaptionTimeout:  cfg.CaptionTimeout,
		RemixTimeout:    cfg.RemixTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
		Dimensions:      models.Dimensions{Width: cfg.ImageWidth, Height: cfg.ImageHeight},
	})

	a.GenerationPool = worker.NewPool("generation", cfg.PipelineWorkerCount, cfg.PipelineQueueSize)
	a.Jobs = jobs.NewWorkerQueue(a.GenerationPool, a.Pipeline)
	a.Auth = auth.New(cfg.JWTSecret, cfg.JWTIssuer)

	log.Info("services ready (store=%s, nats=%t)", store.Driver, a.nats != nil)
	return a, nil
}

// Server returns the HTTP API over the app's services.
func (a *App) Server() *api.Server {
	return &api.Server{
		Puzzles:   a.Puzzles,
		Scheduler: a.Scheduler,
		Sessions:  a.Sessions,
		Pipeline:  a.Pipeline,
		Jobs:      a.Jobs,
		Auth:      a.Auth,
		Streams:   a.Streams,
	}
}

// Start launches the generation workers.
func (a *App) Start(ctx context.Context) {
	a.GenerationPool.Start(ctx)
}

// Close drains the generation queue, then releases streams, NATS and the store.
func (a *App) Close() {
	a.log.Debug("stopping generation pool")
	a.GenerationPool.Stop()

	a.log.Debug("closing event streams")
	a.Streams.Close()

	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			a.log.Warn("failed to close nats: %v", err)
		}
	}
	a.Store.Close()
}
