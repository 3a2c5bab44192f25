// Package server provides the application container: it builds every
// collaborator from configuration and runs the HTTP service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/api"
	"github.com/JakeFAU/contentplan/internal/clock/system"
	"github.com/JakeFAU/contentplan/internal/config"
	"github.com/JakeFAU/contentplan/internal/dispatcher"
	headlessfetcher "github.com/JakeFAU/contentplan/internal/fetcher/headless"
	"github.com/JakeFAU/contentplan/internal/id/uuid"
	"github.com/JakeFAU/contentplan/internal/logging"
	"github.com/JakeFAU/contentplan/internal/metrics"
	"github.com/JakeFAU/contentplan/internal/plan"
	queueMemory "github.com/JakeFAU/contentplan/internal/queue/memory"
	gcsstorage "github.com/JakeFAU/contentplan/internal/storage/gcs"
	pgstore "github.com/JakeFAU/contentplan/internal/storage/postgres"
	"github.com/JakeFAU/contentplan/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	clock  plan.Clock
	ids    plan.IDGenerator

	jobStore  plan.JobStore
	queue     *queueMemory.Queue
	workers   []*worker.Worker
	dispatch  *dispatcher.Dispatcher
	apiServer *api.Server

	pgStore         *pgstore.JobStore
	gcsStore        *gcsstorage.BlobStore
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	redis           *redis.Client
	headless        *headlessfetcher.Fetcher
	tracerProvider  *sdktrace.TracerProvider
}

// Options adjust Build for callers other than the HTTP service.
type Options struct {
	// Logger replaces the logger built from cfg.Logging.
	Logger *zap.Logger
	// InMemory forces the memory job store regardless of cfg.Database.
	InMemory bool
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewWithOptions(logging.Options{
			Development: cfg.Logging.Development,
			Level:       cfg.Logging.Level,
		})
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(logger)
	}
	metrics.Init()

	app := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
		ids:    uuid.New(),
	}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("pubsub", cfg.PubSub.Backend),
	)

	if err := app.build(ctx, opts); err != nil {
		app.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	tracer, err := setupTracing(ctx, a)
	if err != nil {
		return err
	}
	if err := setupJobStore(ctx, a, opts.InMemory); err != nil {
		return err
	}
	scanner, err := setupScanner(a)
	if err != nil {
		return err
	}
	primary, fallback, err := setupCompleters(a)
	if err != nil {
		return err
	}
	lookup := setupKeywords(a)
	exporter, err := setupExporter(ctx, a)
	if err != nil {
		return err
	}

	a.queue = queueMemory.NewQueue(a.cfg.Dispatcher.QueueDepth)
	deps := worker.Deps{
		Store:    a.jobStore,
		Queue:    a.queue,
		Scanner:  scanner,
		Primary:  primary,
		Fallback: fallback,
		Keywords: lookup,
		Exporter: exporter,
		Tracer:   tracer,
	}
	if a.cfg.Pipeline.PromptTokenBudget > 0 {
		deps.Budget = llmBudget(a)
	}
	workerCfg := worker.Config{
		TargetArticles:  a.cfg.Pipeline.TargetArticles,
		BatchSize:       a.cfg.Pipeline.BatchSize,
		NicheTimeout:    a.cfg.Pipeline.NicheTimeout,
		FallbackTimeout: a.cfg.Pipeline.FallbackTimeout,
		PillarTimeout:   a.cfg.Pipeline.PillarTimeout,
		ClusterTimeout:  a.cfg.Pipeline.ClusterTimeout,
		EnrichTimeout:   a.cfg.Pipeline.EnrichTimeout,
		MaxEnrichSeeds:  a.cfg.Pipeline.MaxEnrichSeeds,
	}
	runners := make([]dispatcher.Runner, 0, a.cfg.Dispatcher.Workers)
	for i := 0; i < a.cfg.Dispatcher.Workers; i++ {
		w := worker.New(deps, workerCfg, a.logger.With(zap.Int("index", i)))
		a.workers = append(a.workers, w)
		runners = append(runners, w)
	}
	a.dispatch = dispatcher.New(a.queue, runners...)
	a.logger.Info("worker pool ready",
		zap.Int("workers", len(runners)),
		zap.Int("queue_depth", a.cfg.Dispatcher.QueueDepth),
		zap.Int("batch_size", workerCfg.BatchSize),
	)

	a.apiServer = api.NewServer(api.Deps{
		Store:    a.jobStore,
		Enqueuer: a.dispatch,
		IDs:      a.ids,
		Clock:    a.clock,
		Ready:    a.ready,
	}, *a.cfg, a.logger.Named("api"))
	return nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

func (a *App) ready(ctx context.Context) error {
	if a.pgStore != nil {
		return a.pgStore.Ping(ctx)
	}
	return nil
}

// Run starts the dispatcher and HTTP server and blocks until the context is
// cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.logger.Info("dispatcher started")
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	select {
	case <-dispatchDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("workers did not stop before the shutdown deadline")
	}
	a.Close(shutdownCtx)

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases every resource Build acquired. It is safe on a partially
// built App.
func (a *App) Close(ctx context.Context) {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure()
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsStore != nil {
		if err := a.gcsStore.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
}

func (a *App) closeObservability(ctx context.Context) {
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
