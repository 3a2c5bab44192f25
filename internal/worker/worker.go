// Package worker implements the content-plan pipeline and its queue loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/keywords"
	"github.com/JakeFAU/contentplan/internal/llm"
	"github.com/JakeFAU/contentplan/internal/metrics"
	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
	"github.com/JakeFAU/contentplan/internal/telemetry"
)

// SiteScanner supplies the website signals used by the early stages.
type SiteScanner interface {
	FetchSignals(ctx context.Context, rawURL, language string) (siteinfo.Signals, error)
	HTMLLang(ctx context.Context, rawURL string) (string, error)
}

// Exporter archives finished plans and announces them. Both calls are best
// effort.
type Exporter interface {
	Archive(ctx context.Context, job plan.Job) (string, error)
	Announce(ctx context.Context, job plan.Job) error
}

// Config controls pipeline sizing and per-call timeouts.
type Config struct {
	// TargetArticles is used when the niche profile carries no estimate.
	TargetArticles  int
	BatchSize       int
	NicheTimeout    time.Duration
	FallbackTimeout time.Duration
	PillarTimeout   time.Duration
	ClusterTimeout  time.Duration
	EnrichTimeout   time.Duration
	MaxEnrichSeeds  int
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		TargetArticles:  200,
		BatchSize:       5,
		NicheTimeout:    60 * time.Second,
		FallbackTimeout: 120 * time.Second,
		PillarTimeout:   60 * time.Second,
		ClusterTimeout:  90 * time.Second,
		EnrichTimeout:   30 * time.Second,
		MaxEnrichSeeds:  10,
	}
}

// Deps are the collaborators of a Worker. Primary, Fallback, Keywords and
// Exporter may be nil.
type Deps struct {
	Store    plan.JobStore
	Queue    plan.Queue
	Scanner  SiteScanner
	Primary  llm.Completer
	Fallback llm.Completer
	Keywords keywords.Lookup
	Exporter Exporter
	Budget   *llm.TokenBudget
	Tracer   trace.Tracer
}

// Worker consumes queue items and runs the pipeline for each job.
type Worker struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(deps Deps, cfg Config, logger *zap.Logger) *Worker {
	def := DefaultConfig()
	if cfg.TargetArticles <= 0 {
		cfg.TargetArticles = def.TargetArticles
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.NicheTimeout <= 0 {
		cfg.NicheTimeout = def.NicheTimeout
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = def.FallbackTimeout
	}
	if cfg.PillarTimeout <= 0 {
		cfg.PillarTimeout = def.PillarTimeout
	}
	if cfg.ClusterTimeout <= 0 {
		cfg.ClusterTimeout = def.ClusterTimeout
	}
	if cfg.EnrichTimeout <= 0 {
		cfg.EnrichTimeout = def.EnrichTimeout
	}
	if cfg.MaxEnrichSeeds <= 0 {
		cfg.MaxEnrichSeeds = def.MaxEnrichSeeds
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{deps: deps, cfg: cfg, logger: logger.Named("worker")}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.deps.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.Process(ctx, item)
	}
}

// errStopped means the job left the active states while the pipeline ran.
var errStopped = errors.New("job is no longer active")

// Process runs the full pipeline for one job. It never returns an error: the
// outcome is recorded on the job itself.
func (w *Worker) Process(ctx context.Context, item plan.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	r := &run{
		w:         w,
		jobID:     item.JobID,
		sourceURL: item.SourceURL,
		logger:    w.logger.With(zap.String("job_id", item.JobID)),
	}

	err := r.safeExecute(ctx)
	switch {
	case err == nil:
		metrics.ObserveJob(string(plan.StatusCompleted))
		r.logger.Info("plan completed", zap.Int("briefs", r.briefCount))
	case errors.Is(err, errStopped):
		metrics.ObserveJob(string(plan.StatusCancelled))
		r.logger.Info("pipeline stopped, job no longer active", zap.Int("progress", r.progress))
	default:
		r.logger.Error("pipeline failed", zap.Error(err))
		r.fail(ctx, err)
	}
}

func (r *run) safeExecute(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panicked: %v", rec)
		}
	}()
	return r.execute(ctx)
}

const failWriteTimeout = 10 * time.Second

// fail records a fatal error. A job cancelled in the meantime stays cancelled.
func (r *run) fail(ctx context.Context, cause error) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()
	applied, err := r.w.deps.Store.UpdateIfActive(writeCtx, r.jobID, plan.JobUpdate{
		Status:      plan.Ptr(plan.StatusFailed),
		CurrentStep: plan.Ptr("Failed"),
		Error:       plan.Ptr(cause.Error()),
	})
	if err != nil {
		r.logger.Error("mark job failed", zap.Error(err))
		return
	}
	if applied {
		metrics.ObserveJob(string(plan.StatusFailed))
	}
}
