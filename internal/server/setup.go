package server

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/config"
	"github.com/JakeFAU/contentplan/internal/export"
	"github.com/JakeFAU/contentplan/internal/fetcher"
	collyfetcher "github.com/JakeFAU/contentplan/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/contentplan/internal/fetcher/headless"
	"github.com/JakeFAU/contentplan/internal/headless/detector"
	"github.com/JakeFAU/contentplan/internal/keywords"
	"github.com/JakeFAU/contentplan/internal/llm"
	"github.com/JakeFAU/contentplan/internal/policy/ratelimit"
	"github.com/JakeFAU/contentplan/internal/publisher"
	pubmemory "github.com/JakeFAU/contentplan/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/contentplan/internal/publisher/pubsub"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
	"github.com/JakeFAU/contentplan/internal/storage"
	gcsstorage "github.com/JakeFAU/contentplan/internal/storage/gcs"
	localstorage "github.com/JakeFAU/contentplan/internal/storage/local"
	storeMemory "github.com/JakeFAU/contentplan/internal/storage/memory"
	pgstore "github.com/JakeFAU/contentplan/internal/storage/postgres"
	s3storage "github.com/JakeFAU/contentplan/internal/storage/s3"
	"github.com/JakeFAU/contentplan/internal/telemetry"
	"github.com/JakeFAU/contentplan/internal/worker"
)

func setupTracing(ctx context.Context, a *App) (trace.Tracer, error) {
	if !a.cfg.Tracing.Enabled {
		return telemetry.Tracer(nil), nil
	}
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Options{
		ServiceName: a.cfg.Tracing.ServiceName,
		SampleRatio: a.cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	a.tracerProvider = tp
	return telemetry.Tracer(tp), nil
}

func setupJobStore(ctx context.Context, a *App, inMemory bool) error {
	if inMemory || a.cfg.Database.Driver != "postgres" {
		a.jobStore = storeMemory.NewJobStore(a.clock)
		a.logger.Info("using in-memory job store")
		return nil
	}
	store, err := pgstore.NewJobStore(ctx, pgstore.JobStoreConfig{
		DSN:             a.cfg.Database.DSN,
		Table:           a.cfg.Database.Table,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
	}, a.clock)
	if err != nil {
		return fmt.Errorf("failed to initialize job store: %w", err)
	}
	a.pgStore = store
	if a.cfg.Database.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	a.jobStore = store
	a.logger.Info("using postgres job store", zap.String("table", a.cfg.Database.Table))
	return nil
}

func setupScanner(a *App) (worker.SiteScanner, error) {
	site := a.cfg.Site
	httpFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     site.UserAgent,
		RespectRobots: site.RespectRobots,
		Timeout:       site.Timeout,
		MaxBodySize:   site.MaxBodyBytes,
	})

	var (
		renderer fetcher.Fetcher
		promoter fetcher.Detector
	)
	if a.cfg.Headless.Enabled {
		hf, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         site.UserAgent,
			NavigationTimeout: a.cfg.Headless.NavTimeout,
			SettleDelay:       a.cfg.Headless.SettleDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize headless renderer: %w", err)
		}
		a.headless = hf
		renderer = hf
		promoter = detector.NewHeuristic(a.cfg.Headless.PromotionThreshold)
		a.logger.Info("headless rendering enabled", zap.Int("max_parallel", a.cfg.Headless.MaxParallel))
	}

	limiter := ratelimit.New(ratelimit.Config{RPS: site.HostRPS, Burst: site.HostBurst})
	return siteinfo.NewExtractor(httpFetcher, renderer, promoter, siteinfo.Config{
		Timeout: site.Timeout,
		Limiter: limiter,
	}, a.logger), nil
}

// setupCompleters returns nil interfaces, never typed nils, for providers
// without credentials.
func setupCompleters(a *App) (llm.Completer, llm.Completer, error) {
	var primary, fallback llm.Completer
	for _, p := range []struct {
		name string
		cfg  config.ProviderConfig
		dst  *llm.Completer
	}{
		{name: "primary", cfg: a.cfg.LLM.Primary, dst: &primary},
		{name: "fallback", cfg: a.cfg.LLM.Fallback, dst: &fallback},
	} {
		if !p.cfg.Configured() {
			a.logger.Warn("llm provider not configured", zap.String("provider", p.name))
			continue
		}
		client, err := llm.NewClient(llm.Config{
			Name:              p.name,
			APIKey:            p.cfg.APIKey,
			BaseURL:           p.cfg.BaseURL,
			Model:             p.cfg.Model,
			Timeout:           p.cfg.Timeout,
			MaxRetries:        a.cfg.LLM.MaxRetries,
			BaseBackoff:       a.cfg.LLM.BaseBackoff,
			MaxBackoff:        a.cfg.LLM.MaxBackoff,
			RequestsPerSecond: a.cfg.LLM.RequestsPerSecond,
			Burst:             a.cfg.LLM.Burst,
		}, a.logger)
		if err != nil {
			return nil, nil, err
		}
		*p.dst = client
	}
	return primary, fallback, nil
}

func llmBudget(a *App) *llm.TokenBudget {
	return llm.NewTokenBudget(a.cfg.Pipeline.PromptTokenBudget, a.logger)
}

func setupKeywords(a *App) keywords.Lookup {
	client := keywords.NewClient(keywords.Config{
		Login:    a.cfg.Keywords.Login,
		Password: a.cfg.Keywords.Password,
		BaseURL:  a.cfg.Keywords.BaseURL,
	}, a.logger)
	if !a.cfg.KeywordsConfigured() {
		a.logger.Warn("keyword metrics not configured; enrichment will be skipped")
		return client
	}

	cacheCfg := a.cfg.Keywords.Cache
	var cache keywords.Cache
	switch cacheCfg.Backend {
	case "memory":
		cache = keywords.NewMemoryCache(a.clock)
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr: cacheCfg.RedisAddr,
			DB:   cacheCfg.RedisDB,
		})
		cache = keywords.NewRedisCache(a.redis, cacheCfg.Prefix)
	default:
		return client
	}
	a.logger.Info("keyword metrics cache enabled", zap.String("backend", cacheCfg.Backend))
	return keywords.NewCachedLookup(client, cache, cacheCfg.TTL, a.logger)
}

// setupExporter returns a nil Exporter when neither archiving nor
// notifications are configured.
func setupExporter(ctx context.Context, a *App) (worker.Exporter, error) {
	blobs, err := setupStorage(ctx, a)
	if err != nil {
		return nil, err
	}
	pub, err := setupPublisher(ctx, a)
	if err != nil {
		return nil, err
	}
	if blobs == nil && pub == nil {
		return nil, nil
	}
	return export.New(blobs, pub, a.clock, export.Config{Prefix: a.cfg.Storage.Prefix}, a.logger), nil
}

func setupStorage(ctx context.Context, a *App) (storage.BlobStore, error) {
	cfg := a.cfg.Storage
	switch cfg.Backend {
	case "memory":
		return storeMemory.NewBlobStore(), nil
	case "discard":
		return storage.Discard{}, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return store, nil
	case "gcs":
		store, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: cfg.Bucket, Endpoint: cfg.Endpoint}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gcs storage: %w", err)
		}
		a.gcsStore = store
		return store, nil
	case "s3":
		store, err := s3storage.Open(ctx, s3storage.Config{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func setupPublisher(ctx context.Context, a *App) (publisher.Publisher, error) {
	cfg := a.cfg.PubSub
	switch cfg.Backend {
	case "memory":
		return pubmemory.New(), nil
	case "gcp":
		client, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		a.pubsubClient = client
		if err := gcppublisher.VerifyTopic(ctx, client, cfg.ProjectID, cfg.TopicName); err != nil {
			return nil, err
		}
		a.pubsubPublisher = client.Publisher(cfg.TopicName)
		a.logger.Info("publishing plan events", zap.String("topic", cfg.TopicName))
		return gcppublisher.New(a.pubsubPublisher), nil
	default:
		return nil, nil
	}
}
