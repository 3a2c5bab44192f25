package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/config"
	"github.com/JakeFAU/contentplan/internal/plan"
)

const landingPage = `<!doctype html>
<html lang="nl-NL">
<head><title>Koffiebonen van de Bar</title>
<meta name="description" content="Versgebrande koffiebonen en espresso.">
</head>
<body><h1>Koffiebonen</h1><p>Wij branden elke week verse koffiebonen.</p></body>
</html>`

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Dispatcher: config.DispatcherConfig{Workers: 1, QueueDepth: 4},
		Pipeline: config.PipelineConfig{
			TargetArticles: 100,
			BatchSize:      5,
			MaxEnrichSeeds: 10,
		},
		Site:     config.SiteConfig{UserAgent: "contentplan-test", Timeout: 5 * time.Second},
		Database: config.DatabaseConfig{Driver: "memory"},
		Storage:  config.StorageConfig{Backend: "memory", Prefix: "plans"},
		PubSub:   config.PubSubConfig{Backend: "memory"},
		Keywords: config.KeywordsConfig{Cache: config.KeywordsCacheConfig{Backend: "none"}},
	}
}

func TestBuildAndGenerate(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(landingPage))
	}))
	defer site.Close()

	ctx := context.Background()
	app, err := Build(ctx, testConfig(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer app.Close(ctx)

	job, err := app.Generate(ctx, GenerateRequest{SourceURL: site.URL, ProjectRef: "proj-1"})
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "nl", job.Language)
	assert.Equal(t, plan.DefaultNiche, job.Niche)
	assert.NotEmpty(t, job.Plan)
	assert.Equal(t, len(job.Plan), job.Stats.Total)
	assert.True(t, strings.HasPrefix(job.ExportURI, "memory://"), job.ExportURI)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/plans/"+job.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
}

func TestGenerateWithDiscardStorage(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(landingPage))
	}))
	defer site.Close()

	cfg := testConfig()
	cfg.Storage.Backend = "discard"
	cfg.PubSub.Backend = "none"

	ctx := context.Background()
	app, err := Build(ctx, cfg, Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer app.Close(ctx)

	job, err := app.Generate(ctx, GenerateRequest{SourceURL: site.URL})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCompleted, job.Status)
	assert.NotEmpty(t, job.Plan)
	assert.Empty(t, job.ExportURI)
}

func TestGenerateRejectsEmptyURL(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, testConfig(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer app.Close(ctx)

	_, err = app.Generate(ctx, GenerateRequest{SourceURL: "  "})
	require.Error(t, err)
}

func TestBuildReadyProbeWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, testConfig(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer app.Close(ctx)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildFailsOnUnusableStorage(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := testConfig()
	cfg.Storage = config.StorageConfig{Backend: "local", LocalDir: filepath.Join(blocker, "plans")}

	_, err := Build(context.Background(), cfg, Options{Logger: zap.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local storage")
}

func TestBuildFailsOnBadDSN(t *testing.T) {
	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{Driver: "postgres", DSN: "postgres://user@localhost:notaport/db"}

	_, err := Build(context.Background(), cfg, Options{Logger: zap.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job store")
}

func TestInMemoryOverridesDatabaseDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{Driver: "postgres", DSN: "postgres://user@localhost:notaport/db"}

	app, err := Build(context.Background(), cfg, Options{Logger: zap.NewNop(), InMemory: true})
	require.NoError(t, err)
	defer app.Close(context.Background())
	assert.Nil(t, app.pgStore)
}

func TestSetupCompletersSkipsUnconfiguredProviders(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LLM.Fallback = config.ProviderConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}
	app := &App{cfg: cfg, logger: zap.NewNop()}

	primary, fallback, err := setupCompleters(app)
	require.NoError(t, err)
	assert.Nil(t, primary)
	assert.NotNil(t, fallback)
}
