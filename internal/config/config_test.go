package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 5, cfg.Pipeline.BatchSize)
	require.Equal(t, 60*time.Second, cfg.Pipeline.NicheTimeout)
	require.Equal(t, 120*time.Second, cfg.Pipeline.FallbackTimeout)
	require.Equal(t, 30*time.Second, cfg.Pipeline.EnrichTimeout)
	require.Equal(t, 10, cfg.Pipeline.MaxEnrichSeeds)
	require.Equal(t, "memory", cfg.Database.Driver)
	require.Equal(t, "memory", cfg.Keywords.Cache.Backend)
	require.False(t, cfg.KeywordsConfigured())
	require.False(t, cfg.LLM.Primary.Configured())
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
pipeline:
  target_articles: 500
  batch_size: 3
  niche_timeout: 10s
llm:
  primary:
    api_key: sk-primary
    model: gpt-4o
  fallback:
    api_key: sk-fallback
    base_url: https://llm.internal/v1
keywords:
  login: user
  password: pass
  cache:
    backend: redis
    redis_addr: redis:6379
    ttl: 1h
database:
  driver: postgres
  dsn: postgres://localhost/plans
storage:
  backend: gcs
  bucket: plans-bucket
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, 500, cfg.Pipeline.TargetArticles)
	require.Equal(t, 3, cfg.Pipeline.BatchSize)
	require.Equal(t, 10*time.Second, cfg.Pipeline.NicheTimeout)
	require.Equal(t, "gpt-4o", cfg.LLM.Primary.Model)
	require.True(t, cfg.LLM.Fallback.Configured())
	require.Equal(t, "https://llm.internal/v1", cfg.LLM.Fallback.BaseURL)
	require.True(t, cfg.KeywordsConfigured())
	require.Equal(t, "redis", cfg.Keywords.Cache.Backend)
	require.Equal(t, time.Hour, cfg.Keywords.Cache.TTL)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "plans-bucket", cfg.Storage.Bucket)
	require.False(t, cfg.Logging.Development)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONTENTPLAN_PIPELINE_BATCH_SIZE=7\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CONTENTPLAN_PIPELINE_BATCH_SIZE") })

	require.NoError(t, LoadDotEnv(path))
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Pipeline.BatchSize)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:     ServerConfig{Port: 8080},
		Dispatcher: DispatcherConfig{Workers: 1},
		Pipeline:   PipelineConfig{BatchSize: 5, MaxEnrichSeeds: 10},
		Site:       SiteConfig{Timeout: time.Second},
		Database:   DatabaseConfig{Driver: "memory"},
		Storage:    StorageConfig{Backend: "none"},
		PubSub:     PubSubConfig{Backend: "none"},
		Keywords:   KeywordsConfig{Cache: KeywordsCacheConfig{Backend: "memory"}},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "auth missing api key", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "auth.api_key"},
		{name: "no workers", mutate: func(c *Config) { c.Dispatcher.Workers = 0 }, want: "dispatcher.workers"},
		{name: "no batch size", mutate: func(c *Config) { c.Pipeline.BatchSize = 0 }, want: "pipeline.batch_size"},
		{name: "no site timeout", mutate: func(c *Config) { c.Site.Timeout = 0 }, want: "site.timeout"},
		{
			name:   "headless missing max parallel",
			mutate: func(c *Config) { c.Headless.Enabled = true },
			want:   "headless.max_parallel",
		},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = "postgres" }, want: "database.dsn"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, want: "database.driver"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Storage.Backend = "gcs" }, want: "storage.bucket"},
		{name: "gcp pubsub without topic", mutate: func(c *Config) { c.PubSub.Backend = "gcp" }, want: "pubsub.project_id"},
		{name: "unknown cache", mutate: func(c *Config) { c.Keywords.Cache.Backend = "memcached" }, want: "keywords.cache.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
