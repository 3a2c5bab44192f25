// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Keywords   KeywordsConfig   `mapstructure:"keywords"`
	Site       SiteConfig       `mapstructure:"site"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// DispatcherConfig sizes the job queue and worker pool.
type DispatcherConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// PipelineConfig holds the orchestrator knobs.
type PipelineConfig struct {
	TargetArticles    int           `mapstructure:"target_articles"`
	BatchSize         int           `mapstructure:"batch_size"`
	NicheTimeout      time.Duration `mapstructure:"niche_timeout"`
	FallbackTimeout   time.Duration `mapstructure:"fallback_timeout"`
	PillarTimeout     time.Duration `mapstructure:"pillar_timeout"`
	ClusterTimeout    time.Duration `mapstructure:"cluster_timeout"`
	EnrichTimeout     time.Duration `mapstructure:"enrich_timeout"`
	MaxEnrichSeeds    int           `mapstructure:"max_enrich_seeds"`
	PromptTokenBudget int           `mapstructure:"prompt_token_budget"`
}

// ProviderConfig describes one OpenAI-compatible completion provider.
type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Configured reports whether the provider has credentials.
func (p ProviderConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// LLMConfig configures the primary and fallback providers and shared limits.
type LLMConfig struct {
	Primary           ProviderConfig `mapstructure:"primary"`
	Fallback          ProviderConfig `mapstructure:"fallback"`
	MaxRetries        int            `mapstructure:"max_retries"`
	BaseBackoff       time.Duration  `mapstructure:"base_backoff"`
	MaxBackoff        time.Duration  `mapstructure:"max_backoff"`
	RequestsPerSecond float64        `mapstructure:"requests_per_second"`
	Burst             int            `mapstructure:"burst"`
}

// KeywordsConfig configures the keyword metrics API and its cache.
type KeywordsConfig struct {
	Login    string              `mapstructure:"login"`
	Password string              `mapstructure:"password"`
	BaseURL  string              `mapstructure:"base_url"`
	Cache    KeywordsCacheConfig `mapstructure:"cache"`
}

// KeywordsCacheConfig selects the metrics cache backend.
type KeywordsCacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	Prefix    string        `mapstructure:"prefix"`
}

// SiteConfig controls homepage fetching.
type SiteConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
	HostRPS       float64       `mapstructure:"host_rps"`
	HostBurst     int           `mapstructure:"host_burst"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MaxParallel        int           `mapstructure:"max_parallel"`
	NavTimeout         time.Duration `mapstructure:"nav_timeout"`
	SettleDelay        time.Duration `mapstructure:"settle_delay"`
	PromotionThreshold int           `mapstructure:"promotion_threshold"`
}

// DatabaseConfig selects the job store backend.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// StorageConfig sets the plan export backend. "discard" hashes and logs
// archives without keeping them.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	LocalDir string `mapstructure:"local_dir"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// PubSubConfig holds metadata for completion notifications.
type PubSubConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoadDotEnv loads KEY=value pairs from path into the environment. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTENTPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "contentplan")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("dispatcher.workers", 2)
	v.SetDefault("dispatcher.queue_depth", 64)
	v.SetDefault("pipeline.target_articles", 200)
	v.SetDefault("pipeline.batch_size", 5)
	v.SetDefault("pipeline.niche_timeout", 60*time.Second)
	v.SetDefault("pipeline.fallback_timeout", 120*time.Second)
	v.SetDefault("pipeline.pillar_timeout", 60*time.Second)
	v.SetDefault("pipeline.cluster_timeout", 90*time.Second)
	v.SetDefault("pipeline.enrich_timeout", 30*time.Second)
	v.SetDefault("pipeline.max_enrich_seeds", 10)
	v.SetDefault("pipeline.prompt_token_budget", 1500)
	v.SetDefault("llm.primary.api_key", "")
	v.SetDefault("llm.primary.base_url", "")
	v.SetDefault("llm.primary.model", "gpt-4o-mini")
	v.SetDefault("llm.primary.timeout", 60*time.Second)
	v.SetDefault("llm.fallback.api_key", "")
	v.SetDefault("llm.fallback.base_url", "")
	v.SetDefault("llm.fallback.model", "gpt-4o-mini")
	v.SetDefault("llm.fallback.timeout", 120*time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.base_backoff", 2*time.Second)
	v.SetDefault("llm.max_backoff", 32*time.Second)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("keywords.login", "")
	v.SetDefault("keywords.password", "")
	v.SetDefault("keywords.base_url", "https://api.dataforseo.com")
	v.SetDefault("keywords.cache.backend", "memory")
	v.SetDefault("keywords.cache.ttl", 24*time.Hour)
	v.SetDefault("keywords.cache.redis_addr", "localhost:6379")
	v.SetDefault("keywords.cache.redis_db", 0)
	v.SetDefault("keywords.cache.prefix", "contentplan:")
	v.SetDefault("site.user_agent", "contentplan-bot/0.1")
	v.SetDefault("site.timeout", 15*time.Second)
	v.SetDefault("site.respect_robots", false)
	v.SetDefault("site.max_body_bytes", 5*1024*1024)
	v.SetDefault("site.host_rps", 1.0)
	v.SetDefault("site.host_burst", 2)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout", 25*time.Second)
	v.SetDefault("headless.settle_delay", 500*time.Millisecond)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "plan_jobs")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.backend", "none")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "plans")
	v.SetDefault("storage.local_dir", "data/plans")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("pubsub.backend", "none")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Dispatcher.Workers <= 0 {
		return fmt.Errorf("dispatcher.workers must be > 0")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be > 0")
	}
	if c.Pipeline.MaxEnrichSeeds <= 0 {
		return fmt.Errorf("pipeline.max_enrich_seeds must be > 0")
	}
	if c.Site.Timeout <= 0 {
		return fmt.Errorf("site.timeout must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "none", "discard", "memory":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case "gcs", "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	switch c.PubSub.Backend {
	case "none", "memory":
	case "gcp":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set for the gcp backend")
		}
	default:
		return fmt.Errorf("pubsub.backend %q is not supported", c.PubSub.Backend)
	}
	switch c.Keywords.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("keywords.cache.backend %q is not supported", c.Keywords.Cache.Backend)
	}
	return nil
}

// KeywordsConfigured reports whether keyword metrics credentials are set.
func (c Config) KeywordsConfigured() bool {
	return c.Keywords.Login != "" && c.Keywords.Password != ""
}
