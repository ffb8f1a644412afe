package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Snapshot   SnapshotConfig   `yaml:"snapshot" mapstructure:"snapshot"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SnapshotConfig configures where client and catalog data is loaded from.
type SnapshotConfig struct {
	Source          string `yaml:"source" mapstructure:"source"` // "file" or "postgres"
	ClientsPath     string `yaml:"clients_path" mapstructure:"clients_path"`
	CatalogPath     string `yaml:"catalog_path" mapstructure:"catalog_path"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	RefreshInterval int    `yaml:"refresh_interval_secs" mapstructure:"refresh_interval_secs"`
	RetryAttempts   int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// Interval returns RefreshInterval as a duration.
func (s SnapshotConfig) Interval() time.Duration {
	return time.Duration(s.RefreshInterval) * time.Second
}

// StoreConfig configures the override store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// NotionConfig holds Notion API credentials and the product catalog database.
type NotionConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	CatalogDB string `yaml:"catalog_db" mapstructure:"catalog_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ScoringConfig tunes the recommendation, similarity and resolver thresholds.
type ScoringConfig struct {
	AdoptionThreshold float64 `yaml:"adoption_threshold" mapstructure:"adoption_threshold"`
	HighCutoff        float64 `yaml:"high_cutoff" mapstructure:"high_cutoff"`
	MediumCutoff      float64 `yaml:"medium_cutoff" mapstructure:"medium_cutoff"`
	MaxSupporting     int     `yaml:"max_supporting" mapstructure:"max_supporting"`

	ProductWeight   float64 `yaml:"product_weight" mapstructure:"product_weight"`
	SegmentWeight   float64 `yaml:"segment_weight" mapstructure:"segment_weight"`
	GeographyWeight float64 `yaml:"geography_weight" mapstructure:"geography_weight"`

	ResolverThreshold float64 `yaml:"resolver_threshold" mapstructure:"resolver_threshold"`
	ResolverStrategy  string  `yaml:"resolver_strategy" mapstructure:"resolver_strategy"` // "levenshtein" or "token_set"

	DefaultSegment string `yaml:"default_segment" mapstructure:"default_segment"`
	RulesFile      string `yaml:"rules_file" mapstructure:"rules_file"`
}

// ServerConfig configures the HTTP request layer.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CacheTTLSecs   int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	RequestTimeout int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml, if present, and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and environment. With an empty
// path it looks for an optional config.yaml in the working directory; an
// explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ACCOUNT_INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("snapshot.source", "file")
	v.SetDefault("snapshot.clients_path", "data/clients.json")
	v.SetDefault("snapshot.catalog_path", "data/catalog.json")
	v.SetDefault("snapshot.database_url", "")
	v.SetDefault("snapshot.refresh_interval_secs", 300)
	v.SetDefault("snapshot.retry_attempts", 3)
	v.SetDefault("store.path", "overrides.db")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.catalog_db", "")
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("scoring.adoption_threshold", 0.4)
	v.SetDefault("scoring.high_cutoff", 0.7)
	v.SetDefault("scoring.medium_cutoff", 0.5)
	v.SetDefault("scoring.max_supporting", 3)
	v.SetDefault("scoring.product_weight", 0.7)
	v.SetDefault("scoring.segment_weight", 0.2)
	v.SetDefault("scoring.geography_weight", 0.1)
	v.SetDefault("scoring.resolver_threshold", 0.4)
	v.SetDefault("scoring.resolver_strategy", "levenshtein")
	v.SetDefault("scoring.default_segment", "Fintech")
	v.SetDefault("scoring.rules_file", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cache_ttl_secs", 60)
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrapf(err, "config: read file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Mode is one of
// "serve" or "cli".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Snapshot.Source {
	case "file":
		if c.Snapshot.ClientsPath == "" {
			errs = append(errs, "snapshot.clients_path is required for file source")
		}
	case "postgres":
		if c.Snapshot.DatabaseURL == "" {
			errs = append(errs, "snapshot.database_url is required for postgres source")
		}
	default:
		errs = append(errs, fmt.Sprintf("snapshot.source must be file or postgres, got %q", c.Snapshot.Source))
	}
	if c.Snapshot.RetryAttempts < 1 {
		errs = append(errs, "snapshot.retry_attempts must be >= 1")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Snapshot.RefreshInterval <= 0 {
			errs = append(errs, "snapshot.refresh_interval_secs must be > 0")
		}
		if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
			errs = append(errs, "server.rate_limit and server.rate_burst must be > 0")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
