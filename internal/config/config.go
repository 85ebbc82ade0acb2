package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Vendor     VendorConfig     `yaml:"vendor" mapstructure:"vendor"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Seed       SeedConfig       `yaml:"seed" mapstructure:"seed"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// EngineConfig tunes the tier cascade.
type EngineConfig struct {
	GlobalDeadlineSecs   int  `yaml:"global_deadline_secs" mapstructure:"global_deadline_secs"`
	TierTimeoutSecs      int  `yaml:"tier_timeout_secs" mapstructure:"tier_timeout_secs"`
	TierAttempts         int  `yaml:"tier_attempts" mapstructure:"tier_attempts"`
	BreakerThreshold     int  `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs  int  `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
	ScrapeSubTimeoutSecs int  `yaml:"scrape_sub_timeout_secs" mapstructure:"scrape_sub_timeout_secs"`
	DisableScraper       bool `yaml:"disable_scraper" mapstructure:"disable_scraper"`
	DisableHeuristic     bool `yaml:"disable_heuristic" mapstructure:"disable_heuristic"`
}

// GlobalDeadline returns the cascade deadline as a duration.
func (c EngineConfig) GlobalDeadline() time.Duration {
	return time.Duration(c.GlobalDeadlineSecs) * time.Second
}

// TierTimeout returns the per-tier timeout as a duration.
func (c EngineConfig) TierTimeout() time.Duration {
	return time.Duration(c.TierTimeoutSecs) * time.Second
}

// BreakerCooldown returns the breaker cooldown as a duration.
func (c EngineConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSecs) * time.Second
}

// ScrapeSubTimeout returns the per-agency scrape budget as a duration.
func (c EngineConfig) ScrapeSubTimeout() time.Duration {
	return time.Duration(c.ScrapeSubTimeoutSecs) * time.Second
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	TTLHours        int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	StaleAfterHours int `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
}

// TTL returns the cache lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// StaleAfter returns the freshness window as a duration.
func (c CacheConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterHours) * time.Hour
}

// ValidationConfig configures rating freshness thresholds.
type ValidationConfig struct {
	MaxAgeDays  int `yaml:"max_age_days" mapstructure:"max_age_days"`
	WarnAgeDays int `yaml:"warn_age_days" mapstructure:"warn_age_days"`
}

// VendorConfig holds the commercial ratings feed settings. An empty base URL
// disables the vendor tier.
type VendorConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// AnthropicConfig holds Anthropic API settings for the extraction fallback.
// An empty key disables LLM extraction; the regex pass still runs.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SeedConfig configures bulk cache pre-warming.
type SeedConfig struct {
	Concurrency         int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSecond       float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	BreakerCooldownSecs int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// BreakerCooldown returns the seed-path breaker cooldown as a duration.
func (c SeedConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSecs) * time.Second
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RATINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("engine.global_deadline_secs", 10)
	v.SetDefault("engine.tier_timeout_secs", 5)
	v.SetDefault("engine.tier_attempts", 2)
	v.SetDefault("engine.breaker_threshold", 5)
	v.SetDefault("engine.breaker_cooldown_secs", 60)
	v.SetDefault("engine.scrape_sub_timeout_secs", 3)
	v.SetDefault("cache.ttl_hours", 6)
	v.SetDefault("cache.stale_after_hours", 2)
	v.SetDefault("validation.max_age_days", 365)
	v.SetDefault("validation.warn_age_days", 180)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("seed.concurrency", 8)
	v.SetDefault("seed.rate_per_second", 4)
	v.SetDefault("seed.breaker_cooldown_secs", 600)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
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
