// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for the AI scan.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	Model      string `yaml:"model" mapstructure:"model"`
	MaxTokens  int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	PlaceCount int    `yaml:"place_count" mapstructure:"place_count"`
}

// ProvidersConfig holds per-provider credentials and enablement for the
// multi-source scan. Keys left empty disable the provider with a recorded
// error rather than a hard failure.
type ProvidersConfig struct {
	Enabled          []string `yaml:"enabled" mapstructure:"enabled"`
	FoursquareKey    string   `yaml:"foursquare_api_key" mapstructure:"foursquare_api_key"`
	GooglePlacesKey  string   `yaml:"google_places_api_key" mapstructure:"google_places_api_key"`
	GeoNamesUsername string   `yaml:"geonames_username" mapstructure:"geonames_username"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimitRPS     float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// ScanConfig configures ingestion runs. Threaded explicitly into each
// orchestrator call; nothing reads ambient settings mid-run.
type ScanConfig struct {
	Paused       bool   `yaml:"paused" mapstructure:"paused"`
	Category     string `yaml:"category" mapstructure:"category"`
	Country      string `yaml:"country" mapstructure:"country"`
	ResultLimit  int    `yaml:"result_limit" mapstructure:"result_limit"`
	FetchWorkers int    `yaml:"fetch_workers" mapstructure:"fetch_workers"`
}

// ServerConfig configures the admin trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and HAUNTDB_* environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HAUNTDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("scan.category", "haunted_location")
	v.SetDefault("scan.country", "TR")
	v.SetDefault("scan.result_limit", 50)
	v.SetDefault("scan.fetch_workers", 5)
	v.SetDefault("providers.enabled", []string{"dbpedia", "geonames"})
	v.SetDefault("providers.user_agent", "HauntedWhispersBot/1.0")
	v.SetDefault("providers.rate_limit_rps", 2)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.place_count", 3)

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
