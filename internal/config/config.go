// Package config loads application configuration from config.yaml and the
// LEADGEN_* environment, and owns global logger setup.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Apify  ApifyConfig  `yaml:"apify" mapstructure:"apify"`
	OpenAI OpenAIConfig `yaml:"openai" mapstructure:"openai"`
	Claude ClaudeConfig `yaml:"claude" mapstructure:"claude"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	Path        string           `yaml:"path" mapstructure:"path"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ApifyConfig holds Apify scrape-job settings.
type ApifyConfig struct {
	Token          string `yaml:"token" mapstructure:"token"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	ActorID        string `yaml:"actor_id" mapstructure:"actor_id"`
	ResultsPerPage int    `yaml:"results_per_page" mapstructure:"results_per_page"`
	MaxPages       int    `yaml:"max_pages" mapstructure:"max_pages"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ClaudeConfig holds Anthropic API settings for the alternate completion
// provider.
type ClaudeConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BatchConfig configures file-driven batch searches.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	MappingFile string `yaml:"mapping_file" mapstructure:"mapping_file"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	// Provider selects the completion backend: "openai" or "claude".
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// FetchConfig configures remote lead-file sources.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FTPUser     string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword string `yaml:"ftp_password" mapstructure:"ftp_password"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The credential keys default to "" so AutomaticEnv can bind
	// LEADGEN_APIFY_TOKEN and friends; viper only reads env vars for keys
	// it already knows about.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "leadgen.db")
	v.SetDefault("apify.token", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("claude.key", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor_id", "apify~google-search-scraper")
	v.SetDefault("apify.results_per_page", 5)
	v.SetDefault("apify.max_pages", 1)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("claude.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.encoding", "utf-8")
	v.SetDefault("batch.provider", "openai")
	v.SetDefault("fetch.user_agent", "leadgen-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// LoadColumnMapping reads a YAML column-mapping file for batch input.
func LoadColumnMapping(path string) (model.ColumnMapping, error) {
	var mapping model.ColumnMapping

	data, err := os.ReadFile(path)
	if err != nil {
		return mapping, eris.Wrapf(err, "config: read mapping %s", path)
	}
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return mapping, eris.Wrapf(err, "config: parse mapping %s", path)
	}
	if mapping.Name == "" {
		return mapping, eris.Errorf("config: mapping %s does not name the company column", path)
	}
	return mapping, nil
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
