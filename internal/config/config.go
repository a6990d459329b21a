// Package config loads application configuration and initializes logging.
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
	PDL       PDLConfig       `yaml:"pdl" mapstructure:"pdl"`
	Verifier  VerifierConfig  `yaml:"verifier" mapstructure:"verifier"`
	Approval  ApprovalConfig  `yaml:"approval" mapstructure:"approval"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Secrets   SecretsConfig   `yaml:"secrets" mapstructure:"secrets"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PDLConfig holds People Data Labs client settings.
type PDLConfig struct {
	BaseURL              string `yaml:"base_url" mapstructure:"base_url"`
	PageSize             int    `yaml:"page_size" mapstructure:"page_size"`
	MaxRetries           int    `yaml:"max_retries" mapstructure:"max_retries"`
	MinRequestIntervalMs int    `yaml:"min_request_interval_ms" mapstructure:"min_request_interval_ms"`
}

// VerifierConfig holds email verification client settings.
type VerifierConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ApprovalConfig configures the candidate approval engine.
type ApprovalConfig struct {
	MaxBatchSize int `yaml:"max_batch_size" mapstructure:"max_batch_size"`
}

// DiscoveryConfig configures discovery run execution.
type DiscoveryConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `yaml:"max_limit" mapstructure:"max_limit"`
}

// SecretsConfig holds the credential encryption key (base64, 32 bytes decoded).
type SecretsConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("pdl.base_url", "https://api.peopledatalabs.com/v5")
	v.SetDefault("pdl.page_size", 100)
	v.SetDefault("pdl.max_retries", 3)
	v.SetDefault("pdl.min_request_interval_ms", 200)
	v.SetDefault("verifier.base_url", "https://api.neverbounce.com/v4")
	v.SetDefault("verifier.max_retries", 2)
	v.SetDefault("approval.max_batch_size", 500)
	v.SetDefault("discovery.default_limit", 100)
	v.SetDefault("discovery.max_limit", 1000)

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
