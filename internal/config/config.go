package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config stores all configuration for the crawler.
type Config struct {
	SiteURL      string `mapstructure:"SITE_URL"`
	ExtractDir   string `mapstructure:"EXTRACT_DIR"`
	Sequential   bool   `mapstructure:"SEQUENTIAL"`
	StateBackend string `mapstructure:"STATE_BACKEND"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFile     string `mapstructure:"LOG_FILE"`

	FetchTimeout int    `mapstructure:"FETCH_TIMEOUT"` // seconds
	UserAgent    string `mapstructure:"USER_AGENT"`
}

// State backends.
const (
	StateBackendFile  = "fs"
	StateBackendRedis = "redis"
)

// Load reads configuration from a .env file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present.
	// This allows configuration purely through environment variables.
	_ = viper.ReadInConfig()

	viper.SetDefault("SITE_URL", "https://community.elitedangerous.com")
	viper.SetDefault("EXTRACT_DIR", "./galnet")
	viper.SetDefault("SEQUENTIAL", false)
	viper.SetDefault("STATE_BACKEND", StateBackendFile)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("METRICS_ADDR", "")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("FETCH_TIMEOUT", 30) // in seconds
	viper.SetDefault("USER_AGENT", "galnet-crawler/1.0")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RecordsDir is where the per-article JSON records live, below the
// extraction directory that holds the bookkeeping files.
func (c *Config) RecordsDir() string {
	return filepath.Join(c.ExtractDir, "files")
}
