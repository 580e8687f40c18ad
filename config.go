package thimble

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/danpasecinic/thimble/internal/scope"
)

const EnvPrefix = "THIMBLE"

// Config holds the injector settings that can come from a file or the
// environment. Apply it with WithConfig.
type Config struct {
	DefaultCachePolicy CachePolicy
	MaxRewriteDepth    int
	LogLevel           string
}

type fileConfig struct {
	DefaultCachePolicy string `mapstructure:"default_cache_policy"`
	MaxRewriteDepth    int    `mapstructure:"max_rewrite_depth"`
	LogLevel           string `mapstructure:"log_level"`
}

type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	configFile string
	envFile    string
}

// WithConfigFile reads settings from a YAML (or any viper-supported) file.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads a .env file into the process environment before the
// THIMBLE_ variables are read.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// LoadConfig reads default_cache_policy, max_rewrite_depth and log_level.
// Environment variables such as THIMBLE_MAX_REWRITE_DEPTH override the file.
func LoadConfig(opts ...LoaderOption) (Config, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	v.SetDefault("default_cache_policy", "")
	v.SetDefault("max_rewrite_depth", 0)
	v.SetDefault("log_level", "")

	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", lc.configFile, err)
		}
	}

	if lc.envFile != "" {
		if _, err := os.Stat(lc.envFile); err == nil {
			if err := godotenv.Load(lc.envFile); err != nil {
				return Config{}, fmt.Errorf("load env file %s: %w", lc.envFile, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	policy, err := scope.Parse(raw.DefaultCachePolicy)
	if err != nil {
		return Config{}, err
	}
	if raw.MaxRewriteDepth < 0 {
		return Config{}, fmt.Errorf("max_rewrite_depth must not be negative, got %d", raw.MaxRewriteDepth)
	}

	return Config{
		DefaultCachePolicy: policy,
		MaxRewriteDepth:    raw.MaxRewriteDepth,
		LogLevel:           raw.LogLevel,
	}, nil
}
