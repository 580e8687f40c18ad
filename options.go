package thimble

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpasecinic/thimble/internal/scope"
)

type Option func(*builderConfig)

type builderConfig struct {
	logger          zerolog.Logger
	defaultPolicy   scope.CachePolicy
	maxRewriteDepth int
	tracerProvider  trace.TracerProvider
	onResolve       []ResolveHook
	onInstantiate   []InstantiateHook
}

func defaultBuilderConfig() *builderConfig {
	return &builderConfig{
		logger:        zerolog.Nop(),
		defaultPolicy: scope.Memoize,
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *builderConfig) {
		cfg.logger = logger
	}
}

// WithDefaultCachePolicy sets the policy used for nodes without a preference.
// NoPreference leaves the default, Memoize, in place.
func WithDefaultCachePolicy(p CachePolicy) Option {
	return func(cfg *builderConfig) {
		if p != scope.NoPreference {
			cfg.defaultPolicy = p
		}
	}
}

func WithMaxRewriteDepth(depth int) Option {
	return func(cfg *builderConfig) {
		cfg.maxRewriteDepth = depth
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *builderConfig) {
		cfg.tracerProvider = tp
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *builderConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithInstantiateObserver(hook InstantiateHook) Option {
	return func(cfg *builderConfig) {
		cfg.onInstantiate = append(cfg.onInstantiate, hook)
	}
}

// WithConfig applies settings read by LoadConfig. Zero fields are ignored.
func WithConfig(c Config) Option {
	return func(cfg *builderConfig) {
		if c.DefaultCachePolicy != scope.NoPreference {
			cfg.defaultPolicy = c.DefaultCachePolicy
		}
		if c.MaxRewriteDepth > 0 {
			cfg.maxRewriteDepth = c.MaxRewriteDepth
		}
		if c.LogLevel != "" {
			if lvl, err := zerolog.ParseLevel(c.LogLevel); err == nil {
				cfg.logger = cfg.logger.Level(lvl)
			}
		}
	}
}
