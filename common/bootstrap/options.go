package bootstrap

import (
	"github.com/lyzr/chainquery/common/config"
	"github.com/lyzr/chainquery/common/logger"
	"github.com/lyzr/chainquery/common/store"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipRedis     bool
	skipCache     bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	customStore   store.Store
}

// WithoutRedis skips Redis even when REDIS_ENABLED is set
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithCustomStore uses s instead of connecting to STORE_BACKEND.
// The caller keeps ownership: Shutdown does not close it.
func WithCustomStore(s store.Store) Option {
	return func(o *options) {
		o.customStore = s
	}
}

func defaultOptions() *options {
	return &options{}
}
