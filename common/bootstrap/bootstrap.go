package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/chainquery/common/cache"
	"github.com/lyzr/chainquery/common/config"
	"github.com/lyzr/chainquery/common/db"
	"github.com/lyzr/chainquery/common/logger"
	"github.com/lyzr/chainquery/common/mongodb"
	rediscommon "github.com/lyzr/chainquery/common/redis"
	"github.com/lyzr/chainquery/common/store"
	"github.com/lyzr/chainquery/common/store/memstore"
	"github.com/lyzr/chainquery/common/store/mongostore"
	"github.com/lyzr/chainquery/common/store/pgstore"
	"github.com/lyzr/chainquery/common/telemetry"
)

// cachePrefix namespaces this service's keys in a shared Redis
const cachePrefix = "chainquery:"

// Setup initializes all service components
// This is the main entry point for every command
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Connect the store
	if options.customStore != nil {
		components.Store = options.customStore
	} else {
		components.Store, err = openStore(ctx, components)
		if err != nil {
			components.Shutdown(ctx)
			return nil, err
		}
	}

	// 4. Initialize Redis (if enabled and not skipped)
	if !options.skipRedis && components.Config.Redis.Enabled {
		components.Redis, err = rediscommon.New(ctx, rediscommon.Options{
			Addr:     components.Config.RedisAddr(),
			Password: components.Config.Redis.Password,
			DB:       components.Config.Redis.DB,
		}, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func(context.Context) error {
			return components.Redis.Close()
		})
	}

	// 5. Initialize cache (if not skipped)
	if !options.skipCache && components.Config.Cache.Enabled {
		if components.Redis != nil {
			components.Logger.Info("initializing cache", "type", "redis")
			components.Cache = cache.NewRedisCache(components.Redis, cachePrefix)
		} else {
			components.Logger.Info("initializing cache", "type", "memory")
			components.Cache = cache.NewMemoryCache(components.Logger)
		}

		components.addCleanup(func(context.Context) error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	// 6. Initialize telemetry (if not skipped)
	if !options.skipTelemetry {
		pprofPort := 0
		if components.Config.Telemetry.EnablePprof {
			pprofPort = components.Config.Telemetry.PprofPort
		}
		components.Telemetry = telemetry.New(pprofPort, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}

		components.addCleanup(components.Telemetry.Stop)
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"store", components.Config.Store.Backend,
		"redis", components.Redis != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// openStore connects the configured backend and registers its cleanup
func openStore(ctx context.Context, components *Components) (store.Store, error) {
	cfg := components.Config
	log := components.Logger

	switch cfg.Store.Backend {
	case config.BackendMongo:
		log.Info("connecting to mongodb", "db", cfg.Mongo.Database)
		client, err := mongodb.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		s := mongostore.New(client)
		components.addCleanup(s.Close)
		return s, nil

	case config.BackendPostgres:
		log.Info("connecting to database", "host", cfg.Database.Host)
		database, err := db.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s := pgstore.New(database)
		components.addCleanup(s.Close)
		return s, nil

	case config.BackendMemory:
		log.Warn("using in-memory store; data is not persisted")
		return memstore.New(), nil
	}

	return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
}

// MustSetup is like Setup but panics on error
// Useful for commands that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
