package container

import (
	"github.com/lyzr/chainquery/cmd/chainquery/service"
	"github.com/lyzr/chainquery/common/bootstrap"
	"github.com/lyzr/chainquery/common/ratelimit"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Services
	QueryService *service.QueryService

	// Nil when Redis is disabled; routes then skip rate limiting
	RateLimiter *ratelimit.RateLimiter
	RatePolicy  ratelimit.Policy
}

// NewContainer initializes all services once
func NewContainer(components *bootstrap.Components) *Container {
	cfg := components.Config

	queryService := service.NewQueryService(&service.QueryServiceOpts{
		Store:     components.Store,
		Cache:     components.Cache,
		Telemetry: components.Telemetry,
		Logger:    components.Logger,
		Query:     cfg.Query,
		MediaTTL:  cfg.Cache.MediaTTL,
	})

	c := &Container{
		Components:   components,
		QueryService: queryService,
		RatePolicy:   ratelimit.PolicyFromConfig(cfg.RateLimit),
	}

	if components.Redis != nil {
		c.RateLimiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), components.Logger)
	}

	return c
}
