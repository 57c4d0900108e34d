package ratelimit

import (
	"fmt"

	"github.com/lyzr/chainquery/common/config"
)

// Policy defines the request limits enforced by the HTTP layer
type Policy struct {
	GlobalLimit   int64 // Requests per window across all clients
	ClientLimit   int64 // Requests per window for one client IP
	WindowSeconds int
}

// DefaultPolicy is used when no configuration is supplied
var DefaultPolicy = Policy{
	GlobalLimit:   1000,
	ClientLimit:   120,
	WindowSeconds: 60,
}

// PolicyFromConfig builds a policy from the service configuration,
// falling back to DefaultPolicy for unset values
func PolicyFromConfig(cfg config.RateLimitConfig) Policy {
	p := Policy{
		GlobalLimit:   cfg.GlobalLimit,
		ClientLimit:   cfg.ClientLimit,
		WindowSeconds: cfg.WindowSeconds,
	}
	if p.GlobalLimit <= 0 {
		p.GlobalLimit = DefaultPolicy.GlobalLimit
	}
	if p.ClientLimit <= 0 {
		p.ClientLimit = DefaultPolicy.ClientLimit
	}
	if p.WindowSeconds <= 0 {
		p.WindowSeconds = DefaultPolicy.WindowSeconds
	}
	return p
}

// Window renders the window for error responses
func (p Policy) Window() string {
	return fmt.Sprintf("%d seconds", p.WindowSeconds)
}
