package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/chainquery/common/ratelimit"
)

// GlobalRateLimitMiddleware checks the global service-wide rate limit
// Protects the store from being overwhelmed by fan-out queries
func GlobalRateLimitMiddleware(checker ratelimit.Checker, policy ratelimit.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := checker.CheckGlobalLimit(c.Request().Context(), policy.GlobalLimit, policy.WindowSeconds)
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"message": "Service is experiencing high load. Please try again later.",
					"error": map[string]interface{}{
						"kind":                "global_rate_limit_exceeded",
						"limit":               result.Limit,
						"window":              policy.Window(),
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}

// ClientRateLimitMiddleware checks per-client limits, keyed on the real IP
func ClientRateLimitMiddleware(checker ratelimit.Checker, policy ratelimit.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientIP := c.RealIP()
			if clientIP == "" {
				return next(c)
			}

			result, err := checker.CheckClientLimit(c.Request().Context(), clientIP, policy.ClientLimit, policy.WindowSeconds)
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"message": "You have exceeded your request quota. Please wait before trying again.",
					"error": map[string]interface{}{
						"kind":                "client_rate_limit_exceeded",
						"limit":               result.Limit,
						"window":              policy.Window(),
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
