package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/chainquery/common/ratelimit"
	"github.com/stretchr/testify/assert"
)

type stubChecker struct {
	allowed bool
	err     error
	clients []string
}

func (s *stubChecker) CheckGlobalLimit(ctx context.Context, limit int64, windowSec int) (*ratelimit.RateLimitResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ratelimit.RateLimitResult{Allowed: s.allowed, Limit: limit, RetryAfterSeconds: 30}, nil
}

func (s *stubChecker) CheckClientLimit(ctx context.Context, clientID string, limit int64, windowSec int) (*ratelimit.RateLimitResult, error) {
	s.clients = append(s.clients, clientID)
	if s.err != nil {
		return nil, s.err
	}
	return &ratelimit.RateLimitResult{Allowed: s.allowed, Limit: limit, CurrentCount: limit + 1}, nil
}

func serve(mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(mw)
	e.GET("/getTopNodes", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/getTopNodes", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.1.2.3")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGlobalRateLimit(t *testing.T) {
	rec := serve(GlobalRateLimitMiddleware(&stubChecker{allowed: true}, ratelimit.DefaultPolicy))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(GlobalRateLimitMiddleware(&stubChecker{allowed: false}, ratelimit.DefaultPolicy))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "global_rate_limit_exceeded")
}

func TestClientRateLimit(t *testing.T) {
	checker := &stubChecker{allowed: false}
	rec := serve(ClientRateLimitMiddleware(checker, ratelimit.DefaultPolicy))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "client_rate_limit_exceeded")
	assert.Equal(t, []string{"10.1.2.3"}, checker.clients)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	checker := &stubChecker{err: errors.New("redis down")}

	assert.Equal(t, http.StatusOK, serve(GlobalRateLimitMiddleware(checker, ratelimit.DefaultPolicy)).Code)
	assert.Equal(t, http.StatusOK, serve(ClientRateLimitMiddleware(checker, ratelimit.DefaultPolicy)).Code)
}
