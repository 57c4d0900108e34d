package ratelimit

import (
	"testing"

	"github.com/lyzr/chainquery/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	res, err := parseResult([]interface{}{int64(0), int64(11), int64(10), int64(42)})
	require.NoError(t, err)

	assert.False(t, res.Allowed)
	assert.Equal(t, int64(11), res.CurrentCount)
	assert.Equal(t, int64(10), res.Limit)
	assert.Equal(t, int64(42), res.RetryAfterSeconds)
}

func TestParseResult_Malformed(t *testing.T) {
	_, err := parseResult("OK")
	assert.Error(t, err)

	_, err = parseResult([]interface{}{int64(1), int64(2)})
	assert.Error(t, err)

	_, err = parseResult([]interface{}{"1", int64(2), int64(3), int64(0)})
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "rate_limit:global", globalKey())
	assert.Equal(t, "rate_limit:client:10.0.0.1", clientKey("10.0.0.1"))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RateLimitConfig{GlobalLimit: 50})
	assert.Equal(t, int64(50), p.GlobalLimit)
	assert.Equal(t, DefaultPolicy.ClientLimit, p.ClientLimit)
	assert.Equal(t, "60 seconds", p.Window())
}

func TestScriptEmbedded(t *testing.T) {
	assert.Contains(t, rateLimitScript, "INCR")
	assert.Contains(t, rateLimitScript, "EXPIRE")
}
